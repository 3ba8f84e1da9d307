// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"math/big"

	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/builtin/scoring"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/xenv"
)

//
// Setters - state change
//

// Initialize sets the registry owner and the config, and creates the first epoch.
// Unset config fields fall back to the defaults.
func (r *Registry) Initialize(env *xenv.Environment, owner dlp.Address, cfg Config) error {
	return env.Call(func() error {
		if owner.IsZero() {
			return reverts.New(reverts.InvalidParam, "zero owner")
		}
		if cfg.EpochSize == 0 {
			cfg.EpochSize = EpochSize.Get().Uint64()
		}
		if cfg.EpochRewardAmount == nil {
			cfg.EpochRewardAmount = EpochRewardAmount.Get()
		}
		if cfg.MinStake == nil {
			cfg.MinStake = MinStake.Get()
		}
		defaults := scoring.DefaultConsensusParams()
		if cfg.Rho == nil {
			cfg.Rho = defaults.Rho
		}
		if cfg.Kappa == nil {
			cfg.Kappa = defaults.Kappa
		}
		if cfg.MinTrust == nil {
			cfg.MinTrust = defaults.MinTrust
		}
		if err := validateConfig(&cfg); err != nil {
			return err
		}
		latest, err := r.snapshots.Latest()
		if err != nil {
			return err
		}
		if _, err := r.clock.Init(cfg.StartBlock, newEpochParams(&cfg, latest)); err != nil {
			return err
		}
		r.access.SetOwner(owner)
		r.storage.SetConfig(&cfg)

		logger.Info("registry initialized",
			"kind", r.kind,
			"owner", owner,
			"start", cfg.StartBlock,
			"epochSize", cfg.EpochSize,
			"reward", dlp.ToUnits(cfg.EpochRewardAmount),
		)
		return env.Log(EventEpochCreated, r.addr, nil, big.NewInt(1))
	})
}

// Register creates a participant. The stake is moved from the caller to the registry.
// When the registry owner registers, the stake is granted and returns to the owner on exit.
func (r *Registry) Register(env *xenv.Environment, identity, owner dlp.Address, stake *big.Int, name string) error {
	caller := env.Caller()
	logger.Debug("registering participant", "kind", r.kind, "identity", identity, "owner", owner, "stake", dlp.ToUnits(stake))

	err := r.exec(env, call{op: "register"}, func(uint64) error {
		if identity.IsZero() || owner.IsZero() {
			return reverts.New(reverts.InvalidParam, "zero identity or owner")
		}
		if stake == nil || stake.Sign() < 0 {
			return reverts.New(reverts.InvalidStakeAmount, "negative stake")
		}
		existing, err := r.storage.GetParticipant(identity)
		if err != nil {
			return err
		}
		if !existing.IsEmpty() {
			return r.kind.transitionErr(identity, existing.Status, StatusRegistered)
		}

		registryOwner, err := r.access.Owner()
		if err != nil {
			return err
		}
		granted := new(big.Int)
		if caller == registryOwner {
			granted.Set(stake)
		} else {
			cfg, err := r.storage.GetConfig()
			if err != nil {
				return err
			}
			if stake.Cmp(cfg.MinStake) < 0 || stake.Sign() == 0 {
				return reverts.Newf(reverts.InvalidStakeAmount, "stake %v below minimum %v", stake, cfg.MinStake)
			}
		}

		if stake.Sign() > 0 {
			if err := r.bank.Transfer(caller, r.addr, stake); err != nil {
				return err
			}
		}
		p := &Participant{
			Identity:      identity,
			Owner:         owner,
			Name:          name,
			Status:        StatusRegistered,
			StakeAmount:   new(big.Int).Set(stake),
			GrantedAmount: granted,
			Score:         new(big.Int),
		}
		if err := r.storage.SetParticipant(p, true); err != nil {
			return err
		}
		if err := r.storage.AddStakerTotal(owner, stake); err != nil {
			return err
		}
		return env.Log(EventParticipantRegistered, r.addr, []dlp.Bytes32{addressTopic(identity), addressTopic(owner)}, stake)
	})
	if err != nil {
		logger.Info("register failed", "kind", r.kind, "identity", identity, "error", err)
		return err
	}
	logger.Info("registered participant", "kind", r.kind, "identity", identity)
	return nil
}

// Approve activates a registered participant from the next block on.
func (r *Registry) Approve(env *xenv.Environment, identity dlp.Address) error {
	logger.Debug("approving participant", "kind", r.kind, "identity", identity)

	err := r.exec(env, call{op: "approve", ownerOnly: true}, func(block uint64) error {
		p, err := r.storage.GetExistingParticipant(r.kind, identity, StatusActive)
		if err != nil {
			return err
		}
		if p.Status != StatusRegistered {
			return r.kind.transitionErr(identity, p.Status, StatusActive)
		}
		cfg, err := r.storage.GetConfig()
		if err != nil {
			return err
		}
		if cfg.MaxParticipants > 0 {
			active, err := r.activeCount()
			if err != nil {
				return err
			}
			if uint64(active) >= cfg.MaxParticipants {
				return reverts.Newf(reverts.TooManyParticipants, "%d active, max %d", active, cfg.MaxParticipants)
			}
		}

		p.Status = StatusActive
		p.FirstActiveBlock = block + 1
		if err := r.storage.SetParticipant(p, false); err != nil {
			return err
		}
		id, err := r.snapshots.Append(identity)
		if err != nil {
			return err
		}
		logger.Debug("published active list", "kind", r.kind, "snapshot", id)
		return env.Log(EventParticipantApproved, r.addr, []dlp.Bytes32{addressTopic(identity)})
	})
	if err != nil {
		logger.Info("approve failed", "kind", r.kind, "identity", identity, "error", err)
		return err
	}
	logger.Info("approved participant", "kind", r.kind, "identity", identity)
	return nil
}

// Inactivate pauses an active validator. It keeps its stake but leaves the active list.
func (r *Registry) Inactivate(env *xenv.Environment, identity dlp.Address) error {
	logger.Debug("inactivating participant", "kind", r.kind, "identity", identity)

	err := r.exec(env, call{op: "inactivate"}, func(block uint64) error {
		if r.kind != KindValidator {
			return reverts.Newf(reverts.InvalidParam, "%v registry members cannot be inactivated", r.kind)
		}
		p, err := r.storage.GetExistingParticipant(r.kind, identity, StatusInactive)
		if err != nil {
			return err
		}
		if err := authorizeSelf(env.Caller(), p); err != nil {
			return err
		}
		if p.Status != StatusActive {
			return r.kind.transitionErr(identity, p.Status, StatusInactive)
		}

		p.Status = StatusInactive
		p.LastActiveBlock = block
		if err := r.storage.SetParticipant(p, false); err != nil {
			return err
		}
		if _, err := r.snapshots.Remove(identity); err != nil {
			return err
		}
		return env.Log(EventParticipantInactivated, r.addr, []dlp.Bytes32{addressTopic(identity)})
	})
	if err != nil {
		logger.Info("inactivate failed", "kind", r.kind, "identity", identity, "error", err)
		return err
	}
	logger.Info("inactivated participant", "kind", r.kind, "identity", identity)
	return nil
}

// Deregister exits a participant for good. The self funded stake returns to its owner.
func (r *Registry) Deregister(env *xenv.Environment, identity dlp.Address) error {
	logger.Debug("deregistering participant", "kind", r.kind, "identity", identity)

	err := r.exec(env, call{op: "deregister"}, func(block uint64) error {
		p, err := r.storage.GetExistingParticipant(r.kind, identity, StatusDeregistered)
		if err != nil {
			return err
		}
		if err := authorizeSelf(env.Caller(), p); err != nil {
			return err
		}
		if err := r.exit(p, block, p.OwnStake()); err != nil {
			return err
		}
		return env.Log(EventParticipantDeregistered, r.addr, []dlp.Bytes32{addressTopic(identity)})
	})
	if err != nil {
		logger.Info("deregister failed", "kind", r.kind, "identity", identity, "error", err)
		return err
	}
	logger.Info("deregistered participant", "kind", r.kind, "identity", identity)
	return nil
}

// DeregisterByOwner force exits a participant. refund goes to the participant owner,
// the rest of the stake is forfeited to the registry owner.
func (r *Registry) DeregisterByOwner(env *xenv.Environment, identity dlp.Address, refund *big.Int) error {
	logger.Debug("force deregistering participant", "kind", r.kind, "identity", identity, "refund", dlp.ToUnits(refund))

	var forfeit *big.Int
	err := r.exec(env, call{op: "deregisterByOwner", ownerOnly: true}, func(block uint64) error {
		p, err := r.storage.GetExistingParticipant(r.kind, identity, StatusDeregistered)
		if err != nil {
			return err
		}
		if err := r.checkExit(p); err != nil {
			return err
		}
		if p.StakeAmount.Sign() == 0 {
			return reverts.Newf(reverts.InvalidStakeAmount, "%v has no stake", identity)
		}
		if refund == nil || refund.Sign() < 0 || refund.Cmp(p.StakeAmount) > 0 {
			return reverts.Newf(reverts.InvalidStakeAmount, "refund %v, stake %v", refund, p.StakeAmount)
		}
		forfeit = new(big.Int).Sub(p.StakeAmount, refund)
		if err := r.exit(p, block, refund); err != nil {
			return err
		}
		return env.Log(EventParticipantDeregisteredByOwner, r.addr, []dlp.Bytes32{addressTopic(identity)}, refund, forfeit)
	})
	if err != nil {
		logger.Info("force deregister failed", "kind", r.kind, "identity", identity, "error", err)
		return err
	}
	logger.Info("force deregistered participant", "kind", r.kind, "identity", identity, "forfeit", dlp.ToUnits(forfeit))
	return nil
}

func (r *Registry) checkExit(p *Participant) error {
	switch p.Status {
	case StatusRegistered, StatusActive, StatusInactive:
		return nil
	}
	return r.kind.transitionErr(p.Identity, p.Status, StatusDeregistered)
}

// exit marks p deregistered, refunds its owner and keeps the rest of the stake for the registry owner.
// The stake leaves the participant, so a deregistered participant holds none.
func (r *Registry) exit(p *Participant, block uint64, refund *big.Int) error {
	if err := r.checkExit(p); err != nil {
		return err
	}
	wasActive := p.Status == StatusActive
	stake := p.StakeAmount

	p.Status = StatusDeregistered
	p.LastActiveBlock = block
	p.StakeAmount = new(big.Int)
	p.GrantedAmount = new(big.Int)
	if err := r.storage.SetParticipant(p, false); err != nil {
		return err
	}
	if wasActive {
		if _, err := r.snapshots.Remove(p.Identity); err != nil {
			return err
		}
	}
	if err := r.storage.AddStakerTotal(p.Owner, new(big.Int).Neg(stake)); err != nil {
		return err
	}
	if forfeit := new(big.Int).Sub(stake, refund); forfeit.Sign() > 0 {
		if err := r.storage.reclaimable.Add(forfeit); err != nil {
			return err
		}
	}
	if refund.Sign() > 0 {
		return r.bank.Transfer(r.addr, p.Owner, refund)
	}
	return nil
}

// UpdateWeights overwrites the opinion row of the calling validator.
func (r *Registry) UpdateWeights(env *xenv.Environment, targets []dlp.Address, weights []*big.Int) error {
	caller := env.Caller()
	logger.Debug("updating weights", "kind", r.kind, "validator", caller, "targets", len(targets))

	err := r.exec(env, call{op: "updateWeights"}, func(uint64) error {
		if r.kind != KindValidator {
			return reverts.Newf(reverts.InvalidParam, "%v registry members do not vote", r.kind)
		}
		p, err := r.storage.GetExistingParticipant(r.kind, caller, StatusActive)
		if err != nil {
			return err
		}
		if p.Status != StatusActive {
			return reverts.Newf(reverts.InvalidStatus, "%v is %v, only active validators vote", caller, p.Status)
		}
		if len(targets) != len(weights) {
			return reverts.Newf(reverts.ArityMismatch, "%d targets, %d weights", len(targets), len(weights))
		}
		row := &WeightRow{
			Targets: append([]dlp.Address(nil), targets...),
			Weights: make([]*big.Int, len(weights)),
		}
		for i, w := range weights {
			if w == nil || w.Sign() < 0 {
				return reverts.Newf(reverts.InvalidParam, "weight %d is negative", i)
			}
			row.Weights[i] = new(big.Int).Set(w)
		}
		if err := r.storage.SetWeightRow(caller, row); err != nil {
			return err
		}
		return env.Log(EventWeightsUpdated, r.addr, []dlp.Bytes32{addressTopic(caller)})
	})
	if err != nil {
		logger.Info("update weights failed", "kind", r.kind, "validator", caller, "error", err)
	}
	return err
}

// UpdateScores overwrites the attested scores of the whole active membership.
func (r *Registry) UpdateScores(env *xenv.Environment, ids []dlp.Address, scores []*big.Int) error {
	logger.Debug("updating scores", "kind", r.kind, "count", len(ids))

	err := r.exec(env, call{op: "updateScores", ownerOnly: true}, func(uint64) error {
		if r.kind != KindPool {
			return reverts.Newf(reverts.InvalidParam, "%v registry scores are computed", r.kind)
		}
		if len(ids) != len(scores) {
			return reverts.Newf(reverts.ArityMismatch, "%d ids, %d scores", len(ids), len(scores))
		}
		participants := make([]*Participant, len(ids))
		for i, id := range ids {
			p, err := r.storage.GetExistingParticipant(r.kind, id, StatusActive)
			if err != nil {
				return err
			}
			if p.Status != StatusActive {
				return reverts.Newf(r.kind.statusRevert(), "%v is %v, only active participants are scored", id, p.Status)
			}
			participants[i] = p
		}
		active, err := r.ActiveParticipants()
		if err != nil {
			return err
		}
		if err := scoring.Validate(ids, scores, active); err != nil {
			return err
		}
		for i, p := range participants {
			p.Score = new(big.Int).Set(scores[i])
			if err := r.storage.SetParticipant(p, false); err != nil {
				return err
			}
		}
		return env.Log(EventScoresUpdated, r.addr, nil, big.NewInt(int64(len(ids))))
	})
	if err != nil {
		logger.Info("update scores failed", "kind", r.kind, "error", err)
	}
	return err
}

// CreateEpochs materializes every epoch up to the current block.
func (r *Registry) CreateEpochs(env *xenv.Environment) error {
	return r.exec(env, call{op: "createEpochs"}, func(uint64) error { return nil })
}

// CreateEpochsUntilBlockNumber materializes epochs up to a past block only.
func (r *Registry) CreateEpochsUntilBlockNumber(env *xenv.Environment, block uint64) error {
	if block > env.BlockContext().Number {
		return reverts.Newf(reverts.InvalidBlockNumber, "block %d is in the future", block)
	}
	return r.exec(env, call{op: "createEpochs", until: &block}, func(uint64) error { return nil })
}

// AddRewardPool moves the call value from the caller into the reward pool.
func (r *Registry) AddRewardPool(env *xenv.Environment) error {
	amount := env.Value()
	err := r.exec(env, call{op: "addRewardPool"}, func(uint64) error {
		if amount.Sign() <= 0 {
			return reverts.New(reverts.InvalidParam, "no value attached")
		}
		if err := r.bank.Transfer(env.Caller(), r.addr, amount); err != nil {
			return err
		}
		if err := r.ledger.AddRewardPool(amount); err != nil {
			return err
		}
		return env.Log(EventRewardPoolAdded, r.addr, []dlp.Bytes32{addressTopic(env.Caller())}, amount)
	})
	if err != nil {
		logger.Info("add reward pool failed", "kind", r.kind, "error", err)
		return err
	}
	logger.Info("added reward pool", "kind", r.kind, "amount", dlp.ToUnits(amount))
	return nil
}

// ClaimUnsentReward pays a reward that could not be pushed when the epoch was finalized.
func (r *Registry) ClaimUnsentReward(env *xenv.Environment, identity dlp.Address, epochID uint64) (*big.Int, error) {
	logger.Debug("claiming unsent reward", "kind", r.kind, "identity", identity, "epoch", epochID)

	var paid *big.Int
	err := r.exec(env, call{op: "claimUnsentReward"}, func(uint64) error {
		p, err := r.storage.GetParticipant(identity)
		if err != nil {
			return err
		}
		if p.IsEmpty() {
			return reverts.Newf(reverts.NothingToClaim, "%v never registered", identity)
		}
		if env.Caller() != p.Owner {
			return reverts.Newf(reverts.NotOwner, "%v does not own %v", env.Caller(), identity)
		}
		if paid, err = r.ledger.ClaimUnsentReward(epochID, identity, p.Owner); err != nil {
			return err
		}
		return env.Log(EventEpochRewardClaimed, r.addr, []dlp.Bytes32{addressTopic(identity)}, new(big.Int).SetUint64(epochID), paid)
	})
	if err != nil {
		logger.Info("claim failed", "kind", r.kind, "identity", identity, "epoch", epochID, "error", err)
		return nil, err
	}
	logger.Info("claimed unsent reward", "kind", r.kind, "identity", identity, "epoch", epochID, "amount", dlp.ToUnits(paid))
	return paid, nil
}

// WithdrawGranted sends reclaimable granted stake to the registry owner.
func (r *Registry) WithdrawGranted(env *xenv.Environment, amount *big.Int) error {
	err := r.exec(env, call{op: "withdrawGranted", ownerOnly: true}, func(uint64) error {
		if amount == nil || amount.Sign() <= 0 {
			return reverts.New(reverts.InvalidParam, "amount must be positive")
		}
		available, err := r.storage.reclaimable.Get()
		if err != nil {
			return err
		}
		if available.Cmp(amount) < 0 {
			return reverts.Newf(reverts.InsufficientBalance, "reclaimable %v, requested %v", available, amount)
		}
		if err := r.storage.reclaimable.Sub(amount); err != nil {
			return err
		}
		if err := r.bank.Transfer(r.addr, env.Caller(), amount); err != nil {
			return err
		}
		return env.Log(EventGrantedWithdrawn, r.addr, []dlp.Bytes32{addressTopic(env.Caller())}, amount)
	})
	if err != nil {
		logger.Info("withdraw granted failed", "kind", r.kind, "error", err)
	}
	return err
}

func authorizeSelf(caller dlp.Address, p *Participant) error {
	if caller != p.Identity && caller != p.Owner {
		return reverts.Newf(reverts.NotOwner, "%v is neither %v nor its owner", caller, p.Identity)
	}
	return nil
}
