// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry implements the participant registries. A registry admits staked
// participants, keeps the versioned list of active members, drives the epoch clock and
// pays every closed epoch out of its reward pool.
package registry

import (
	"math/big"

	"github.com/dlpnet/dlpnet/builtin/access"
	"github.com/dlpnet/dlpnet/builtin/bank"
	"github.com/dlpnet/dlpnet/builtin/epoch"
	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/builtin/reward"
	"github.com/dlpnet/dlpnet/builtin/scoring"
	"github.com/dlpnet/dlpnet/builtin/snapshot"
	"github.com/dlpnet/dlpnet/builtin/solidity"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/log"
	"github.com/dlpnet/dlpnet/state"
)

var (
	logger = log.WithContext("pkg", "registry")

	// defaults used by Initialize for unset fields
	EpochSize         = solidity.NewConfigVariable("registry-epoch-size", new(big.Int).SetUint64(uint64(dlp.InitialEpochSize)))
	EpochRewardAmount = solidity.NewConfigVariable("registry-epoch-reward-amount", dlp.InitialEpochRewardAmount)
	MinStake          = solidity.NewConfigVariable("registry-min-stake", dlp.InitialMinStake)
)

// Registry implements the native methods of a participant registry contract.
type Registry struct {
	kind      Kind
	addr      dlp.Address
	state     *state.State
	storage   *storage
	access    *access.Access
	bank      *bank.Bank
	snapshots *snapshot.Snapshots
	clock     *epoch.Clock
	ledger    *reward.Ledger
}

// New create a new instance.
func New(kind Kind, addr dlp.Address, state *state.State, bank *bank.Bank) *Registry {
	sctx := solidity.NewContext(addr, state)

	// debug overrides for testing
	EpochSize.Override(sctx)
	EpochRewardAmount.Override(sctx)
	MinStake.Override(sctx)

	return &Registry{
		kind:      kind,
		addr:      addr,
		state:     state,
		storage:   newStorage(sctx),
		access:    access.New(sctx),
		bank:      bank,
		snapshots: snapshot.New(sctx),
		clock:     epoch.New(sctx),
		ledger:    reward.New(sctx, bank),
	}
}

//
// Getters - no state change
//

func (r *Registry) Kind() Kind           { return r.kind }
func (r *Registry) Address() dlp.Address { return r.addr }

// IsInitialized reports whether the first epoch exists.
func (r *Registry) IsInitialized() (bool, error) {
	count, err := r.clock.Count()
	return count > 0, err
}

// Participant returns the participant, or nil when identity never registered.
func (r *Registry) Participant(identity dlp.Address) (*Participant, error) {
	p, err := r.storage.GetParticipant(identity)
	if err != nil || p.IsEmpty() {
		return nil, err
	}
	return p, nil
}

// ParticipantsCount returns the number of participants that ever registered.
func (r *Registry) ParticipantsCount() (uint64, error) {
	return r.storage.ParticipantsCount()
}

// ParticipantAt returns the identity registered in the i-th position.
func (r *Registry) ParticipantAt(i uint64) (dlp.Address, error) {
	count, err := r.storage.ParticipantsCount()
	if err != nil {
		return dlp.Address{}, err
	}
	if i >= count {
		return dlp.Address{}, reverts.Newf(reverts.InvalidParam, "index %d out of %d", i, count)
	}
	return r.storage.ParticipantAt(i)
}

// ActiveParticipants returns the latest published active list.
func (r *Registry) ActiveParticipants() ([]dlp.Address, error) {
	latest, err := r.snapshots.Latest()
	if err != nil {
		return nil, err
	}
	return r.snapshots.Get(latest)
}

// Snapshot returns a published active list.
func (r *Registry) Snapshot(id snapshot.ID) ([]dlp.Address, error) {
	return r.snapshots.Get(id)
}

func (r *Registry) LatestSnapshot() (snapshot.ID, error) {
	return r.snapshots.Latest()
}

// StakerTotal returns the stake of all live participants owned by owner.
func (r *Registry) StakerTotal(owner dlp.Address) (*big.Int, error) {
	return r.storage.GetStakerTotal(owner)
}

// WeightRow returns the last submitted weights of a validator, or nil.
func (r *Registry) WeightRow(identity dlp.Address) (*WeightRow, error) {
	return r.storage.GetWeightRow(identity)
}

func (r *Registry) Epoch(id uint64) (*epoch.Epoch, error) {
	return r.clock.Get(id)
}

func (r *Registry) EpochsCount() (uint64, error) {
	return r.clock.Count()
}

func (r *Registry) CurrentEpoch() (*epoch.Epoch, error) {
	return r.clock.Current()
}

// EpochReward returns the payment record of a finalized epoch, or nil.
func (r *Registry) EpochReward(id uint64) (*reward.EpochReward, error) {
	return r.ledger.EpochReward(id)
}

// Unclaimed returns what identity is still owed for the epoch.
func (r *Registry) Unclaimed(epochID uint64, identity dlp.Address) (*big.Int, error) {
	return r.ledger.Unclaimed(epochID, identity)
}

func (r *Registry) RewardPool() (*big.Int, error) {
	return r.ledger.Pool()
}

func (r *Registry) Config() (*Config, error) {
	return r.storage.GetConfig()
}

func (r *Registry) Owner() (dlp.Address, error) {
	return r.access.Owner()
}

func (r *Registry) Paused() (bool, error) {
	return r.access.Paused()
}

// ReclaimableGranted returns the granted and forfeited stake the registry owner can withdraw.
func (r *Registry) ReclaimableGranted() (*big.Int, error) {
	return r.storage.reclaimable.Get()
}

//
// scoring inputs
//

type scoreInputs struct {
	storage *storage
}

func (s scoreInputs) Stake(member dlp.Address) (*big.Int, error) {
	p, err := s.storage.GetParticipant(member)
	if err != nil || p.IsEmpty() {
		return new(big.Int), err
	}
	return p.StakeAmount, nil
}

func (s scoreInputs) WeightRow(member dlp.Address) ([]dlp.Address, []*big.Int, error) {
	row, err := s.storage.GetWeightRow(member)
	if err != nil || row == nil {
		return nil, nil, err
	}
	return row.Targets, row.Weights, nil
}

func (s scoreInputs) Score(member dlp.Address) (*big.Int, error) {
	p, err := s.storage.GetParticipant(member)
	if err != nil || p.IsEmpty() || p.Score == nil {
		return new(big.Int), err
	}
	return p.Score, nil
}

func (r *Registry) provider(cfg *Config) scoring.Provider {
	inputs := scoreInputs{r.storage}
	if r.kind == KindPool {
		return scoring.NewAttested(inputs)
	}
	return scoring.NewConsensus(inputs, scoring.ConsensusParams{
		Rho:      cfg.Rho,
		Kappa:    cfg.Kappa,
		MinTrust: cfg.MinTrust,
	})
}

func (r *Registry) payee(identity dlp.Address) (dlp.Address, bool, error) {
	p, err := r.storage.GetParticipant(identity)
	if err != nil {
		return dlp.Address{}, false, err
	}
	if p.IsEmpty() || p.Status == StatusDeregistered {
		return dlp.Address{}, false, nil
	}
	return p.Owner, true, nil
}

func (r *Registry) activeCount() (int, error) {
	active, err := r.ActiveParticipants()
	return len(active), err
}
