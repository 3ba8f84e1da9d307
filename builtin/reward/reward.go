// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reward keeps the reward pool and the per epoch payment records.
package reward

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/dlpnet/dlpnet/builtin/bank"
	"github.com/dlpnet/dlpnet/builtin/epoch"
	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/builtin/solidity"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/log"
)

var logger = log.WithContext("pkg", "reward")

var (
	slotPool    = dlp.BytesToBytes32([]byte("reward-pool"))
	slotRecords = dlp.BytesToBytes32([]byte("epoch-rewards"))
)

// EpochReward records what every participant of a finalized epoch was owed and got.
type EpochReward struct {
	Participants []dlp.Address
	Scores       []*big.Int
	Amounts      []*big.Int
	Withdrawn    []*big.Int
}

func (r *EpochReward) indexOf(addr dlp.Address) int {
	for i, p := range r.Participants {
		if p == addr {
			return i
		}
	}
	return -1
}

// Total returns the sum of all entitlements.
func (r *EpochReward) Total() *big.Int {
	return dlp.Sum(r.Amounts)
}

// Paid returns the sum of all transferred amounts.
func (r *EpochReward) Paid() *big.Int {
	return dlp.Sum(r.Withdrawn)
}

// Payee resolves where the reward of a participant goes.
// A participant that is not eligible keeps its entitlement on record only.
type Payee func(participant dlp.Address) (to dlp.Address, eligible bool, err error)

type recordKey uint64

func (k recordKey) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(k))
	return b[:]
}

// Ledger pays rewards out of the pool held by the contract at the context address.
type Ledger struct {
	ctx     *solidity.Context
	bank    *bank.Bank
	pool    *solidity.Uint256
	records *solidity.Mapping[recordKey, *EpochReward]
}

func New(ctx *solidity.Context, bank *bank.Bank) *Ledger {
	return &Ledger{
		ctx:     ctx,
		bank:    bank,
		pool:    solidity.NewUint256(ctx, slotPool),
		records: solidity.NewMapping[recordKey, *EpochReward](ctx, slotRecords),
	}
}

// Pool returns the undistributed pool balance.
func (l *Ledger) Pool() (*big.Int, error) {
	pool, err := l.pool.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get reward pool")
	}
	return pool, nil
}

// AddRewardPool credits amount to the pool. The value itself must already be held by the contract.
func (l *Ledger) AddRewardPool(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.New(reverts.InvalidParam, "reward pool amount must be positive")
	}
	return errors.Wrap(l.pool.Add(amount), "failed to add reward pool")
}

// EpochReward returns the record of a finalized epoch, or nil.
func (l *Ledger) EpochReward(epochID uint64) (*EpochReward, error) {
	r, err := l.records.Get(recordKey(epochID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get epoch reward")
	}
	return r, nil
}

// Unclaimed returns the amount owed to participant for the epoch that was never paid.
func (l *Ledger) Unclaimed(epochID uint64, participant dlp.Address) (*big.Int, error) {
	r, err := l.EpochReward(epochID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return new(big.Int), nil
	}
	i := r.indexOf(participant)
	if i < 0 || r.Withdrawn[i].Sign() != 0 {
		return new(big.Int), nil
	}
	return new(big.Int).Set(r.Amounts[i]), nil
}

// Finalize records the entitlements of a closed epoch and pushes payments to eligible participants.
// A payment the pool cannot cover or the recipient rejects is left on record for ClaimUnsentReward.
func (l *Ledger) Finalize(e *epoch.Epoch, members []dlp.Address, shares []*big.Int, payee Payee) (*EpochReward, error) {
	if len(members) != len(shares) {
		return nil, errors.Errorf("epoch %d: %d members, %d shares", e.ID, len(members), len(shares))
	}
	existing, err := l.EpochReward(e.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Errorf("epoch %d already has a reward record", e.ID)
	}

	r := &EpochReward{
		Participants: append([]dlp.Address(nil), members...),
		Scores:       make([]*big.Int, len(members)),
		Amounts:      make([]*big.Int, len(members)),
		Withdrawn:    make([]*big.Int, len(members)),
	}
	for i := range members {
		r.Scores[i] = new(big.Int).Set(shares[i])
		r.Amounts[i] = dlp.MulUnit(e.RewardAmount, shares[i])
		r.Withdrawn[i] = new(big.Int)
	}
	if err := l.save(e.ID, r); err != nil {
		return nil, err
	}

	state := l.ctx.State()
	for i, member := range members {
		amount := r.Amounts[i]
		if amount.Sign() == 0 {
			continue
		}
		to, eligible, err := payee(member)
		if err != nil {
			return nil, err
		}
		if !eligible {
			logger.Debug("reward withheld", "epoch", e.ID, "participant", member)
			continue
		}

		checkpoint := state.NewCheckpoint()
		paid, err := l.pay(e.ID, r, i, to)
		if err != nil {
			state.RevertTo(checkpoint)
			r.Withdrawn[i] = new(big.Int)
			if !reverts.IsRevertErr(err) {
				return nil, err
			}
			logger.Info("reward left unsent", "epoch", e.ID, "participant", member, "amount", amount, "reason", err)
			continue
		}
		logger.Debug("reward paid", "epoch", e.ID, "participant", member, "to", to, "amount", paid)
	}
	return r, nil
}

// ClaimUnsentReward pays the recorded but never transferred reward of participant.
func (l *Ledger) ClaimUnsentReward(epochID uint64, participant, to dlp.Address) (*big.Int, error) {
	r, err := l.EpochReward(epochID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, reverts.Newf(reverts.NothingToClaim, "epoch %d is not finalized", epochID)
	}
	i := r.indexOf(participant)
	if i < 0 {
		return nil, reverts.Newf(reverts.NothingToClaim, "%v was not part of epoch %d", participant, epochID)
	}
	if r.Amounts[i].Sign() == 0 || r.Withdrawn[i].Sign() != 0 {
		return nil, reverts.Newf(reverts.NothingToClaim, "nothing owed to %v for epoch %d", participant, epochID)
	}

	state := l.ctx.State()
	checkpoint := state.NewCheckpoint()
	paid, err := l.pay(epochID, r, i, to)
	if err != nil {
		state.RevertTo(checkpoint)
		if reverts.Is(err, reverts.InsufficientBalance) {
			return nil, reverts.Newf(reverts.NothingToClaim, "reward pool cannot cover epoch %d", epochID)
		}
		return nil, err
	}
	return paid, nil
}

// pay debits the pool and records the withdrawal before transferring.
func (l *Ledger) pay(epochID uint64, r *EpochReward, i int, to dlp.Address) (*big.Int, error) {
	amount := new(big.Int).Set(r.Amounts[i])
	pool, err := l.Pool()
	if err != nil {
		return nil, err
	}
	if pool.Cmp(amount) < 0 {
		return nil, reverts.Newf(reverts.InsufficientBalance, "reward pool %v, payment %v", pool, amount)
	}
	if err := l.pool.Sub(amount); err != nil {
		return nil, err
	}
	r.Withdrawn[i] = amount
	if err := l.save(epochID, r); err != nil {
		return nil, err
	}
	if err := l.bank.Transfer(l.ctx.Address(), to, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (l *Ledger) save(epochID uint64, r *EpochReward) error {
	return errors.Wrap(l.records.Set(recordKey(epochID), r), "failed to set epoch reward")
}
