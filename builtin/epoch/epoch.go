// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package epoch materializes fixed-size, contiguous epochs from block heights.
package epoch

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/builtin/snapshot"
	"github.com/dlpnet/dlpnet/builtin/solidity"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/log"
)

var logger = log.WithContext("pkg", "epoch")

// ErrUnknownEpoch is returned for ids that were never created.
var ErrUnknownEpoch = errors.New("unknown epoch")

var (
	slotCount  = dlp.BytesToBytes32([]byte("epoch-count"))
	slotEpochs = dlp.BytesToBytes32([]byte("epochs"))
)

// Epoch is a closed block range [StartBlock, EndBlock] with the reward and membership stamped at creation.
type Epoch struct {
	ID           uint64 `rlp:"-"`
	StartBlock   uint64
	EndBlock     uint64
	RewardAmount *big.Int
	SnapshotID   snapshot.ID
	Finalized    bool
}

// Size returns the number of blocks in the epoch.
func (e *Epoch) Size() uint64 {
	return e.EndBlock - e.StartBlock + 1
}

// Params are the values stamped on newly created epochs.
type Params struct {
	Size       uint64
	Reward     *big.Int
	SnapshotID snapshot.ID
}

type epochKey uint64

func (k epochKey) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(k))
	return b[:]
}

// Clock is the epoch store of one contract.
type Clock struct {
	count  *solidity.Uint256
	epochs *solidity.Mapping[epochKey, *Epoch]
}

func New(ctx *solidity.Context) *Clock {
	return &Clock{
		count:  solidity.NewUint256(ctx, slotCount),
		epochs: solidity.NewMapping[epochKey, *Epoch](ctx, slotEpochs),
	}
}

// Count returns the number of created epochs.
func (c *Clock) Count() (uint64, error) {
	count, err := c.count.Get()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get epoch count")
	}
	return count.Uint64(), nil
}

// Init creates epoch 1 starting at startBlock.
func (c *Clock) Init(startBlock uint64, params Params) (*Epoch, error) {
	count, err := c.Count()
	if err != nil {
		return nil, err
	}
	if count != 0 {
		return nil, reverts.New(reverts.InvalidParam, "epochs already initialized")
	}
	if params.Size == 0 {
		return nil, reverts.New(reverts.InvalidParam, "zero epoch size")
	}
	first := &Epoch{
		ID:           1,
		StartBlock:   startBlock,
		EndBlock:     startBlock + params.Size - 1,
		RewardAmount: new(big.Int).Set(params.Reward),
		SnapshotID:   params.SnapshotID,
	}
	if err := c.set(first); err != nil {
		return nil, err
	}
	c.count.Set(big.NewInt(1))
	return first, nil
}

// Get returns the epoch with the given id.
func (c *Clock) Get(id uint64) (*Epoch, error) {
	count, err := c.Count()
	if err != nil {
		return nil, err
	}
	if id == 0 || id > count {
		return nil, errors.Wrapf(ErrUnknownEpoch, "id %d, count %d", id, count)
	}
	e, err := c.epochs.Get(epochKey(id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get epoch")
	}
	if e == nil {
		return nil, errors.Errorf("epoch %d missing from storage", id)
	}
	e.ID = id
	if e.RewardAmount == nil {
		e.RewardAmount = new(big.Int)
	}
	return e, nil
}

// Current returns the most recently created epoch.
func (c *Clock) Current() (*Epoch, error) {
	count, err := c.Count()
	if err != nil {
		return nil, err
	}
	return c.Get(count)
}

// MaterializeUntil creates every epoch whose predecessor ended at or before block.
// onClose is invoked on each predecessor right after its successor is created.
// It returns the number of created epochs.
func (c *Clock) MaterializeUntil(block uint64, params Params, onClose func(*Epoch) error) (int, error) {
	if params.Size == 0 {
		return 0, reverts.New(reverts.InvalidParam, "zero epoch size")
	}
	current, err := c.Current()
	if err != nil {
		return 0, err
	}

	created := 0
	for block >= current.EndBlock {
		next := &Epoch{
			ID:           current.ID + 1,
			StartBlock:   current.EndBlock + 1,
			EndBlock:     current.EndBlock + params.Size,
			RewardAmount: new(big.Int).Set(params.Reward),
			SnapshotID:   params.SnapshotID,
		}
		if err := c.set(next); err != nil {
			return created, err
		}
		c.count.Set(new(big.Int).SetUint64(next.ID))
		created++

		logger.Debug("epoch created",
			"id", next.ID,
			"start", next.StartBlock,
			"end", next.EndBlock,
			"reward", dlp.ToUnits(next.RewardAmount),
			"snapshot", next.SnapshotID,
		)

		if onClose != nil {
			if err := onClose(current); err != nil {
				return created, errors.WithMessagef(err, "close epoch %d", current.ID)
			}
		}
		current = next
	}
	return created, nil
}

// MarkFinalized flags the epoch as finalized.
func (c *Clock) MarkFinalized(id uint64) error {
	e, err := c.Get(id)
	if err != nil {
		return err
	}
	if e.Finalized {
		return reverts.Newf(reverts.InvalidStatus, "epoch %d already finalized", id)
	}
	e.Finalized = true
	return c.set(e)
}

func (c *Clock) set(e *Epoch) error {
	if err := c.epochs.Set(epochKey(e.ID), e); err != nil {
		return errors.Wrap(err, "failed to set epoch")
	}
	return nil
}
