// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package epoch

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/builtin/solidity"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/lvldb"
	"github.com/dlpnet/dlpnet/state"
	"github.com/dlpnet/dlpnet/test/datagen"
)

func newClock(t *testing.T, start uint64, params Params) *Clock {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	c := New(solidity.NewContext(datagen.RandAddress(), state.New(db, nil)))
	_, err = c.Init(start, params)
	require.NoError(t, err)
	return c
}

func assertContiguous(t *testing.T, c *Clock) {
	count, err := c.Count()
	require.NoError(t, err)
	for id := uint64(2); id <= count; id++ {
		prev, err := c.Get(id - 1)
		require.NoError(t, err)
		cur, err := c.Get(id)
		require.NoError(t, err)
		assert.Equal(t, prev.EndBlock+1, cur.StartBlock, "epoch %d", id)
	}
}

func TestInit(t *testing.T) {
	c := newClock(t, 100, Params{Size: 10, Reward: dlp.Units(5)})

	first, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.ID)
	assert.Equal(t, uint64(100), first.StartBlock)
	assert.Equal(t, uint64(109), first.EndBlock)
	assert.Equal(t, uint64(10), first.Size())
	assert.Equal(t, dlp.Units(5), first.RewardAmount)

	_, err = c.Init(200, Params{Size: 10, Reward: dlp.Units(5)})
	assert.True(t, reverts.Is(err, reverts.InvalidParam))

	_, err = c.Get(0)
	assert.True(t, errors.Is(err, ErrUnknownEpoch))
	_, err = c.Get(2)
	assert.True(t, errors.Is(err, ErrUnknownEpoch))
}

func TestMaterializeUntil(t *testing.T) {
	params := Params{Size: 10, Reward: dlp.Units(5), SnapshotID: 3}
	c := newClock(t, 100, params)

	var closed []uint64
	onClose := func(e *Epoch) error {
		closed = append(closed, e.ID)
		return nil
	}

	tests := []struct {
		block   uint64
		created int
		count   uint64
	}{
		{100, 0, 1},
		{108, 0, 1},
		{109, 1, 2}, // block equal to the end of the current epoch
		{109, 0, 2}, // idempotent
		{150, 4, 6},
		{140, 0, 6}, // monotonic
	}
	for _, tt := range tests {
		created, err := c.MaterializeUntil(tt.block, params, onClose)
		require.NoError(t, err)
		assert.Equal(t, tt.created, created, "block %d", tt.block)
		count, _ := c.Count()
		assert.Equal(t, tt.count, count, "block %d", tt.block)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, closed)
	assertContiguous(t, c)

	last, _ := c.Current()
	assert.Equal(t, uint64(150), last.StartBlock)
	assert.Equal(t, uint64(159), last.EndBlock)
	assert.Equal(t, uint64(3), uint64(last.SnapshotID))
}

func TestMaterializeStampsParams(t *testing.T) {
	c := newClock(t, 0, Params{Size: 10, Reward: dlp.Units(1)})

	_, err := c.MaterializeUntil(9, Params{Size: 5, Reward: dlp.Units(2), SnapshotID: 1}, nil)
	require.NoError(t, err)
	_, err = c.MaterializeUntil(14, Params{Size: 20, Reward: dlp.Units(3), SnapshotID: 2}, nil)
	require.NoError(t, err)

	e1, _ := c.Get(1)
	e2, _ := c.Get(2)
	e3, _ := c.Get(3)
	assert.Equal(t, [2]uint64{0, 9}, [2]uint64{e1.StartBlock, e1.EndBlock})
	assert.Equal(t, [2]uint64{10, 14}, [2]uint64{e2.StartBlock, e2.EndBlock})
	assert.Equal(t, [2]uint64{15, 34}, [2]uint64{e3.StartBlock, e3.EndBlock})

	// rewards and snapshots are immutable once stamped
	assert.Equal(t, dlp.Units(1), e1.RewardAmount)
	assert.Equal(t, dlp.Units(2), e2.RewardAmount)
	assert.Equal(t, dlp.Units(3), e3.RewardAmount)
	assert.Equal(t, uint64(2), uint64(e3.SnapshotID))
	assertContiguous(t, c)
}

func TestMaterializeCloseError(t *testing.T) {
	c := newClock(t, 0, Params{Size: 10, Reward: big.NewInt(0)})

	_, err := c.MaterializeUntil(30, Params{Size: 10, Reward: big.NewInt(0)}, func(e *Epoch) error {
		if e.ID == 2 {
			return errors.New("boom")
		}
		return nil
	})
	assert.ErrorContains(t, err, "close epoch 2")

	_, err = c.MaterializeUntil(30, Params{Reward: big.NewInt(0)}, nil)
	assert.True(t, reverts.Is(err, reverts.InvalidParam))
}

func TestMarkFinalized(t *testing.T) {
	c := newClock(t, 0, Params{Size: 10, Reward: dlp.Units(1)})

	require.NoError(t, c.MarkFinalized(1))
	e, _ := c.Get(1)
	assert.True(t, e.Finalized)
	assert.True(t, reverts.Is(c.MarkFinalized(1), reverts.InvalidStatus))
	assert.True(t, errors.Is(c.MarkFinalized(7), ErrUnknownEpoch))
}
