// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reward

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlpnet/dlpnet/builtin/bank"
	"github.com/dlpnet/dlpnet/builtin/epoch"
	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/builtin/solidity"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/lvldb"
	"github.com/dlpnet/dlpnet/state"
	"github.com/dlpnet/dlpnet/test/datagen"
)

type fixture struct {
	ledger *Ledger
	bank   *bank.Bank
	holder dlp.Address
}

func newFixture(t *testing.T, funded *big.Int) *fixture {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := state.New(db, nil)
	holder := datagen.RandAddress()
	b := bank.New(dlp.BytesToAddress([]byte("bank")), st)
	l := New(solidity.NewContext(holder, st), b)
	if funded.Sign() > 0 {
		require.NoError(t, b.Mint(holder, funded))
		require.NoError(t, l.AddRewardPool(funded))
	}
	return &fixture{ledger: l, bank: b, holder: holder}
}

func (f *fixture) balance(t *testing.T, addr dlp.Address) *big.Int {
	bal, err := f.bank.GetBalance(addr)
	require.NoError(t, err)
	return bal
}

func payToSelf(addr dlp.Address) (dlp.Address, bool, error) {
	return addr, true, nil
}

func percent(n int64) *big.Int {
	return new(big.Int).Div(dlp.Units(n), big.NewInt(100))
}

func testEpoch(id uint64, reward int64) *epoch.Epoch {
	return &epoch.Epoch{ID: id, StartBlock: 10 * (id - 1), EndBlock: 10*id - 1, RewardAmount: dlp.Units(reward)}
}

func TestAddRewardPool(t *testing.T) {
	f := newFixture(t, new(big.Int))

	assert.True(t, reverts.Is(f.ledger.AddRewardPool(new(big.Int)), reverts.InvalidParam))
	assert.True(t, reverts.Is(f.ledger.AddRewardPool(big.NewInt(-1)), reverts.InvalidParam))

	require.NoError(t, f.ledger.AddRewardPool(dlp.Units(3)))
	require.NoError(t, f.ledger.AddRewardPool(dlp.Units(4)))
	pool, err := f.ledger.Pool()
	require.NoError(t, err)
	assert.Equal(t, dlp.Units(7), pool)
}

func TestFinalizePaysShares(t *testing.T) {
	f := newFixture(t, dlp.Units(1000))
	members := datagen.RandAddresses(3)
	shares := []*big.Int{percent(50), percent(30), percent(20)}

	r, err := f.ledger.Finalize(testEpoch(1, 100), members, shares, payToSelf)
	require.NoError(t, err)
	assert.Equal(t, dlp.Units(100), r.Total())
	assert.Equal(t, dlp.Units(100), r.Paid())

	for i, m := range members {
		assert.Equal(t, r.Amounts[i], f.balance(t, m))
		assert.Equal(t, r.Amounts[i], r.Withdrawn[i])
	}
	assert.Equal(t, dlp.Units(50), r.Amounts[0])

	pool, err := f.ledger.Pool()
	require.NoError(t, err)
	assert.Equal(t, dlp.Units(900), pool)
	assert.Equal(t, dlp.Units(900), f.balance(t, f.holder))

	stored, err := f.ledger.EpochReward(1)
	require.NoError(t, err)
	assert.Equal(t, r.Participants, stored.Participants)
	assert.Equal(t, r.Paid(), stored.Paid())

	_, err = f.ledger.Finalize(testEpoch(1, 100), members, shares, payToSelf)
	assert.ErrorContains(t, err, "already has a reward record")
}

func TestFinalizeEmptyMembership(t *testing.T) {
	f := newFixture(t, dlp.Units(10))

	r, err := f.ledger.Finalize(testEpoch(1, 5), nil, nil, payToSelf)
	require.NoError(t, err)
	assert.Zero(t, r.Total().Sign())

	stored, err := f.ledger.EpochReward(1)
	require.NoError(t, err)
	assert.NotNil(t, stored)

	pool, _ := f.ledger.Pool()
	assert.Equal(t, dlp.Units(10), pool)
}

func TestFinalizeArityMismatch(t *testing.T) {
	f := newFixture(t, dlp.Units(10))
	_, err := f.ledger.Finalize(testEpoch(1, 5), datagen.RandAddresses(2), []*big.Int{dlp.Unit()}, payToSelf)
	assert.Error(t, err)
}

func TestFinalizeRejectedPayment(t *testing.T) {
	f := newFixture(t, dlp.Units(1000))
	members := datagen.RandAddresses(2)
	require.NoError(t, f.bank.SetRejecting(members[0], true))

	r, err := f.ledger.Finalize(testEpoch(1, 100), members, []*big.Int{percent(60), percent(40)}, payToSelf)
	require.NoError(t, err)
	assert.Zero(t, r.Withdrawn[0].Sign())
	assert.Equal(t, dlp.Units(40), r.Withdrawn[1])
	assert.Zero(t, f.balance(t, members[0]).Sign())

	pool, _ := f.ledger.Pool()
	assert.Equal(t, dlp.Units(960), pool)

	unclaimed, err := f.ledger.Unclaimed(1, members[0])
	require.NoError(t, err)
	assert.Equal(t, dlp.Units(60), unclaimed)

	// still rejecting: the claim fails and nothing changes
	_, err = f.ledger.ClaimUnsentReward(1, members[0], members[0])
	assert.True(t, reverts.Is(err, reverts.TransferRejected))

	require.NoError(t, f.bank.SetRejecting(members[0], false))
	paid, err := f.ledger.ClaimUnsentReward(1, members[0], members[0])
	require.NoError(t, err)
	assert.Equal(t, dlp.Units(60), paid)
	assert.Equal(t, dlp.Units(60), f.balance(t, members[0]))

	_, err = f.ledger.ClaimUnsentReward(1, members[0], members[0])
	assert.True(t, reverts.Is(err, reverts.NothingToClaim))
	_, err = f.ledger.ClaimUnsentReward(1, members[1], members[1])
	assert.True(t, reverts.Is(err, reverts.NothingToClaim))

	unclaimed, err = f.ledger.Unclaimed(1, members[0])
	require.NoError(t, err)
	assert.Zero(t, unclaimed.Sign())
}

func TestFinalizeIneligibleAndPayee(t *testing.T) {
	f := newFixture(t, dlp.Units(1000))
	members := datagen.RandAddresses(2)
	owner := datagen.RandAddress()
	payee := func(addr dlp.Address) (dlp.Address, bool, error) {
		return owner, addr == members[1], nil
	}

	r, err := f.ledger.Finalize(testEpoch(1, 10), members, []*big.Int{percent(50), percent(50)}, payee)
	require.NoError(t, err)
	assert.Zero(t, r.Withdrawn[0].Sign())
	assert.Equal(t, dlp.Units(5), f.balance(t, owner))

	payeeErr := errors.New("boom")
	_, err = f.ledger.Finalize(testEpoch(2, 10), members, []*big.Int{percent(50), percent(50)},
		func(dlp.Address) (dlp.Address, bool, error) { return dlp.Address{}, false, payeeErr })
	assert.ErrorIs(t, err, payeeErr)
}

func TestFinalizeUnderfundedPool(t *testing.T) {
	f := newFixture(t, dlp.Units(50))
	members := datagen.RandAddresses(2)

	r, err := f.ledger.Finalize(testEpoch(1, 100), members, []*big.Int{percent(40), percent(60)}, payToSelf)
	require.NoError(t, err)
	assert.Equal(t, dlp.Units(40), r.Withdrawn[0])
	assert.Zero(t, r.Withdrawn[1].Sign())

	_, err = f.ledger.ClaimUnsentReward(1, members[1], members[1])
	assert.True(t, reverts.Is(err, reverts.NothingToClaim))

	require.NoError(t, f.bank.Mint(f.holder, dlp.Units(100)))
	require.NoError(t, f.ledger.AddRewardPool(dlp.Units(100)))
	paid, err := f.ledger.ClaimUnsentReward(1, members[1], members[1])
	require.NoError(t, err)
	assert.Equal(t, dlp.Units(60), paid)

	pool, _ := f.ledger.Pool()
	assert.Equal(t, dlp.Units(50), pool)
}

func TestClaimUnknown(t *testing.T) {
	f := newFixture(t, dlp.Units(10))
	addr := datagen.RandAddress()

	_, err := f.ledger.ClaimUnsentReward(7, addr, addr)
	assert.True(t, reverts.Is(err, reverts.NothingToClaim))

	_, err = f.ledger.Finalize(testEpoch(1, 10), datagen.RandAddresses(1), []*big.Int{dlp.Unit()}, payToSelf)
	require.NoError(t, err)
	_, err = f.ledger.ClaimUnsentReward(1, addr, addr)
	assert.True(t, reverts.Is(err, reverts.NothingToClaim))

	unclaimed, err := f.ledger.Unclaimed(9, addr)
	require.NoError(t, err)
	assert.Zero(t, unclaimed.Sign())
}
