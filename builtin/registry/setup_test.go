// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlpnet/dlpnet/builtin/bank"
	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/lvldb"
	"github.com/dlpnet/dlpnet/state"
	"github.com/dlpnet/dlpnet/test/datagen"
	"github.com/dlpnet/dlpnet/xenv"
)

type RegistryTest struct {
	*Registry
	t     *testing.T
	state *state.State
	bank  *bank.Bank
	owner dlp.Address
	block uint64
}

// member is a registered participant together with the account that owns it.
type member struct {
	identity dlp.Address
	owner    dlp.Address
}

func newTest(t *testing.T, kind Kind, cfg Config) *RegistryTest {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := state.New(db, nil)
	b := bank.New(dlp.BytesToAddress([]byte("bank")), st)
	r := New(kind, dlp.BytesToAddress([]byte("registry")), st, b)
	rt := &RegistryTest{
		Registry: r,
		t:        t,
		state:    st,
		bank:     b,
		owner:    datagen.RandAddress(),
		block:    cfg.StartBlock,
	}
	require.NoError(t, r.Initialize(rt.env(rt.owner), rt.owner, cfg))
	return rt
}

// defaultConfig starts at block 0 with epochs of 10 blocks paying 100 units.
func defaultConfig() Config {
	return Config{
		EpochSize:         10,
		EpochRewardAmount: dlp.Units(100),
		MinStake:          dlp.Units(100),
	}
}

func (rt *RegistryTest) env(caller dlp.Address) *xenv.Environment {
	return xenv.New(rt.state, &xenv.BlockContext{Number: rt.block}, caller, nil)
}

func (rt *RegistryTest) envWithValue(caller dlp.Address, value *big.Int) *xenv.Environment {
	return xenv.New(rt.state, &xenv.BlockContext{Number: rt.block}, caller, value)
}

// At moves the chain to block.
func (rt *RegistryTest) At(block uint64) *RegistryTest {
	require.GreaterOrEqual(rt.t, block, rt.block, "blocks only move forward")
	rt.block = block
	return rt
}

func (rt *RegistryTest) Fund(addr dlp.Address, amount *big.Int) *RegistryTest {
	require.NoError(rt.t, rt.bank.Mint(addr, amount))
	return rt
}

// FundPool adds amount to the reward pool on behalf of a fresh donor.
func (rt *RegistryTest) FundPool(amount *big.Int) *RegistryTest {
	donor := datagen.RandAddress()
	rt.Fund(donor, amount)
	require.NoError(rt.t, rt.AddRewardPool(rt.envWithValue(donor, amount)))
	return rt
}

// Join registers and approves a participant owned by a fresh account funding exactly the stake.
func (rt *RegistryTest) Join(stake *big.Int) member {
	m := member{identity: datagen.RandAddress(), owner: datagen.RandAddress()}
	rt.Fund(m.owner, stake)
	require.NoError(rt.t, rt.Register(rt.env(m.owner), m.identity, m.owner, stake, ""))
	require.NoError(rt.t, rt.Approve(rt.env(rt.owner), m.identity))
	return m
}

func (rt *RegistryTest) JoinN(n int, stake *big.Int) []member {
	members := make([]member, n)
	for i := range members {
		members[i] = rt.Join(stake)
	}
	return members
}

func (rt *RegistryTest) Vote(voter member, targets []member, weights ...int64) *RegistryTest {
	addrs := make([]dlp.Address, len(targets))
	values := make([]*big.Int, len(weights))
	for i, m := range targets {
		addrs[i] = m.identity
	}
	for i, w := range weights {
		values[i] = dlp.Units(w)
	}
	require.NoError(rt.t, rt.UpdateWeights(rt.env(voter.identity), addrs, values))
	return rt
}

func (rt *RegistryTest) CreateEpochsNow() *RegistryTest {
	require.NoError(rt.t, rt.CreateEpochs(rt.env(datagen.RandAddress())))
	return rt
}

func (rt *RegistryTest) Balance(addr dlp.Address) *big.Int {
	bal, err := rt.bank.GetBalance(addr)
	require.NoError(rt.t, err)
	return bal
}

func (rt *RegistryTest) AssertStatus(identity dlp.Address, status Status) *RegistryTest {
	p, err := rt.storage.GetParticipant(identity)
	require.NoError(rt.t, err)
	if status == StatusNone {
		assert.True(rt.t, p.IsEmpty())
		return rt
	}
	require.NotNil(rt.t, p)
	assert.Equal(rt.t, status, p.Status, "status of %v", identity)
	return rt
}

func (rt *RegistryTest) AssertActive(expected ...member) *RegistryTest {
	active, err := rt.ActiveParticipants()
	require.NoError(rt.t, err)
	ids := make([]dlp.Address, len(expected))
	for i, m := range expected {
		ids[i] = m.identity
	}
	assert.ElementsMatch(rt.t, ids, active)
	return rt
}

func (rt *RegistryTest) AssertEpochs(count uint64) *RegistryTest {
	got, err := rt.EpochsCount()
	require.NoError(rt.t, err)
	assert.Equal(rt.t, count, got, "epochs count")
	return rt
}

// AssertContiguous checks every created epoch starts right after its predecessor.
func (rt *RegistryTest) AssertContiguous() *RegistryTest {
	count, err := rt.EpochsCount()
	require.NoError(rt.t, err)
	for id := uint64(2); id <= count; id++ {
		prev, err := rt.Epoch(id - 1)
		require.NoError(rt.t, err)
		cur, err := rt.Epoch(id)
		require.NoError(rt.t, err)
		assert.Equal(rt.t, prev.EndBlock+1, cur.StartBlock, "epoch %d", id)
	}
	return rt
}

// AssertStakers checks the stake total of owner against its live participants.
func (rt *RegistryTest) AssertStakers(owner dlp.Address) *RegistryTest {
	count, err := rt.ParticipantsCount()
	require.NoError(rt.t, err)
	expected := new(big.Int)
	for i := range count {
		id, err := rt.ParticipantAt(i)
		require.NoError(rt.t, err)
		p, err := rt.Participant(id)
		require.NoError(rt.t, err)
		if p.Owner == owner && p.Status != StatusDeregistered {
			expected.Add(expected, p.StakeAmount)
		}
	}
	total, err := rt.StakerTotal(owner)
	require.NoError(rt.t, err)
	assert.Zero(rt.t, expected.Cmp(total), "staker total of %v: expected %v, got %v", owner, expected, total)
	return rt
}

func assertRevert(t *testing.T, err error, name reverts.Name) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, reverts.Is(err, name), "expected %v, got %v", name, err)
}

func toFloat(v *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), new(big.Float).SetInt(dlp.Unit())).Float64()
	return f
}
