// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package scoring

import (
	"math"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/test/datagen"
)

type voters struct {
	stakes map[dlp.Address]*big.Int
	rows   map[dlp.Address][]*big.Int
	order  []dlp.Address
}

func newVoters(members []dlp.Address, stakes []int64, matrix [][]int64) *voters {
	v := &voters{
		stakes: make(map[dlp.Address]*big.Int),
		rows:   make(map[dlp.Address][]*big.Int),
		order:  members,
	}
	for i, m := range members {
		v.stakes[m] = dlp.Units(stakes[i])
		row := make([]*big.Int, len(matrix[i]))
		for j, w := range matrix[i] {
			row[j] = dlp.Units(w)
		}
		v.rows[m] = row
	}
	return v
}

func (v *voters) Stake(member dlp.Address) (*big.Int, error) {
	return v.stakes[member], nil
}

func (v *voters) WeightRow(member dlp.Address) ([]dlp.Address, []*big.Int, error) {
	row, ok := v.rows[member]
	if !ok {
		return nil, nil, nil
	}
	return v.order, row, nil
}

func toFloat(v *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), new(big.Float).SetInt(dlp.Unit())).Float64()
	return f
}

func strs(values []*big.Int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}

func assertExactSum(t *testing.T, shares []*big.Int) {
	assert.Zero(t, dlp.Unit().Cmp(dlp.Sum(shares)), "shares must sum to exactly one unit")
}

func TestConsensusFixtures(t *testing.T) {
	third := 1.0 / 3
	tests := []struct {
		name     string
		stakes   []int64
		matrix   [][]int64
		expected []float64
	}{
		{
			name:     "unanimous",
			stakes:   []int64{1, 1, 1},
			matrix:   [][]int64{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}},
			expected: []float64{third, third, third},
		},
		{
			name:     "one voter withholds",
			stakes:   []int64{1, 1, 1},
			matrix:   [][]int64{{1, 1, 0}, {1, 1, 1}, {1, 1, 1}},
			expected: []float64{0.3863, 0.3863, 0.2275},
		},
		{
			name:     "self voting minority",
			stakes:   []int64{1, 1, 1},
			matrix:   [][]int64{{1, 0, 0}, {0, 1, 1}, {0, 1, 1}},
			expected: []float64{0.0383, 0.4809, 0.4809},
		},
		{
			name:     "unanimous with unequal stake",
			stakes:   []int64{100, 200, 300},
			matrix:   [][]int64{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}},
			expected: []float64{third, third, third},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := datagen.RandAddresses(3)
			c := NewConsensus(newVoters(members, tt.stakes, tt.matrix), DefaultConsensusParams())

			shares, err := c.Shares(members)
			require.NoError(t, err)
			require.Len(t, shares, 3)
			assertExactSum(t, shares)
			for i := range shares {
				assert.InDelta(t, tt.expected[i], toFloat(shares[i]), 1e-4, "member %d", i)
			}
		})
	}
}

func TestConsensusScaleInvariance(t *testing.T) {
	members := datagen.RandAddresses(3)
	small := newVoters(members, []int64{1, 1, 1}, [][]int64{{1, 1, 0}, {1, 1, 1}, {1, 1, 1}})
	large := newVoters(members, []int64{5, 5, 5}, [][]int64{{7, 7, 0}, {3, 3, 3}, {9, 9, 9}})

	a, err := NewConsensus(small, DefaultConsensusParams()).Shares(members)
	require.NoError(t, err)
	b, err := NewConsensus(large, DefaultConsensusParams()).Shares(members)
	require.NoError(t, err)
	assert.Equal(t, strs(a), strs(b))
}

func TestConsensusNoOpinions(t *testing.T) {
	members := datagen.RandAddresses(4)
	v := newVoters(members, []int64{1, 1, 1, 1}, [][]int64{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}})

	shares, err := NewConsensus(v, DefaultConsensusParams()).Shares(members)
	require.NoError(t, err)
	for _, s := range shares {
		assert.Zero(t, s.Sign())
	}

	shares, err = NewConsensus(v, DefaultConsensusParams()).Shares(nil)
	require.NoError(t, err)
	assert.Empty(t, shares)
}

func TestConsensusIgnoresOutsiders(t *testing.T) {
	members := datagen.RandAddresses(2)
	outsider := datagen.RandAddress()
	v := &voters{
		stakes: map[dlp.Address]*big.Int{members[0]: dlp.Units(1), members[1]: dlp.Units(1)},
		rows: map[dlp.Address][]*big.Int{
			members[0]: {dlp.Units(1), dlp.Units(1), dlp.Units(100)},
			members[1]: {dlp.Units(1), dlp.Units(1), dlp.Units(100)},
		},
		order: []dlp.Address{members[0], members[1], outsider},
	}

	shares, err := NewConsensus(v, DefaultConsensusParams()).Shares(members)
	require.NoError(t, err)
	assertExactSum(t, shares)
	assert.InDelta(t, 0.5, toFloat(shares[0]), 1e-9)
	assert.InDelta(t, 0.5, toFloat(shares[1]), 1e-9)
}

func TestConsensusMinTrust(t *testing.T) {
	members := datagen.RandAddresses(3)
	v := newVoters(members, []int64{1, 1, 1}, [][]int64{{1, 0, 0}, {0, 1, 1}, {0, 1, 1}})
	params := DefaultConsensusParams()
	params.MinTrust = new(big.Int).Div(dlp.Unit(), big.NewInt(2))

	shares, err := NewConsensus(v, params).Shares(members)
	require.NoError(t, err)
	assertExactSum(t, shares)
	assert.Zero(t, shares[0].Sign())
	assert.InDelta(t, 0.5, toFloat(shares[1]), 1e-9)
}

type failingVoters struct{ voters }

func (failingVoters) Stake(dlp.Address) (*big.Int, error) {
	return nil, errors.New("boom")
}

func TestConsensusSourceError(t *testing.T) {
	members := datagen.RandAddresses(2)
	v := failingVoters{*newVoters(members, []int64{1, 1}, [][]int64{{1, 1}, {1, 1}})}

	_, err := NewConsensus(&v, DefaultConsensusParams()).Shares(members)
	assert.ErrorContains(t, err, "boom")
}

func TestFixedPoint(t *testing.T) {
	e := exp(new(uint256.Int).Set(one))
	assert.InDelta(t, math.E, toFloat(e.ToBig()), 1e-15)

	x := uint256.NewInt(5_812_000_000_000_000_000)
	assert.InDelta(t, math.Exp(5.812), toFloat(exp(x).ToBig()), 1e-12)
	assert.InDelta(t, math.Exp(-5.812), toFloat(expNeg(x).ToBig()), 1e-15)
	assert.True(t, expNeg(new(uint256.Int).Mul(uint256.NewInt(41), one)).IsZero())

	half := sigmoid(one, one)
	assert.Equal(t, uint64(500_000_000_000_000_000), half.Uint64())

	two := new(uint256.Int).Mul(uint256.NewInt(2), one)
	assert.InDelta(t, 1/(1+math.Exp(-1)), toFloat(sigmoid(two, one).ToBig()), 1e-15)
	assert.InDelta(t, 1/(1+math.Exp(1)), toFloat(sigmoid(one, two).ToBig()), 1e-15)
}

type scores map[dlp.Address]*big.Int

func (s scores) Score(member dlp.Address) (*big.Int, error) {
	return s[member], nil
}

func TestAttestedShares(t *testing.T) {
	members := datagen.RandAddresses(3)
	tenth := new(big.Int).Div(dlp.Unit(), big.NewInt(10))
	src := scores{
		members[0]: new(big.Int).Mul(tenth, big.NewInt(5)),
		members[1]: new(big.Int).Mul(tenth, big.NewInt(3)),
		members[2]: new(big.Int).Mul(tenth, big.NewInt(2)),
	}
	a := NewAttested(src)

	shares, err := a.Shares(members)
	require.NoError(t, err)
	assert.Equal(t, strs([]*big.Int{src[members[0]], src[members[1]], src[members[2]]}), strs(shares))

	// membership shrank since the scores were attested
	shares, err = a.Shares(members[1:])
	require.NoError(t, err)
	assertExactSum(t, shares)
	assert.InDelta(t, 0.6, toFloat(shares[0]), 1e-15)
	assert.InDelta(t, 0.4, toFloat(shares[1]), 1e-15)

	shares, err = a.Shares(datagen.RandAddresses(2))
	require.NoError(t, err)
	assert.Zero(t, dlp.Sum(shares).Sign())
}

func TestValidate(t *testing.T) {
	active := datagen.RandAddresses(3)
	third := new(big.Int).Div(dlp.Unit(), big.NewInt(3))
	last := new(big.Int).Sub(dlp.Unit(), new(big.Int).Mul(third, big.NewInt(2)))
	valid := []*big.Int{third, third, last}

	tests := []struct {
		name   string
		ids    []dlp.Address
		scores []*big.Int
		want   reverts.Name
	}{
		{"valid", active, valid, ""},
		{"valid reordered", []dlp.Address{active[2], active[0], active[1]}, valid, ""},
		{"length mismatch", active, valid[:2], reverts.ArityMismatch},
		{"missing member", active[:2], valid[:2], reverts.ArityMismatch},
		{"duplicate member", []dlp.Address{active[0], active[0], active[1]}, valid, reverts.ArityMismatch},
		{"outsider", []dlp.Address{active[0], active[1], datagen.RandAddress()}, valid, reverts.ArityMismatch},
		{"short sum", active, []*big.Int{third, third, third}, reverts.InvalidScores},
		{"negative", active, []*big.Int{dlp.Unit(), big.NewInt(-1), big.NewInt(1)}, reverts.InvalidScores},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.ids, tt.scores, active)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, reverts.Is(err, tt.want), "got %v", err)
		})
	}
}
