// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlpnet/dlpnet/dlp"
)

var (
	ownerAddr      = dlp.MustParseAddress("0x00000000000000000000000000000000000000f0")
	aliceAddr      = dlp.MustParseAddress("0x00000000000000000000000000000000000000a1")
	aliceOwnerAddr = dlp.MustParseAddress("0x00000000000000000000000000000000000000a0")
	bobAddr        = dlp.MustParseAddress("0x00000000000000000000000000000000000000b1")
	bobOwnerAddr   = dlp.MustParseAddress("0x00000000000000000000000000000000000000b0")
	donorAddr      = dlp.MustParseAddress("0x00000000000000000000000000000000000000d0")
)

const poolScenario = `
accounts:
  "0x00000000000000000000000000000000000000a0": 100
  "0x00000000000000000000000000000000000000b0": 100
  "0x00000000000000000000000000000000000000d0": 1000
registries:
  pool:
    owner: "0x00000000000000000000000000000000000000f0"
    epochSize: 10
    epochReward: 100
    minStake: 100
steps:
  - block: 1
    registry: pool
    op: register
    caller: "0x00000000000000000000000000000000000000a0"
    identity: "0x00000000000000000000000000000000000000a1"
    amount: 100
    name: alice
  - block: 1
    registry: pool
    op: register
    caller: "0x00000000000000000000000000000000000000b0"
    identity: "0x00000000000000000000000000000000000000b1"
    amount: 100
    name: bob
  - block: 1
    registry: pool
    op: approve
    identity: "0x00000000000000000000000000000000000000a1"
  - block: 1
    registry: pool
    op: approve
    identity: "0x00000000000000000000000000000000000000b1"
  - block: 1
    registry: pool
    op: approve
    identity: "0x00000000000000000000000000000000000000b1"
    expect: InvalidDlpStatus
  - block: 1
    registry: pool
    op: updateScores
    targets:
      - "0x00000000000000000000000000000000000000a1"
      - "0x00000000000000000000000000000000000000b1"
    values: ["0.25", "0.75"]
  - block: 1
    registry: pool
    op: updateScores
    caller: "0x00000000000000000000000000000000000000d0"
    targets: ["0x00000000000000000000000000000000000000a1"]
    values: [1]
    expect: OwnableUnauthorizedAccount
  - block: 2
    registry: pool
    op: addRewardPool
    caller: "0x00000000000000000000000000000000000000d0"
    amount: 1000
  - block: 19
    registry: pool
    op: createEpochs
`

func percent(n int64) *big.Int {
	return new(big.Int).Div(dlp.Units(n), big.NewInt(100))
}

func TestParseScenario(t *testing.T) {
	s, err := parseScenario([]byte(poolScenario))
	require.NoError(t, err)

	assert.Len(t, s.Accounts, 3)
	assert.Equal(t, dlp.Units(1000), s.Accounts[donorAddr].Big())

	require.Contains(t, s.Registries, "pool")
	cfg := s.Registries["pool"].config()
	assert.Equal(t, ownerAddr, s.Registries["pool"].Owner)
	assert.Equal(t, uint64(10), cfg.EpochSize)
	assert.Equal(t, dlp.Units(100), cfg.EpochRewardAmount)
	assert.Equal(t, dlp.Units(100), cfg.MinStake)
	assert.Nil(t, cfg.Rho, "unset fields keep registry defaults")

	require.Len(t, s.Steps, 9)
	register := s.Steps[0]
	assert.Equal(t, "register", register.Op)
	assert.Equal(t, aliceOwnerAddr, register.Caller)
	assert.Equal(t, aliceAddr, register.Identity)
	assert.Equal(t, "alice", register.Name)

	scores := s.Steps[5]
	assert.Equal(t, []dlp.Address{aliceAddr, bobAddr}, scores.Targets)
	assert.Equal(t, []*big.Int{percent(25), percent(75)}, amounts(scores.Values))
	assert.Equal(t, "InvalidDlpStatus", s.Steps[4].Expect)
}

func TestAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    *big.Int
		wantErr bool
	}{
		{"100", dlp.Units(100), false},
		{" 7 ", dlp.Units(7), false},
		{"0.25", percent(25), false},
		{"0.000000000000000001", big.NewInt(1), false},
		{"0", big.NewInt(0), false},
		{"-1", nil, true},
		{"abc", nil, true},
		{"", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var a Amount
			err := a.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0, tt.want.Cmp(a.Big()), "got %v", a.Big())
		})
	}

	var nilAmount *Amount
	assert.Nil(t, nilAmount.Big())
}

func TestValidateScenario(t *testing.T) {
	const owner = `"0x00000000000000000000000000000000000000f0"`
	tests := []struct {
		name string
		yaml string
	}{
		{"no registries", `steps: []`},
		{"unknown registry kind", "registries:\n  miner:\n    owner: " + owner},
		{"missing owner", "registries:\n  pool:\n    epochSize: 10"},
		{"blocks go back", "registries:\n  pool:\n    owner: " + owner + "\nsteps:\n  - {block: 5, registry: pool, op: createEpochs}\n  - {block: 4, registry: pool, op: createEpochs}"},
		{"unknown op", "registries:\n  pool:\n    owner: " + owner + "\nsteps:\n  - {block: 1, registry: pool, op: explode}"},
		{"registry not configured", "registries:\n  pool:\n    owner: " + owner + "\nsteps:\n  - {block: 1, registry: validator, op: createEpochs}"},
		{"bad amount", "registries:\n  pool:\n    owner: " + owner + "\n    minStake: lots"},
		{"bad address", "registries:\n  pool:\n    owner: \"0x01\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseScenario([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := parseScenario([]byte("registries:\n  pool:\n    owner: " + owner + "\nsteps:\n  - {block: 1, op: mint, to: " + owner + ", amount: 5}"))
	assert.NoError(t, err, "bank steps need no registry")
}
