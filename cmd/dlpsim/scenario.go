// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math"
	"math/big"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dlpnet/dlpnet/builtin/registry"
	"github.com/dlpnet/dlpnet/dlp"
)

// Amount is a decimal token amount, e.g. "100" or "0.25", held in 18-decimal fixed point.
type Amount struct {
	big.Int
}

func (a *Amount) UnmarshalText(text []byte) error {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(string(text)))
	if !ok {
		return errors.Errorf("invalid amount %q", text)
	}
	if r.Sign() < 0 {
		return errors.Errorf("negative amount %q", text)
	}
	r.Mul(r, new(big.Rat).SetInt(dlp.Unit()))
	a.Quo(r.Num(), r.Denom())
	return nil
}

func (a *Amount) Big() *big.Int {
	if a == nil {
		return nil
	}
	return new(big.Int).Set(&a.Int)
}

func amounts(list []*Amount) []*big.Int {
	out := make([]*big.Int, len(list))
	for i, a := range list {
		out[i] = a.Big()
	}
	return out
}

// RegistryGenesis configures one registry at genesis. Unset fields take the registry defaults.
type RegistryGenesis struct {
	Owner           dlp.Address `yaml:"owner"`
	StartBlock      uint64      `yaml:"startBlock"`
	EpochSize       uint64      `yaml:"epochSize"`
	EpochReward     *Amount     `yaml:"epochReward"`
	MinStake        *Amount     `yaml:"minStake"`
	MaxParticipants uint64      `yaml:"maxParticipants"`
	Rho             *Amount     `yaml:"rho"`
	Kappa           *Amount     `yaml:"kappa"`
	MinTrust        *Amount     `yaml:"minTrust"`
}

func (g *RegistryGenesis) config() registry.Config {
	return registry.Config{
		StartBlock:        g.StartBlock,
		EpochSize:         g.EpochSize,
		EpochRewardAmount: g.EpochReward.Big(),
		MinStake:          g.MinStake.Big(),
		MaxParticipants:   g.MaxParticipants,
		Rho:               g.Rho.Big(),
		Kappa:             g.Kappa.Big(),
		MinTrust:          g.MinTrust.Big(),
	}
}

// Step is one operation applied at a block height.
type Step struct {
	Block    uint64        `yaml:"block"`
	Registry string        `yaml:"registry"`
	Op       string        `yaml:"op"`
	Caller   dlp.Address   `yaml:"caller"`
	Identity dlp.Address   `yaml:"identity"`
	Owner    dlp.Address   `yaml:"owner"`
	To       dlp.Address   `yaml:"to"`
	Name     string        `yaml:"name"`
	Amount   *Amount       `yaml:"amount"`
	Epoch    uint64        `yaml:"epoch"`
	Until    uint64        `yaml:"until"`
	Size     uint64        `yaml:"size"`
	Targets  []dlp.Address `yaml:"targets"`
	Values   []*Amount     `yaml:"values"`
	Rejects  *bool         `yaml:"rejects"`
	Expect   string        `yaml:"expect"` // name of the revert the step must fail with
}

// Scenario is a genesis plus an ordered list of steps.
type Scenario struct {
	Accounts   map[dlp.Address]*Amount     `yaml:"accounts"`
	Registries map[string]*RegistryGenesis `yaml:"registries"`
	Steps      []*Step                     `yaml:"steps"`
}

func parseKind(s string) (registry.Kind, error) {
	switch s {
	case registry.KindValidator.String():
		return registry.KindValidator, nil
	case registry.KindPool.String():
		return registry.KindPool, nil
	default:
		return 0, errors.Errorf("unknown registry %q", s)
	}
}

// Validate checks the scenario is well formed before anything is executed.
func (s *Scenario) Validate() error {
	if len(s.Registries) == 0 {
		return errors.New("no registry configured")
	}
	for name, g := range s.Registries {
		if _, err := parseKind(name); err != nil {
			return err
		}
		if g == nil || g.Owner.IsZero() {
			return errors.Errorf("registry %v: owner required", name)
		}
	}
	var last uint64
	for i, step := range s.Steps {
		if step.Block < last {
			return errors.Errorf("step %d: block %d before %d", i, step.Block, last)
		}
		if step.Block > math.MaxUint32 {
			return errors.Errorf("step %d: block %d out of range", i, step.Block)
		}
		last = step.Block
		op, ok := operations[step.Op]
		if !ok {
			return errors.Errorf("step %d: unknown op %q", i, step.Op)
		}
		if op.registry {
			if _, ok := s.Registries[step.Registry]; !ok {
				return errors.Errorf("step %d: registry %q not configured", i, step.Registry)
			}
		}
	}
	return nil
}

func parseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "decode scenario")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario")
	}
	return parseScenario(data)
}
