// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"fmt"
	"math/big"

	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/dlp"
)

// Kind selects how a registry scores its members.
type Kind uint8

const (
	// KindValidator members score each other through weight rows.
	KindValidator Kind = iota + 1
	// KindPool members are scored by the registry owner.
	KindPool
)

func (k Kind) String() string {
	switch k {
	case KindValidator:
		return "validator"
	case KindPool:
		return "pool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// statusRevert is the revert name for illegal transitions of this kind.
func (k Kind) statusRevert() reverts.Name {
	if k == KindPool {
		return reverts.InvalidDlpStatus
	}
	return reverts.InvalidStatus
}

type Status uint8

const (
	StatusNone Status = iota
	StatusRegistered
	StatusActive
	StatusInactive
	StatusDeregistered
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "None"
	case StatusRegistered:
		return "Registered"
	case StatusActive:
		return "Active"
	case StatusInactive:
		return "Inactive"
	case StatusDeregistered:
		return "Deregistered"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

type Participant struct {
	Identity         dlp.Address
	Owner            dlp.Address
	Name             string
	Status           Status
	StakeAmount      *big.Int
	GrantedAmount    *big.Int
	FirstActiveBlock uint64
	LastActiveBlock  uint64
	Score            *big.Int
}

// IsEmpty returns whether the entry exists or not.
func (p *Participant) IsEmpty() bool {
	return p == nil || p.Status == StatusNone
}

// OwnStake returns the part of the stake funded by the participant owner.
func (p *Participant) OwnStake() *big.Int {
	return new(big.Int).Sub(p.StakeAmount, p.GrantedAmount)
}

// WeightRow is the opinion of a validator about its peers.
type WeightRow struct {
	Targets []dlp.Address
	Weights []*big.Int
}

// Config holds the tunable parameters of a registry.
type Config struct {
	StartBlock        uint64
	EpochSize         uint64
	EpochRewardAmount *big.Int
	MinStake          *big.Int
	MaxParticipants   uint64 // 0 means unlimited
	Rho               *big.Int
	Kappa             *big.Int
	MinTrust          *big.Int
}

func (k Kind) transitionErr(identity dlp.Address, from, to Status) error {
	return reverts.Newf(k.statusRevert(), "%v: %v -> %v", identity, from, to)
}
