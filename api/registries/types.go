// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registries

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/dlpnet/dlpnet/builtin/epoch"
	"github.com/dlpnet/dlpnet/builtin/registry"
	"github.com/dlpnet/dlpnet/builtin/reward"
	"github.com/dlpnet/dlpnet/dlp"
)

type Config struct {
	StartBlock        uint64                `json:"startBlock"`
	EpochSize         uint64                `json:"epochSize"`
	EpochRewardAmount *math.HexOrDecimal256 `json:"epochRewardAmount"`
	MinStake          *math.HexOrDecimal256 `json:"minStake"`
	MaxParticipants   uint64                `json:"maxParticipants"`
	Rho               *math.HexOrDecimal256 `json:"rho"`
	Kappa             *math.HexOrDecimal256 `json:"kappa"`
	MinTrust          *math.HexOrDecimal256 `json:"minTrust"`
}

// Summary describes the overall state of a registry.
type Summary struct {
	Kind              string                `json:"kind"`
	Address           dlp.Address           `json:"address"`
	Owner             dlp.Address           `json:"owner"`
	Paused            bool                  `json:"paused"`
	ParticipantsCount uint64                `json:"participantsCount"`
	Active            []dlp.Address         `json:"active"`
	EpochsCount       uint64                `json:"epochsCount"`
	CurrentEpoch      *Epoch                `json:"currentEpoch"`
	RewardPool        *math.HexOrDecimal256 `json:"rewardPool"`
	Reclaimable       *math.HexOrDecimal256 `json:"reclaimable"`
	Config            *Config               `json:"config"`
}

type Participant struct {
	Identity         dlp.Address           `json:"identity"`
	Owner            dlp.Address           `json:"owner"`
	Name             string                `json:"name"`
	Status           string                `json:"status"`
	Stake            *math.HexOrDecimal256 `json:"stake"`
	Granted          *math.HexOrDecimal256 `json:"granted"`
	FirstActiveBlock uint64                `json:"firstActiveBlock"`
	LastActiveBlock  uint64                `json:"lastActiveBlock"`
	Score            *math.HexOrDecimal256 `json:"score"`
	Weights          *WeightRow            `json:"weights,omitempty"`
}

type WeightRow struct {
	Targets []dlp.Address            `json:"targets"`
	Weights []*math.HexOrDecimal256 `json:"weights"`
}

type Epoch struct {
	ID           uint64                `json:"id"`
	StartBlock   uint64                `json:"startBlock"`
	EndBlock     uint64                `json:"endBlock"`
	RewardAmount *math.HexOrDecimal256 `json:"rewardAmount"`
	SnapshotID   uint64                `json:"snapshotId"`
	Finalized    bool                  `json:"finalized"`
	Members      []dlp.Address         `json:"members"`
}

type RewardEntry struct {
	Participant dlp.Address           `json:"participant"`
	Score       *math.HexOrDecimal256 `json:"score"`
	Amount      *math.HexOrDecimal256 `json:"amount"`
	Withdrawn   *math.HexOrDecimal256 `json:"withdrawn"`
}

type EpochReward struct {
	EpochID uint64                `json:"epochId"`
	Total   *math.HexOrDecimal256 `json:"total"`
	Paid    *math.HexOrDecimal256 `json:"paid"`
	Entries []RewardEntry         `json:"entries"`
}

type Unclaimed struct {
	EpochID     uint64                `json:"epochId"`
	Participant dlp.Address           `json:"participant"`
	Amount      *math.HexOrDecimal256 `json:"amount"`
}

func hex256(v *big.Int) *math.HexOrDecimal256 {
	if v == nil {
		v = new(big.Int)
	}
	return (*math.HexOrDecimal256)(new(big.Int).Set(v))
}

func convertConfig(c *registry.Config) *Config {
	return &Config{
		StartBlock:        c.StartBlock,
		EpochSize:         c.EpochSize,
		EpochRewardAmount: hex256(c.EpochRewardAmount),
		MinStake:          hex256(c.MinStake),
		MaxParticipants:   c.MaxParticipants,
		Rho:               hex256(c.Rho),
		Kappa:             hex256(c.Kappa),
		MinTrust:          hex256(c.MinTrust),
	}
}

func convertParticipant(p *registry.Participant, row *registry.WeightRow) *Participant {
	out := &Participant{
		Identity:         p.Identity,
		Owner:            p.Owner,
		Name:             p.Name,
		Status:           p.Status.String(),
		Stake:            hex256(p.StakeAmount),
		Granted:          hex256(p.GrantedAmount),
		FirstActiveBlock: p.FirstActiveBlock,
		LastActiveBlock:  p.LastActiveBlock,
		Score:            hex256(p.Score),
	}
	if row != nil {
		out.Weights = &WeightRow{Targets: row.Targets, Weights: make([]*math.HexOrDecimal256, len(row.Weights))}
		for i, w := range row.Weights {
			out.Weights.Weights[i] = hex256(w)
		}
	}
	return out
}

func convertEpoch(e *epoch.Epoch, members []dlp.Address) *Epoch {
	if members == nil {
		members = []dlp.Address{}
	}
	return &Epoch{
		ID:           e.ID,
		StartBlock:   e.StartBlock,
		EndBlock:     e.EndBlock,
		RewardAmount: hex256(e.RewardAmount),
		SnapshotID:   uint64(e.SnapshotID),
		Finalized:    e.Finalized,
		Members:      members,
	}
}

func convertEpochReward(id uint64, r *reward.EpochReward) *EpochReward {
	out := &EpochReward{
		EpochID: id,
		Total:   hex256(r.Total()),
		Paid:    hex256(r.Paid()),
		Entries: make([]RewardEntry, len(r.Participants)),
	}
	for i, p := range r.Participants {
		out.Entries[i] = RewardEntry{
			Participant: p,
			Score:       hex256(r.Scores[i]),
			Amount:      hex256(r.Amounts[i]),
			Withdrawn:   hex256(r.Withdrawn[i]),
		}
	}
	return out
}
