// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package scoring

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/dlpnet/dlpnet/dlp"
)

// Voters exposes the stake and the opinion row of each member.
type Voters interface {
	Stake(member dlp.Address) (*big.Int, error)
	WeightRow(member dlp.Address) (targets []dlp.Address, weights []*big.Int, err error)
}

type ConsensusParams struct {
	Rho      *big.Int
	Kappa    *big.Int
	MinTrust *big.Int
}

func DefaultConsensusParams() ConsensusParams {
	return ConsensusParams{
		Rho:      new(big.Int).Set(dlp.InitialRho),
		Kappa:    new(big.Int).Set(dlp.InitialKappa),
		MinTrust: new(big.Int).Set(dlp.InitialMinTrust),
	}
}

// Consensus derives shares from stake weighted peer opinions.
// A member is rewarded by the stake backed rank it receives, damped by a sigmoid
// of the stake fraction that supports it at all.
type Consensus struct {
	voters Voters
	params ConsensusParams
}

func NewConsensus(voters Voters, params ConsensusParams) *Consensus {
	return &Consensus{voters: voters, params: params}
}

func (c *Consensus) Shares(members []dlp.Address) ([]*big.Int, error) {
	n := len(members)
	if n == 0 {
		return nil, nil
	}
	rho, err := fromBig(c.params.Rho)
	if err != nil {
		return nil, errors.WithMessage(err, "rho")
	}
	kappa, err := fromBig(c.params.Kappa)
	if err != nil {
		return nil, errors.WithMessage(err, "kappa")
	}
	minTrust, err := fromBig(c.params.MinTrust)
	if err != nil {
		return nil, errors.WithMessage(err, "min trust")
	}

	index := make(map[dlp.Address]int, n)
	for i, m := range members {
		index[m] = i
	}

	rows := make([][]*uint256.Int, n)
	stakes := make([]*uint256.Int, n)
	totalStake := new(uint256.Int)
	for i, m := range members {
		row, err := c.scaledRow(m, index)
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}
		stake, err := c.voters.Stake(m)
		if err != nil {
			return nil, errors.Wrap(err, "get stake")
		}
		if stakes[i], err = fromBig(stake); err != nil {
			return nil, err
		}
		rows[i] = row
		totalStake.Add(totalStake, stakes[i])
	}
	if totalStake.IsZero() {
		logger.Debug("no voting stake", "members", n)
		return zeros(n), nil
	}

	rank := make([]*uint256.Int, n)
	trust := make([]*uint256.Int, n)
	for j := range members {
		rank[j] = new(uint256.Int)
		trust[j] = new(uint256.Int)
	}
	for i, row := range rows {
		if row == nil {
			continue
		}
		s := div(stakes[i], totalStake)
		for j, w := range row {
			if w.IsZero() {
				continue
			}
			rank[j].Add(rank[j], mul(s, w))
			trust[j].Add(trust[j], s)
		}
	}

	incentive := make([]*uint256.Int, n)
	for j := range members {
		if trust[j].IsZero() || trust[j].Cmp(minTrust) < 0 {
			incentive[j] = new(uint256.Int)
			continue
		}
		z := mul(rho, trust[j])
		bias := mul(rho, kappa)
		incentive[j] = mul(rank[j], sigmoid(z, bias))
	}
	return normalize(incentive), nil
}

// scaledRow returns the member's opinions aligned to the member list and scaled
// so the largest entry is 1e18. It returns nil when the member expresses no opinion.
func (c *Consensus) scaledRow(member dlp.Address, index map[dlp.Address]int) ([]*uint256.Int, error) {
	targets, weights, err := c.voters.WeightRow(member)
	if err != nil {
		return nil, errors.Wrap(err, "get weights")
	}
	if len(targets) != len(weights) {
		return nil, errors.Errorf("weight row of %v: %d targets, %d weights", member, len(targets), len(weights))
	}

	row := make([]*uint256.Int, len(index))
	for j := range row {
		row[j] = new(uint256.Int)
	}
	peak := new(uint256.Int)
	for k, target := range targets {
		j, ok := index[target]
		if !ok {
			continue
		}
		w, err := fromBig(weights[k])
		if err != nil {
			return nil, err
		}
		row[j] = w
	}
	for _, w := range row {
		if w.Cmp(peak) > 0 {
			peak = w
		}
	}
	if peak.IsZero() {
		return nil, nil
	}
	for j, w := range row {
		row[j] = div(w, peak)
	}
	return row, nil
}
