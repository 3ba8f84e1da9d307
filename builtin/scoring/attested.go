// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package scoring

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/dlp"
)

// ScoreSource exposes the last attested score of a member.
type ScoreSource interface {
	Score(member dlp.Address) (*big.Int, error)
}

// Attested serves scores submitted by a trusted party.
type Attested struct {
	scores ScoreSource
}

func NewAttested(scores ScoreSource) *Attested {
	return &Attested{scores: scores}
}

// Shares returns the stored scores, rescaled to 1e18 when the stored values
// no longer sum to it over the given members.
func (a *Attested) Shares(members []dlp.Address) ([]*big.Int, error) {
	values := make([]*uint256.Int, len(members))
	for i, m := range members {
		score, err := a.scores.Score(m)
		if err != nil {
			return nil, errors.Wrap(err, "get score")
		}
		if values[i], err = fromBig(score); err != nil {
			return nil, err
		}
	}
	return normalize(values), nil
}

// Validate checks a score submission against the active membership.
// The ids must cover the active set exactly once and the scores must sum to 1e18.
func Validate(ids []dlp.Address, scores []*big.Int, active []dlp.Address) error {
	if len(ids) != len(scores) {
		return reverts.Newf(reverts.ArityMismatch, "%d ids, %d scores", len(ids), len(scores))
	}
	if len(ids) != len(active) {
		return reverts.Newf(reverts.ArityMismatch, "%d ids, %d active participants", len(ids), len(active))
	}

	pending := make(map[dlp.Address]struct{}, len(active))
	for _, addr := range active {
		pending[addr] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := pending[id]; !ok {
			return reverts.Newf(reverts.ArityMismatch, "unexpected or duplicate id %v", id)
		}
		delete(pending, id)
	}

	total := new(big.Int)
	for _, s := range scores {
		if s == nil || s.Sign() < 0 {
			return reverts.New(reverts.InvalidScores, "negative score")
		}
		total.Add(total, s)
	}
	if total.Cmp(dlp.Unit()) != 0 {
		return reverts.Newf(reverts.InvalidScores, "scores sum to %v", total)
	}
	return nil
}
