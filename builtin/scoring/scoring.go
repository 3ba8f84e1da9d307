// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package scoring turns participant opinions into per-epoch emission shares.
// Shares are 1e18 fixed point values which either sum to exactly 1e18 or are all zero.
package scoring

import (
	"math/big"

	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/log"
)

var logger = log.WithContext("pkg", "scoring")

// Provider computes the emission shares of an ordered member list.
type Provider interface {
	Shares(members []dlp.Address) ([]*big.Int, error)
}

func zeros(n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		out[i] = new(big.Int)
	}
	return out
}
