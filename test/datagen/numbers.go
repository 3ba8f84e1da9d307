// Copyright (c) 2024 The VeChainThor developers
// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package datagen

import (
	"math/big"
	mathrand "math/rand/v2"

	"github.com/dlpnet/dlpnet/dlp"
)

func RandInt() int {
	return mathrand.Int() //#nosec G404
}

func RandIntN(n int) int {
	return mathrand.N(n) //#nosec G404
}

// RandUnits returns a random amount between min and max whole units, inclusive.
func RandUnits(min, max int64) *big.Int {
	return dlp.Units(min + mathrand.Int64N(max-min+1)) //#nosec G404
}
