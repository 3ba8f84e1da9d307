// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dlp

import (
	"math/big"
)

// Decimals of every fixed-point value: token amounts, scores and shares.
const Decimals = 18

var unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// Unit returns 1.0 in 18-decimal fixed point (10^18). The returned value is a copy.
func Unit() *big.Int {
	return new(big.Int).Set(unit)
}

// Units converts a whole number of units to its fixed-point representation.
func Units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), unit)
}

// ToUnits truncates a fixed-point value to whole units, for logging.
func ToUnits(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Quo(v, unit)
}

// MulUnit returns amount * fraction / 10^18, rounding down.
func MulUnit(amount, fraction *big.Int) *big.Int {
	r := new(big.Int).Mul(amount, fraction)
	return r.Quo(r, unit)
}

// Sum adds up the values, treating nil as zero.
func Sum(values []*big.Int) *big.Int {
	total := big.NewInt(0)
	for _, v := range values {
		if v != nil {
			total.Add(total, v)
		}
	}
	return total
}
