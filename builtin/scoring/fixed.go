// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package scoring

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// 18 decimals fixed point helpers. All values are non-negative.

var (
	one = uint256.NewInt(1_000_000_000_000_000_000)
	// ln(2) * 1e18
	ln2 = uint256.NewInt(693_147_180_559_945_309)
	// exp(-x) is below 1e-17 from here on
	expCutoff = new(uint256.Int).Mul(uint256.NewInt(40), one)
)

func fromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, errors.Errorf("negative value %v", v)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, errors.Errorf("value %v overflows uint256", v)
	}
	return u, nil
}

// mul returns a*b/1e18.
func mul(a, b *uint256.Int) *uint256.Int {
	z, _ := new(uint256.Int).MulDivOverflow(a, b, one)
	return z
}

// div returns a*1e18/b. b must not be zero.
func div(a, b *uint256.Int) *uint256.Int {
	z, _ := new(uint256.Int).MulDivOverflow(a, one, b)
	return z
}

// exp returns e^x for 0 <= x < 40.
func exp(x *uint256.Int) *uint256.Int {
	// x = k*ln2 + r, 0 <= r < ln2
	k := new(uint256.Int).Div(x, ln2)
	r := new(uint256.Int).Sub(x, new(uint256.Int).Mul(k, ln2))

	// taylor series of e^r, terms shrink below one unit quickly since r < 0.7
	sum := new(uint256.Int).Set(one)
	term := new(uint256.Int).Set(one)
	for n := uint64(1); !term.IsZero(); n++ {
		term = mul(term, r)
		term.Div(term, uint256.NewInt(n))
		sum.Add(sum, term)
	}
	return sum.Lsh(sum, uint(k.Uint64()))
}

// expNeg returns e^-x.
func expNeg(x *uint256.Int) *uint256.Int {
	if x.Cmp(expCutoff) >= 0 {
		return new(uint256.Int)
	}
	return div(one, exp(x))
}

// sigmoid returns 1/(1+e^-z) where z = a - b may be negative.
func sigmoid(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) >= 0 {
		e := expNeg(new(uint256.Int).Sub(a, b))
		return div(one, new(uint256.Int).Add(one, e))
	}
	// sigmoid(-z) = e^-z / (1+e^-z)
	e := expNeg(new(uint256.Int).Sub(b, a))
	return div(e, new(uint256.Int).Add(one, e))
}

// normalize scales values to sum to exactly 1e18. The last non-zero entry absorbs the rounding dust.
// All-zero input yields all-zero output.
func normalize(values []*uint256.Int) []*big.Int {
	total := new(uint256.Int)
	last := -1
	for i, v := range values {
		total.Add(total, v)
		if !v.IsZero() {
			last = i
		}
	}

	shares := make([]*big.Int, len(values))
	if total.IsZero() {
		for i := range shares {
			shares[i] = new(big.Int)
		}
		return shares
	}

	assigned := new(uint256.Int)
	for i, v := range values {
		s := div(v, total)
		if i == last {
			s = new(uint256.Int).Sub(one, assigned)
		}
		assigned.Add(assigned, s)
		shares[i] = s.ToBig()
	}
	return shares
}
