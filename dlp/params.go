// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dlp

import "math/big"

// Defaults of registry params. All of them can be changed by the registry owner.
const (
	BlockInterval uint64 = 6 // seconds between two consecutive blocks.

	InitialEpochSize uint32 = 1200 // blocks per epoch, about 2 hours.
)

var (
	InitialMinStake          = Units(100)
	InitialEpochRewardAmount = Units(1000)

	// consensus correction: sigmoid(rho * (trust - kappa)), targets below minTrust get nothing.
	InitialRho      = new(big.Int).Mul(big.NewInt(11_438), big.NewInt(1e15)) // 11.438
	InitialKappa    = new(big.Int).Mul(big.NewInt(4_919), big.NewInt(1e14))  // 0.4919
	InitialMinTrust = big.NewInt(0)
)
