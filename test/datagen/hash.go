// Copyright (c) 2024 The VeChainThor developers
// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package datagen

import (
	"crypto/rand"

	"github.com/dlpnet/dlpnet/dlp"
)

func RandomHash() dlp.Bytes32 {
	var b32 dlp.Bytes32

	rand.Read(b32[:])
	return b32
}
