// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package datagen

import (
	"crypto/rand"

	"github.com/dlpnet/dlpnet/dlp"
)

func RandAddress() (addr dlp.Address) {
	rand.Read(addr[:])
	return
}

func RandAddresses(n int) []dlp.Address {
	addrs := make([]dlp.Address, n)
	for i := range addrs {
		addrs[i] = RandAddress()
	}
	return addrs
}
