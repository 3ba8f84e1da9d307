// Copyright (c) 2018 The VeChainThor developers
// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/dlpnet/dlpnet/dlp"
)

type contract struct {
	name    string
	Address dlp.Address
}

func newContract(name string) *contract {
	return &contract{
		name,
		dlp.BytesToAddress([]byte(name)),
	}
}

func (c *contract) Name() string {
	return c.name
}
