// Copyright (c) 2025 The VeChainThor developers
// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/state"
)

// Context binds storage helpers to a contract address and a state.
type Context struct {
	address dlp.Address
	state   *state.State
}

func NewContext(address dlp.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) Address() dlp.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}
