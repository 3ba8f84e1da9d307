// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/dlpnet/dlpnet/dlp"
)

// Address is a wrapper for storage and retrieval of an address. Similar to storing an address in a smart contract.
type Address struct {
	context *Context
	pos     dlp.Bytes32
}

func NewAddress(context *Context, pos dlp.Bytes32) *Address {
	return &Address{context: context, pos: pos}
}

func (a *Address) Get() (dlp.Address, error) {
	storage, err := a.context.state.GetStorage(a.context.address, a.pos)
	if err != nil {
		return dlp.Address{}, err
	}
	return dlp.BytesToAddress(storage.Bytes()), nil
}

func (a *Address) Set(addr *dlp.Address) {
	var storage dlp.Bytes32
	if addr != nil {
		storage = dlp.BytesToBytes32(addr.Bytes())
	}
	a.context.state.SetStorage(a.context.address, a.pos, storage)
}

// Bool is a wrapper for storage and retrieval of a flag.
type Bool struct {
	context *Context
	pos     dlp.Bytes32
}

func NewBool(context *Context, pos dlp.Bytes32) *Bool {
	return &Bool{context: context, pos: pos}
}

func (b *Bool) Get() (bool, error) {
	storage, err := b.context.state.GetStorage(b.context.address, b.pos)
	if err != nil {
		return false, err
	}
	return !storage.IsZero(), nil
}

func (b *Bool) Set(v bool) {
	var storage dlp.Bytes32
	if v {
		storage[31] = 1
	}
	b.context.state.SetStorage(b.context.address, b.pos, storage)
}
