// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/dlpnet/dlpnet/builtin/bank"
	"github.com/dlpnet/dlpnet/builtin/registry"
	"github.com/dlpnet/dlpnet/state"
)

// Builtin contracts binding.
var (
	Bank              = &bankContract{newContract("Bank")}
	ValidatorRegistry = &registryContract{newContract("ValidatorRegistry"), registry.KindValidator}
	PoolRegistry      = &registryContract{newContract("PoolRegistry"), registry.KindPool}
)

type (
	bankContract     struct{ *contract }
	registryContract struct {
		*contract
		kind registry.Kind
	}
)

func (b *bankContract) WithState(state *state.State) *bank.Bank {
	return bank.New(b.Address, state)
}

func (r *registryContract) WithState(state *state.State) *registry.Registry {
	return registry.New(r.kind, r.Address, state, Bank.WithState(state))
}

// Registry returns the contract binding of the given kind.
func Registry(kind registry.Kind) *registryContract {
	if kind == registry.KindPool {
		return PoolRegistry
	}
	return ValidatorRegistry
}
