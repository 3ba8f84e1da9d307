// Copyright (c) 2018 The VeChainThor developers
// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/kv"
)

// Account is the persisted representation of an account.
// RLP encoded objects are stored in the account bucket.
type Account struct {
	Balance *big.Int
}

// IsEmpty returns if an account is empty.
func (a *Account) IsEmpty() bool {
	return a.Balance.Sign() == 0
}

func emptyAccount() *Account {
	return &Account{Balance: &big.Int{}}
}

// loadAccount load an account object by address from the account bucket.
// If the given address not found, an empty account returned.
func loadAccount(getter kv.Getter, addr dlp.Address) (*Account, error) {
	data, err := getter.Get(addr[:])
	if err != nil {
		if getter.IsNotFound(err) {
			return emptyAccount(), nil
		}
		return nil, err
	}
	var a Account
	if err := rlp.DecodeBytes(data, &a); err != nil {
		return nil, errors.Wrap(err, "decode account")
	}
	return &a, nil
}

// saveAccount save account into the account bucket.
// An empty account is deleted.
func saveAccount(putter kv.Putter, addr dlp.Address, a *Account) error {
	if a.IsEmpty() {
		return putter.Delete(addr[:])
	}
	data, err := rlp.EncodeToBytes(a)
	if err != nil {
		return errors.Wrap(err, "encode account")
	}
	return putter.Put(addr[:], data)
}
