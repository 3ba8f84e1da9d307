// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package bank moves native value between accounts.
package bank

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/builtin/solidity"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/log"
	"github.com/dlpnet/dlpnet/state"
)

var logger = log.WithContext("pkg", "bank")

var (
	slotTotalSupply = dlp.BytesToBytes32([]byte("total-supply"))
	slotRejecting   = dlp.BytesToBytes32([]byte("rejecting"))
)

type Bank struct {
	state       *state.State
	totalSupply *solidity.Uint256
	rejecting   *solidity.Mapping[dlp.Address, bool]
}

func New(addr dlp.Address, state *state.State) *Bank {
	ctx := solidity.NewContext(addr, state)
	return &Bank{
		state:       state,
		totalSupply: solidity.NewUint256(ctx, slotTotalSupply),
		rejecting:   solidity.NewMapping[dlp.Address, bool](ctx, slotRejecting),
	}
}

// GetBalance returns the native balance of addr.
func (b *Bank) GetBalance(addr dlp.Address) (*big.Int, error) {
	return b.state.GetBalance(addr)
}

// TotalSupply returns the amount minted so far.
func (b *Bank) TotalSupply() (*big.Int, error) {
	return b.totalSupply.Get()
}

// Mint creates amount out of nothing and credits it to addr.
func (b *Bank) Mint(to dlp.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.Newf(reverts.InvalidParam, "negative mint amount %v", amount)
	}
	if err := b.credit(to, amount); err != nil {
		return err
	}
	return b.totalSupply.Add(amount)
}

// Transfer moves amount from one account to another.
// It fails with TransferRejected when the recipient refuses inbound value.
func (b *Bank) Transfer(from, to dlp.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.Newf(reverts.InvalidParam, "negative transfer amount %v", amount)
	}
	rejecting, err := b.IsRejecting(to)
	if err != nil {
		return err
	}
	if rejecting {
		logger.Debug("transfer rejected", "from", from, "to", to, "amount", amount)
		return reverts.Newf(reverts.TransferRejected, "recipient %v refuses value", to)
	}

	bal, err := b.state.GetBalance(from)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return reverts.Newf(reverts.InsufficientBalance, "%v has %v, needs %v", from, bal, amount)
	}
	if err := b.state.SetBalance(from, bal.Sub(bal, amount)); err != nil {
		return err
	}
	return b.credit(to, amount)
}

// SetRejecting marks addr as refusing (or accepting again) inbound transfers.
func (b *Bank) SetRejecting(addr dlp.Address, rejecting bool) error {
	if !rejecting {
		b.rejecting.Delete(addr)
		return nil
	}
	return errors.WithMessage(b.rejecting.Set(addr, true), "set rejecting")
}

func (b *Bank) IsRejecting(addr dlp.Address) (bool, error) {
	rejecting, err := b.rejecting.Get(addr)
	if err != nil {
		return false, errors.WithMessage(err, "get rejecting")
	}
	return rejecting, nil
}

func (b *Bank) credit(to dlp.Address, amount *big.Int) error {
	bal, err := b.state.GetBalance(to)
	if err != nil {
		return err
	}
	return b.state.SetBalance(to, bal.Add(bal, amount))
}
