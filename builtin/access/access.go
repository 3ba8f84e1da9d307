// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package access guards builtin contracts with an owner and a pause switch.
package access

import (
	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/builtin/solidity"
	"github.com/dlpnet/dlpnet/dlp"
)

var (
	slotOwner  = dlp.BytesToBytes32([]byte("access-owner"))
	slotPaused = dlp.BytesToBytes32([]byte("access-paused"))
)

type Access struct {
	owner  *solidity.Address
	paused *solidity.Bool
}

func New(ctx *solidity.Context) *Access {
	return &Access{
		owner:  solidity.NewAddress(ctx, slotOwner),
		paused: solidity.NewBool(ctx, slotPaused),
	}
}

func (a *Access) Owner() (dlp.Address, error) {
	return a.owner.Get()
}

// SetOwner sets the owner without any check, for initialization.
func (a *Access) SetOwner(owner dlp.Address) {
	a.owner.Set(&owner)
}

func (a *Access) Paused() (bool, error) {
	return a.paused.Get()
}

// OnlyOwner fails with OwnableUnauthorizedAccount unless caller is the owner.
func (a *Access) OnlyOwner(caller dlp.Address) error {
	owner, err := a.owner.Get()
	if err != nil {
		return err
	}
	if owner != caller {
		return reverts.Newf(reverts.OwnableUnauthorizedAccount, "%v", caller)
	}
	return nil
}

// WhenNotPaused fails with EnforcedPause while paused.
func (a *Access) WhenNotPaused() error {
	paused, err := a.paused.Get()
	if err != nil {
		return err
	}
	if paused {
		return reverts.New(reverts.EnforcedPause, "")
	}
	return nil
}

func (a *Access) TransferOwnership(caller, newOwner dlp.Address) error {
	if err := a.OnlyOwner(caller); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return reverts.New(reverts.InvalidParam, "zero owner")
	}
	a.owner.Set(&newOwner)
	return nil
}

func (a *Access) Pause(caller dlp.Address) error {
	return a.setPaused(caller, true)
}

func (a *Access) Unpause(caller dlp.Address) error {
	return a.setPaused(caller, false)
}

func (a *Access) setPaused(caller dlp.Address, paused bool) error {
	if err := a.OnlyOwner(caller); err != nil {
		return err
	}
	a.paused.Set(paused)
	return nil
}
