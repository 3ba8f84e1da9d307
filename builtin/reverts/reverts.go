// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Name identifies the kind of a revert.
type Name string

// state-transition
const (
	InvalidStatus    Name = "InvalidStatus"
	InvalidDlpStatus Name = "InvalidDlpStatus"
)

// authorization
const (
	NotOwner                   Name = "NotOwner"
	OwnableUnauthorizedAccount Name = "OwnableUnauthorizedAccount"
	EnforcedPause              Name = "EnforcedPause"
)

// accounting
const (
	InvalidStakeAmount  Name = "InvalidStakeAmount"
	InvalidScores       Name = "InvalidScores"
	ArityMismatch       Name = "ArityMismatch"
	InsufficientBalance Name = "InsufficientBalance"
	TooManyParticipants Name = "TooManyParticipants"
	InvalidBlockNumber  Name = "InvalidBlockNumber"
	InvalidParam        Name = "InvalidParam"
)

// claim and transfer
const (
	NothingToClaim   Name = "NothingToClaim"
	TransferRejected Name = "TransferRejected"
)

// ErrRevert is a domain failure. The enclosing operation leaves no effect behind.
type ErrRevert struct {
	name    Name
	message string
}

func New(name Name, message string) *ErrRevert {
	return &ErrRevert{
		name:    name,
		message: message,
	}
}

func Newf(name Name, format string, args ...any) *ErrRevert {
	return New(name, fmt.Sprintf(format, args...))
}

func (e *ErrRevert) Error() string {
	if e.message == "" {
		return string(e.name)
	}
	return string(e.name) + ": " + e.message
}

func (e *ErrRevert) Name() Name {
	return e.name
}

// Is reports whether target is a revert of the same name, so that
// errors.Is(err, reverts.New(reverts.NothingToClaim, "")) matches any NothingToClaim.
func (e *ErrRevert) Is(target error) bool {
	t, ok := target.(*ErrRevert)
	return ok && t.name == e.name
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// Is reports whether err is, or wraps, a revert of the given name.
func Is(err error, name Name) bool {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.name == name
	}
	return false
}
