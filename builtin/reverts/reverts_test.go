// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRevertError(t *testing.T) {
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr(errors.New("reverted")))
	assert.False(t, IsRevertErr("not an error"))

	err := Newf(InvalidStatus, "%v -> %v", "active", "registered")
	assert.True(t, IsRevertErr(err))
	assert.Equal(t, "InvalidStatus: active -> registered", err.Error())
	assert.Equal(t, InvalidStatus, err.Name())
	assert.Equal(t, "NothingToClaim", New(NothingToClaim, "").Error())

	wrapped := pkgerrors.WithMessage(err, "approve")
	assert.True(t, IsRevertErr(wrapped))
	assert.True(t, Is(wrapped, InvalidStatus))
	assert.False(t, Is(wrapped, NotOwner))
	assert.False(t, Is(errors.New("x"), NotOwner))

	assert.ErrorIs(t, wrapped, New(InvalidStatus, ""))
	assert.NotErrorIs(t, wrapped, New(InvalidDlpStatus, ""))
}
