// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequence(t *testing.T) {
	tests := []struct {
		block uint32
		index uint32
	}{
		{0, 0},
		{1, 1},
		{1200, 7},
		{math.MaxUint32, math.MaxInt32},
	}
	for _, tt := range tests {
		seq := newSequence(tt.block, tt.index)
		assert.True(t, seq >= 0)
		assert.Equal(t, tt.block, seq.BlockNumber())
		assert.Equal(t, tt.index, seq.Index())
	}

	assert.Less(t, newSequence(1, math.MaxInt32), newSequence(2, 0))
	assert.Panics(t, func() { newSequence(1, math.MaxInt32+1) })
}

func TestMark(t *testing.T) {
	var m Mark
	m = m.Advance(0, 3)
	assert.Equal(t, Mark{0, 3}, m)
	m = m.Advance(0, 0)
	assert.Equal(t, Mark{0, 3}, m)
	m = m.Advance(4, 2)
	assert.Equal(t, Mark{4, 2}, m)
	m = m.Advance(4, 1)
	assert.Equal(t, Mark{4, 3}, m)
	m = m.Advance(9, 0)
	assert.Equal(t, Mark{9, 0}, m)

	assert.Equal(t, newSequence(4, 3), Mark{4, 3}.sequence())
}
