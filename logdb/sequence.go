// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import "math"

// sequence is the event primary key: the block number in the high bits, the
// position of the event within its block in the low 31 bits.
type sequence int64

func newSequence(blockNum uint32, index uint32) sequence {
	if index > math.MaxInt32 {
		panic("index too large")
	}
	return sequence(blockNum)<<31 | sequence(index)
}

func (s sequence) BlockNumber() uint32 {
	return uint32(s >> 31)
}

func (s sequence) Index() uint32 {
	return uint32(s & math.MaxInt32)
}

// Mark is a position in the journal. Events of earlier blocks, and events of
// Block with an index below Index, lie before it.
type Mark struct {
	Block uint32
	Index uint32
}

// Advance returns the mark following count more events journaled at block.
// Blocks never go back, so a new block restarts the index.
func (m Mark) Advance(block uint32, count int) Mark {
	if block != m.Block {
		m = Mark{Block: block}
	}
	m.Index += uint32(count)
	return m
}

func (m Mark) sequence() sequence {
	return newSequence(m.Block, m.Index)
}
