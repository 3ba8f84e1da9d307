// Copyright (c) 2018 The VeChainThor developers
// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/state"
)

// Event is a contract log stored together with the block and the call that emitted it.
type Event struct {
	BlockNumber uint32
	Index       uint32
	Caller      dlp.Address
	Address     dlp.Address
	Topics      [5]*dlp.Bytes32
	Data        []byte
}

func newEvent(blockNum, index uint32, caller dlp.Address, log *state.Log) *Event {
	ev := &Event{
		BlockNumber: blockNum,
		Index:       index,
		Caller:      caller,
		Address:     log.Address,
		Data:        log.Data,
	}
	for i := 0; i < len(log.Topics) && i < len(ev.Topics); i++ {
		topic := log.Topics[i]
		ev.Topics[i] = &topic
	}
	return ev
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range is an inclusive block range.
type Range struct {
	From uint32
	To   uint32
}

type Options struct {
	Offset uint64
	Limit  uint64
}

type EventCriteria struct {
	Address *dlp.Address
	Topics  [5]*dlp.Bytes32
}

// EventFilter selects events matching any of CriteriaSet within Range.
type EventFilter struct {
	CriteriaSet []*EventCriteria
	Range       *Range
	Options     *Options
	Order       Order // default asc
}
