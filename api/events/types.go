// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/logdb"
	"github.com/dlpnet/dlpnet/xenv"
)

type Range struct {
	From *uint32 `json:"from,omitempty"`
	To   *uint32 `json:"to,omitempty"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type EventCriteria struct {
	Address *dlp.Address `json:"address"`
	Topic0  *dlp.Bytes32 `json:"topic0"`
	Topic1  *dlp.Bytes32 `json:"topic1"`
	Topic2  *dlp.Bytes32 `json:"topic2"`
	Topic3  *dlp.Bytes32 `json:"topic3"`
	Topic4  *dlp.Bytes32 `json:"topic4"`
}

type EventFilter struct {
	CriteriaSet []*EventCriteria `json:"criteriaSet"`
	Range       *Range           `json:"range"`
	Options     *Options         `json:"options"`
	Order       logdb.Order      `json:"order"`
}

type LogMeta struct {
	BlockNumber uint32      `json:"blockNumber"`
	Index       uint32      `json:"index"`
	Caller      dlp.Address `json:"caller"`
}

// FilteredEvent is a stored event, named when its first topic matches a known event.
type FilteredEvent struct {
	Address dlp.Address   `json:"address"`
	Event   string        `json:"event,omitempty"`
	Topics  []dlp.Bytes32 `json:"topics"`
	Data    hexutil.Bytes `json:"data"`
	Meta    LogMeta       `json:"meta"`
}

func convertRange(r *Range, newest uint32) *logdb.Range {
	if r == nil {
		return nil
	}
	out := &logdb.Range{From: 0, To: newest}
	if r.From != nil {
		out.From = *r.From
	}
	if r.To != nil {
		out.To = *r.To
	}
	return out
}

func convertEventFilter(f *EventFilter, newest uint32) *logdb.EventFilter {
	out := &logdb.EventFilter{
		Range: convertRange(f.Range, newest),
		Order: f.Order,
	}
	if f.Options != nil {
		out.Options = &logdb.Options{Offset: f.Options.Offset, Limit: f.Options.Limit}
	}
	for _, c := range f.CriteriaSet {
		out.CriteriaSet = append(out.CriteriaSet, &logdb.EventCriteria{
			Address: c.Address,
			Topics:  [5]*dlp.Bytes32{c.Topic0, c.Topic1, c.Topic2, c.Topic3, c.Topic4},
		})
	}
	return out
}

func ConvertEvent(e *logdb.Event) *FilteredEvent {
	fe := &FilteredEvent{
		Address: e.Address,
		Topics:  make([]dlp.Bytes32, 0, len(e.Topics)),
		Data:    e.Data,
		Meta: LogMeta{
			BlockNumber: e.BlockNumber,
			Index:       e.Index,
			Caller:      e.Caller,
		},
	}
	for _, topic := range e.Topics {
		if topic != nil {
			fe.Topics = append(fe.Topics, *topic)
		}
	}
	if len(fe.Topics) > 0 {
		if ev, ok := xenv.EventByID(fe.Topics[0]); ok {
			fe.Event = ev.Name()
		}
	}
	return fe
}
