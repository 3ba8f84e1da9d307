// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"database/sql"
	"math"

	"github.com/pkg/errors"

	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/state"
)

// Writer accumulates events in a sql transaction until Commit or Rollback.
type Writer struct {
	db          *sql.DB
	tx          *sql.Tx
	uncommitted int
}

// NewWriter creates a log writer.
func (db *LogDB) NewWriter() *Writer {
	return &Writer{db: db.db}
}

func (w *Writer) exec(query string, args ...any) (sql.Result, error) {
	if w.tx == nil {
		tx, err := w.db.Begin()
		if err != nil {
			return nil, err
		}
		w.tx = tx
	}
	return w.tx.Exec(query, args...)
}

// nextIndex returns the index following the last event written for the block.
func (w *Writer) nextIndex(blockNum uint32) (uint32, error) {
	var (
		seq   sql.NullInt64
		query = "SELECT MAX(seq) FROM event WHERE seq >= ? AND seq <= ?"
		from  = newSequence(blockNum, 0)
		to    = newSequence(blockNum, math.MaxInt32)
	)
	var row *sql.Row
	if w.tx != nil {
		row = w.tx.QueryRow(query, from, to)
	} else {
		row = w.db.QueryRow(query, from, to)
	}
	if err := row.Scan(&seq); err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil
	}
	return sequence(seq.Int64).Index() + 1, nil
}

// Write appends the logs emitted by one call made by caller at blockNum.
// Calls made within the same block keep their order.
func (w *Writer) Write(blockNum uint32, caller dlp.Address, logs []*state.Log) error {
	if len(logs) == 0 {
		return nil
	}
	index, err := w.nextIndex(blockNum)
	if err != nil {
		return errors.Wrap(err, "next index")
	}
	for _, l := range logs {
		ev := newEvent(blockNum, index, caller, l)
		if _, err := w.exec("INSERT INTO event(seq, caller, address, topic0, topic1, topic2, topic3, topic4, data) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)",
			newSequence(ev.BlockNumber, ev.Index),
			ev.Caller.Bytes(),
			ev.Address.Bytes(),
			topicValue(ev.Topics[0]),
			topicValue(ev.Topics[1]),
			topicValue(ev.Topics[2]),
			topicValue(ev.Topics[3]),
			topicValue(ev.Topics[4]),
			ev.Data,
		); err != nil {
			return errors.Wrap(err, "insert event")
		}
		index++
		w.uncommitted++
	}
	return nil
}

// Truncate deletes the events at and after mark.
func (w *Writer) Truncate(mark Mark) error {
	if _, err := w.exec("DELETE FROM event WHERE seq >= ?", mark.sequence()); err != nil {
		return errors.Wrap(err, "truncate events")
	}
	return nil
}

// Commit commits accumulated logs.
func (w *Writer) Commit() error {
	if w.tx == nil {
		return nil
	}
	err := w.tx.Commit()
	w.tx = nil
	w.uncommitted = 0
	return err
}

// Rollback rollbacks all uncommitted logs.
func (w *Writer) Rollback() error {
	if w.tx == nil {
		return nil
	}
	err := w.tx.Rollback()
	w.tx = nil
	w.uncommitted = 0
	return err
}

// UncommittedCount returns the count of uncommitted logs.
func (w *Writer) UncommittedCount() int {
	return w.uncommitted
}
