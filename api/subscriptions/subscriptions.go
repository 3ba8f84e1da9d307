// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriptions streams newly indexed contract events over websocket.
package subscriptions

import (
	"context"
	"math"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/dlpnet/dlpnet/api/events"
	"github.com/dlpnet/dlpnet/api/utils"
	"github.com/dlpnet/dlpnet/co"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/log"
	"github.com/dlpnet/dlpnet/logdb"
	"github.com/dlpnet/dlpnet/metrics"
)

var (
	logger = log.WithContext("pkg", "subscriptions")

	metricActiveCount = metrics.LazyLoadGaugeVec("api_active_websocket_count", []string{"subject"})
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Events read from the db per round.
	readBatch = 256
)

type Subscriptions struct {
	db       *logdb.LogDB
	newLogs  *co.Signal
	upgrader *websocket.Upgrader
	done     chan struct{}
	wg       sync.WaitGroup
}

// New creates the handlers. newLogs must be broadcast whenever events are committed to db.
func New(db *logdb.LogDB, newLogs *co.Signal, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		db:      db,
		newLogs: newLogs,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return slices.ContainsFunc(allowedOrigins, func(allowed string) bool {
					return allowed == "*" || strings.EqualFold(allowed, origin)
				})
			},
		},
		done: make(chan struct{}),
	}
}

// cursor points right after the last delivered event.
type cursor struct {
	block uint32
	index uint32
	fresh bool // nothing delivered yet, the first matching event of block is included
}

func (c *cursor) after(e *logdb.Event) bool {
	if e.BlockNumber != c.block {
		return e.BlockNumber > c.block
	}
	return c.fresh || e.Index > c.index
}

func (c *cursor) advance(e *logdb.Event) {
	c.block, c.index, c.fresh = e.BlockNumber, e.Index, false
}

// eventReader reads matching events following its cursor.
type eventReader struct {
	db       *logdb.LogDB
	criteria *logdb.EventCriteria
	pos      cursor
}

func (r *eventReader) Read(ctx context.Context) ([]*events.FilteredEvent, error) {
	var result []*events.FilteredEvent
	for {
		filter := &logdb.EventFilter{
			Range:   &logdb.Range{From: r.pos.block, To: math.MaxUint32},
			Options: &logdb.Options{Limit: readBatch},
		}
		if r.criteria != nil {
			filter.CriteriaSet = []*logdb.EventCriteria{r.criteria}
		}
		found, err := r.db.FilterEvents(ctx, filter)
		if err != nil {
			return nil, err
		}
		progressed := false
		for _, e := range found {
			if !r.pos.after(e) {
				continue
			}
			r.pos.advance(e)
			progressed = true
			result = append(result, events.ConvertEvent(e))
		}
		// a full batch that only repeated delivered events means one block holds more than a batch
		if len(found) < readBatch || !progressed {
			if len(found) == readBatch && !progressed {
				return nil, errors.Errorf("block %d holds too many events", r.pos.block)
			}
			return result, nil
		}
	}
}

func parseCriteria(req *http.Request) (*logdb.EventCriteria, error) {
	query := req.URL.Query()
	var c logdb.EventCriteria
	empty := true
	if s := query.Get("addr"); s != "" {
		addr, err := dlp.ParseAddress(s)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "addr"))
		}
		c.Address = &addr
		empty = false
	}
	for i := range c.Topics {
		name := "t" + string(rune('0'+i))
		if s := query.Get(name); s != "" {
			topic, err := dlp.ParseBytes32(s)
			if err != nil {
				return nil, utils.BadRequest(errors.WithMessage(err, name))
			}
			c.Topics[i] = &topic
			empty = false
		}
	}
	if empty {
		return nil, nil
	}
	return &c, nil
}

func (s *Subscriptions) handleSubscribeEvents(w http.ResponseWriter, req *http.Request) error {
	criteria, err := parseCriteria(req)
	if err != nil {
		return err
	}
	reader := &eventReader{db: s.db, criteria: criteria, pos: cursor{fresh: true}}
	if pos := req.URL.Query().Get("pos"); pos != "" {
		block, err := utils.ParseUint(pos, 0)
		if err != nil || block > math.MaxUint32 {
			return utils.BadRequest(errors.New("pos: invalid block number"))
		}
		reader.pos.block = uint32(block)
	} else {
		newest, err := s.db.NewestBlock()
		if err != nil {
			return err
		}
		reader.pos.block = newest + 1
	}

	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader already responded
		logger.Debug("upgrade failed", "err", err)
		return nil
	}

	s.wg.Add(1)
	defer s.wg.Done()

	metricActiveCount().AddWithLabel(1, map[string]string{"subject": "event"})
	defer metricActiveCount().AddWithLabel(-1, map[string]string{"subject": "event"})

	// the read loop only handles control frames, closed reports the peer left
	var goes co.Goes
	defer goes.Wait()
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	goes.Go(func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	if err := s.pipe(req.Context(), conn, reader, closed); err != nil {
		logger.Debug("subscription closed", "err", err)
		closeMsg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error())
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
	} else {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
	}
	return conn.Close()
}

// pipe writes events to conn until the peer leaves, the server closes or an error occurs.
func (s *Subscriptions) pipe(ctx context.Context, conn *websocket.Conn, reader *eventReader, closed <-chan struct{}) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	waiter := s.newLogs.NewWaiter()
	for {
		msgs, err := reader.Read(ctx)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return err
			}
			if err := conn.WriteJSON(msg); err != nil {
				return err
			}
		}

		select {
		case <-s.done:
			return nil
		case <-closed:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		case <-waiter.C():
		}
	}
}

// Close stops all subscriptions and waits for them to exit.
func (s *Subscriptions) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/event").
		Methods(http.MethodGet).
		Name("WS /subscriptions/event").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeEvents))
}
