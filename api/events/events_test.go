// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlpnet/dlpnet/builtin/registry"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/logdb"
	"github.com/dlpnet/dlpnet/state"
	"github.com/dlpnet/dlpnet/test/datagen"
)

const testLimit = 3

var (
	registryAddr = dlp.BytesToAddress([]byte("registry"))
	otherAddr    = dlp.BytesToAddress([]byte("other"))
)

func initEventServer(t *testing.T) (*httptest.Server, dlp.Address) {
	db, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	caller := datagen.RandAddress()
	w := db.NewWriter()
	require.NoError(t, w.Write(1, caller, []*state.Log{
		{Address: registryAddr, Topics: []dlp.Bytes32{registry.EventEpochCreated.ID()}, Data: []byte{0x01}},
	}))
	require.NoError(t, w.Write(11, caller, []*state.Log{
		{Address: registryAddr, Topics: []dlp.Bytes32{registry.EventEpochCreated.ID()}, Data: []byte{0x02}},
		{Address: registryAddr, Topics: []dlp.Bytes32{registry.EventEpochFinalized.ID()}, Data: []byte{0x03}},
	}))
	require.NoError(t, w.Write(12, caller, []*state.Log{
		{Address: otherAddr, Topics: []dlp.Bytes32{dlp.Keccak256([]byte("Unknown()"))}},
	}))
	require.NoError(t, w.Commit())

	router := mux.NewRouter()
	New(db, testLimit).Mount(router, "/logs/event")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, caller
}

func post(t *testing.T, ts *httptest.Server, body any) ([]byte, int) {
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	res, err := http.Post(ts.URL+"/logs/event", "application/json", &buf) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(res.Body)
	require.NoError(t, err)
	return out.Bytes(), res.StatusCode
}

func decode(t *testing.T, body []byte) []*FilteredEvent {
	var events []*FilteredEvent
	require.NoError(t, json.Unmarshal(body, &events))
	return events
}

func u32(v uint32) *uint32 { return &v }

func TestFilterByTopic(t *testing.T) {
	ts, caller := initEventServer(t)

	topic := registry.EventEpochCreated.ID()
	body, code := post(t, ts, &EventFilter{CriteriaSet: []*EventCriteria{{Topic0: &topic}}})
	require.Equal(t, http.StatusOK, code, string(body))

	events := decode(t, body)
	require.Len(t, events, 2)
	assert.Equal(t, "EpochCreated", events[0].Event)
	assert.Equal(t, registryAddr, events[0].Address)
	assert.Equal(t, caller, events[0].Meta.Caller)
	assert.Equal(t, uint32(1), events[0].Meta.BlockNumber)
	assert.Equal(t, uint32(11), events[1].Meta.BlockNumber)
	assert.Equal(t, []byte{0x02}, []byte(events[1].Data))
}

func TestFilterByRangeAndOrder(t *testing.T) {
	ts, _ := initEventServer(t)

	body, code := post(t, ts, &EventFilter{Range: &Range{From: u32(11)}, Order: logdb.DESC})
	require.Equal(t, http.StatusOK, code, string(body))
	events := decode(t, body)
	require.Len(t, events, 3)
	assert.Empty(t, events[0].Event, "unknown events stay unnamed")
	assert.Equal(t, "EpochFinalized", events[1].Event)
	assert.Equal(t, uint32(1), events[1].Meta.Index)

	body, code = post(t, ts, &EventFilter{Range: &Range{To: u32(1)}})
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Len(t, decode(t, body), 1)
}

func TestFilterLimits(t *testing.T) {
	ts, _ := initEventServer(t)

	// 4 events match, one above the limit
	body, code := post(t, ts, &EventFilter{})
	assert.Equal(t, http.StatusForbidden, code, string(body))

	body, code = post(t, ts, &EventFilter{Options: &Options{Offset: 1, Limit: testLimit}})
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Len(t, decode(t, body), 3)

	_, code = post(t, ts, &EventFilter{Options: &Options{Limit: testLimit + 1}})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestFilterBadRequests(t *testing.T) {
	ts, _ := initEventServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", "{"},
		{"unknown field", `{"foo":1}`},
		{"inverted range", `{"range":{"from":5,"to":1}}`},
		{"null criterion", `{"criteriaSet":[null]}`},
		{"bad order", `{"order":"up"}`},
		{"bad address", `{"criteriaSet":[{"address":"0x01"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, code := post(t, ts, tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
		})
	}
}
