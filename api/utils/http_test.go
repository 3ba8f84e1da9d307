// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapHandlerFunc(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"ok", nil, http.StatusOK, ""},
		{"bad request", BadRequest(errors.New("bad id")), http.StatusBadRequest, "bad id"},
		{"not found", NotFound(errors.New("no such epoch")), http.StatusNotFound, "no such epoch"},
		{"wrapped", errors.Wrap(HTTPError(errors.New("teapot"), http.StatusTeapot), "outer"), http.StatusTeapot, "teapot"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := WrapHandlerFunc(func(http.ResponseWriter, *http.Request) error { return tt.err })
			rr := httptest.NewRecorder()
			h(rr, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.body, strings.TrimSpace(rr.Body.String()))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rr, M{"epoch": 3}))
	assert.Equal(t, JSONContentType, rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"epoch":3}`, rr.Body.String())
}

func TestParseUint(t *testing.T) {
	v, err := ParseUint("", 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)

	v, err = ParseUint("42", 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	_, err = ParseUint("-1", 7)
	assert.Error(t, err)
}
