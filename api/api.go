// Copyright (c) 2018 The VeChainThor developers
// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api assembles the read-only HTTP API over committed registry state.
package api

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/dlpnet/dlpnet/api/events"
	"github.com/dlpnet/dlpnet/api/middleware"
	"github.com/dlpnet/dlpnet/api/registries"
	"github.com/dlpnet/dlpnet/api/subscriptions"
	"github.com/dlpnet/dlpnet/co"
	"github.com/dlpnet/dlpnet/log"
	"github.com/dlpnet/dlpnet/logdb"
	"github.com/dlpnet/dlpnet/state"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins       string
	EnableReqLogger      *atomic.Bool
	SlowQueriesThreshold time.Duration
	Log5xxErrors         bool
	EnableMetrics        bool
	LogsLimit            uint64
	ParticipantsLimit    uint64
}

// New return api router and a function closing open subscriptions.
func New(
	stater *state.Stater,
	logDB *logdb.LogDB,
	newLogs *co.Signal,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	registries.New(stater, opts.ParticipantsLimit).
		Mount(router, "/registries")
	events.New(logDB, opts.LogsLimit).
		Mount(router, "/logs/event")
	subs := subscriptions.New(logDB, newLogs, origins)
	subs.Mount(router, "/subscriptions")

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	enabled := opts.EnableReqLogger
	if enabled == nil {
		enabled = &atomic.Bool{}
	}
	handler = middleware.RequestLoggerMiddleware(logger, enabled, opts.SlowQueriesThreshold, opts.Log5xxErrors)(handler)

	return handler.ServeHTTP, subs.Close // subscriptions handles hijacked conns, which need to be closed
}
