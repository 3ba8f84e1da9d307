// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:   "data-dir",
		Value:  defaultDataDir(),
		Usage:  "directory for state and event databases",
		EnvVar: "DLPSIM_DATA_DIR",
	}
	memFlag = cli.BoolFlag{
		Name:   "mem",
		Usage:  "keep state and events in memory, ignoring data-dir",
		EnvVar: "DLPSIM_MEM",
	}
	scenarioFlag = cli.StringFlag{
		Name:   "scenario",
		Usage:  "path to the YAML scenario to replay",
		EnvVar: "DLPSIM_SCENARIO",
	}
	intervalFlag = cli.DurationFlag{
		Name:   "interval",
		Usage:  "pause between scenario steps while serving",
		EnvVar: "DLPSIM_INTERVAL",
	}
	epochsFlag = cli.Uint64Flag{
		Name:  "epochs",
		Value: 10,
		Usage: "number of most recent epochs to print (0 for all)",
	}

	apiAddrFlag = cli.StringFlag{
		Name:   "api-addr",
		Value:  "localhost:8669",
		Usage:  "API service listening address",
		EnvVar: "DLPSIM_API_ADDR",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiLogsLimitFlag = cli.Uint64Flag{
		Name:  "api-logs-limit",
		Value: 1000,
		Usage: "limit the number of logs returned by /logs API",
	}
	apiParticipantsLimitFlag = cli.Uint64Flag{
		Name:  "api-participants-limit",
		Value: 1000,
		Usage: "limit the page size of the participants API",
	}
	apiSlowQueriesThresholdFlag = cli.DurationFlag{
		Name:  "api-slow-queries-threshold",
		Usage: "only log API requests slower than this threshold (0 logs all)",
	}
	apiLog5xxErrorsFlag = cli.BoolFlag{
		Name:  "api-log-5xx-errors",
		Usage: "always log API requests answered with a 5xx status",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:   "enable-api-logs",
		Usage:  "enables API requests logging",
		EnvVar: "DLPSIM_ENABLE_API_LOGS",
	}

	verbosityFlag = cli.IntFlag{
		Name:   "verbosity",
		Value:  3,
		Usage:  "log verbosity (0-5)",
		EnvVar: "DLPSIM_VERBOSITY",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:   "json-logs",
		Usage:  "output logs in JSON format",
		EnvVar: "DLPSIM_JSON_LOGS",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:   "enable-metrics",
		Usage:  "enables metrics collection",
		EnvVar: "DLPSIM_ENABLE_METRICS",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:   "metrics-addr",
		Value:  "localhost:2112",
		Usage:  "metrics service listening address",
		EnvVar: "DLPSIM_METRICS_ADDR",
	}
)
