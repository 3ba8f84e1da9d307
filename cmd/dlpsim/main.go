// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/dlpnet/dlpnet/api"
	"github.com/dlpnet/dlpnet/co"
	"github.com/dlpnet/dlpnet/log"
	"github.com/dlpnet/dlpnet/metrics"
	"github.com/dlpnet/dlpnet/state"
)

var (
	version   string
	gitCommit string

	logger = log.WithContext("pkg", "dlpsim")
)

func fullVersion() string {
	if version == "" {
		return "dev"
	}
	return fmt.Sprintf("%s-%s", version, gitCommit)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "dlpsim",
		Usage:   "replay, inspect and serve participant registries",
		Flags: []cli.Flag{
			dataDirFlag,
			memFlag,
			verbosityFlag,
			jsonLogsFlag,
		},
		Before: func(ctx *cli.Context) error {
			initLogger(ctx)
			return nil
		},
		Commands: []cli.Command{
			{
				Name:   "run",
				Usage:  "apply the scenario steps not applied yet",
				Flags:  []cli.Flag{scenarioFlag},
				Action: runAction,
			},
			{
				Name:   "inspect",
				Usage:  "print registries, participants and epochs",
				Flags:  []cli.Flag{epochsFlag},
				Action: inspectAction,
			},
			{
				Name:  "serve",
				Usage: "serve the query API, replaying the scenario if given",
				Flags: []cli.Flag{
					scenarioFlag,
					intervalFlag,
					apiAddrFlag,
					apiCorsFlag,
					apiLogsLimitFlag,
					apiParticipantsLimitFlag,
					apiSlowQueriesThresholdFlag,
					apiLog5xxErrorsFlag,
					enableAPILogsFlag,
					enableMetricsFlag,
					metricsAddrFlag,
				},
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func exitContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runAction(ctx *cli.Context) error {
	scenario, err := loadScenario(ctx.String(scenarioFlag.Name))
	if err != nil {
		return err
	}
	dbs, err := openDatabases(ctx)
	if err != nil {
		return err
	}
	defer dbs.Close()

	exitCtx, cancel := exitContext()
	defer cancel()

	runner := newRunner(scenario, state.NewStater(dbs.store), dbs.store, dbs.logDB, nil)
	n, err := runner.Run(exitCtx, 0)
	if err != nil {
		return err
	}
	logger.Info("scenario applied", "steps", n, "total", len(scenario.Steps))
	return nil
}

func inspectAction(ctx *cli.Context) error {
	dbs, err := openDatabases(ctx)
	if err != nil {
		return err
	}
	defer dbs.Close()

	st := state.NewStater(dbs.store).NewState()
	return inspectRegistries(os.Stdout, st, ctx.Uint64(epochsFlag.Name))
}

func serveAction(ctx *cli.Context) error {
	var scenario *Scenario
	if path := ctx.String(scenarioFlag.Name); path != "" {
		s, err := loadScenario(path)
		if err != nil {
			return err
		}
		scenario = s
	}
	dbs, err := openDatabases(ctx)
	if err != nil {
		return err
	}
	defer dbs.Close()

	enableMetrics := ctx.Bool(enableMetricsFlag.Name)
	if enableMetrics {
		metrics.InitializePrometheusMetrics()
	}

	var (
		stater    = state.NewStater(dbs.store)
		newLogs   co.Signal
		reqLogger atomic.Bool
	)
	reqLogger.Store(ctx.Bool(enableAPILogsFlag.Name))

	handler, closeAPI := api.New(stater, dbs.logDB, &newLogs, api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		EnableReqLogger:      &reqLogger,
		SlowQueriesThreshold: ctx.Duration(apiSlowQueriesThresholdFlag.Name),
		Log5xxErrors:         ctx.Bool(apiLog5xxErrorsFlag.Name),
		EnableMetrics:        enableMetrics,
		LogsLimit:            ctx.Uint64(apiLogsLimitFlag.Name),
		ParticipantsLimit:    ctx.Uint64(apiParticipantsLimitFlag.Name),
	})
	defer closeAPI()

	apiListener, err := listen(ctx.String(apiAddrFlag.Name))
	if err != nil {
		return err
	}

	exitCtx, cancel := exitContext()
	defer cancel()
	g, gctx := errgroup.WithContext(exitCtx)

	g.Go(func() error {
		return serveHTTP(gctx, apiListener, handler)
	})
	fmt.Printf("API portal   [ http://%v/ ]\n", apiListener.Addr())

	if enableMetrics {
		metricsListener, err := listen(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			cancel()
			g.Wait()
			return err
		}
		g.Go(func() error {
			return serveHTTP(gctx, metricsListener, metrics.HTTPHandler())
		})
		fmt.Printf("Metrics      [ http://%v/metrics ]\n", metricsListener.Addr())
	}

	if scenario != nil {
		runner := newRunner(scenario, stater, dbs.store, dbs.logDB, &newLogs)
		interval := ctx.Duration(intervalFlag.Name)
		g.Go(func() error {
			n, err := runner.Run(gctx, interval)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("scenario replayed", "steps", n)
			return nil
		})
	}

	return g.Wait()
}
