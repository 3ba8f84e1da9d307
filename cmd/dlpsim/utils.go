// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/dlpnet/dlpnet/kv"
	"github.com/dlpnet/dlpnet/log"
	"github.com/dlpnet/dlpnet/logdb"
	"github.com/dlpnet/dlpnet/lvldb"
)

const shutdownTimeout = 5 * time.Second

func fatal(args ...any) {
	var w io.Writer
	if runtime.GOOS == "windows" {
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		} else {
			w = io.MultiWriter(os.Stdout, os.Stderr)
		}
	}
	fmt.Fprint(w, "Fatal: ")
	fmt.Fprintln(w, args...)
	os.Exit(1)
}

func initLogger(ctx *cli.Context) {
	level := log.FromVerbosity(ctx.GlobalInt(verbosityFlag.Name))
	if ctx.GlobalBool(jsonLogsFlag.Name) {
		log.SetDefault(log.NewJSONHandler(os.Stderr, level))
	} else {
		log.SetDefault(log.NewTerminalHandler(os.Stderr, level))
	}
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		return filepath.Join(home, ".dlpsim")
	}
	return ""
}

// databases are the state store and the event log of one instance.
type databases struct {
	store kv.StoreCloser
	logDB *logdb.LogDB
}

func (d *databases) Close() {
	if err := d.logDB.Close(); err != nil {
		logger.Warn("failed to close log db", "err", err)
	}
	if err := d.store.Close(); err != nil {
		logger.Warn("failed to close state db", "err", err)
	}
}

func openDatabases(ctx *cli.Context) (*databases, error) {
	if ctx.GlobalBool(memFlag.Name) {
		store, err := lvldb.NewMem()
		if err != nil {
			return nil, err
		}
		logDB, err := logdb.NewMem()
		if err != nil {
			store.Close()
			return nil, err
		}
		return &databases{store, logDB}, nil
	}

	dir := ctx.GlobalString(dataDirFlag.Name)
	if dir == "" {
		return nil, errors.New("unable to infer default data dir, use -data-dir to specify")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create data dir [%v]", dir)
	}
	store, err := lvldb.New(filepath.Join(dir, "state.db"), lvldb.Options{
		CacheSize:              128,
		OpenFilesCacheCapacity: 64,
	})
	if err != nil {
		return nil, err
	}
	logDB, err := logdb.New(filepath.Join(dir, "logs.db"))
	if err != nil {
		store.Close()
		return nil, err
	}
	return &databases{store, logDB}, nil
}

// serveHTTP serves handler on ln until ctx is done.
func serveHTTP(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
		}
	})
	defer stop()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen [%v]", addr)
	}
	return ln, nil
}
