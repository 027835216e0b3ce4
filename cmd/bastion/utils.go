// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/provernet/bastion/genesis"
	"github.com/provernet/bastion/kv"
	"github.com/provernet/bastion/log"
	"github.com/provernet/bastion/state"
)

func fatal(args ...interface{}) {
	var w io.Writer
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
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
	var level slog.LevelVar
	level.Set(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))
	useColor := isatty.IsTerminal(os.Stderr.Fd())
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, &level, useColor)))
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".bastion")
	}
	return ""
}

func makeDataDir(ctx *cli.Context) string {
	dir := ctx.String(dataDirFlag.Name)
	if dir == "" {
		fatal(fmt.Sprintf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name))
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		fatal(fmt.Sprintf("create data dir [%v]: %v", dir, err))
	}
	return dir
}

// ensureGenesis applies the genesis config on first run. A fresh store with
// no config is refused, since every governance role would stay locked.
func ensureGenesis(ctx *cli.Context, store kv.Store) {
	st := state.New(store)
	applied, err := genesis.Applied(st)
	if err != nil {
		fatal("read genesis state:", err)
	}
	if applied {
		if ctx.IsSet(genesisFlag.Name) {
			log.Warn("genesis already applied, config ignored", "path", ctx.String(genesisFlag.Name))
		}
		return
	}
	if !ctx.IsSet(genesisFlag.Name) {
		fatal(fmt.Sprintf("fresh data dir, genesis config required: use -%s", genesisFlag.Name))
	}

	config, err := genesis.Load(ctx.String(genesisFlag.Name))
	if err != nil {
		fatal(err)
	}
	if err := config.Apply(st); err != nil {
		fatal("apply genesis:", err)
	}
	if err := st.Stage().Commit(); err != nil {
		fatal("commit genesis:", err)
	}
	log.Info("genesis applied", "path", ctx.String(genesisFlag.Name))
}

func handleExitSignal() context.Context {
	exitSignalCh := make(chan os.Signal, 1)
	signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-exitSignalCh
		log.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}
