// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/provernet/bastion/api"
	"github.com/provernet/bastion/kv"
	"github.com/provernet/bastion/log"
	"github.com/provernet/bastion/metrics"
	"github.com/provernet/bastion/node"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Bastion",
		Usage:     "Collateral ledger of the prover network",
		Copyright: "2025 The Bastion developers",
		Flags: []cli.Flag{
			genesisFlag,
			dataDirFlag,
			cacheFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiEventsLimitFlag,
			enableAPILogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			pprofFlag,
			verbosityFlag,
			skipClockCheckFlag,
		},
		Action: runAction,
		Commands: []cli.Command{
			{
				Name:  "snapshot",
				Usage: "export, import and compare ledger store snapshots",
				Subcommands: []cli.Command{
					{
						Name:   "export",
						Usage:  "write the ledger store to a snapshot file",
						Flags:  []cli.Flag{dataDirFlag, outFlag, verbosityFlag},
						Action: exportAction,
					},
					{
						Name:   "import",
						Usage:  "load a snapshot file into a fresh ledger store",
						Flags:  []cli.Flag{dataDirFlag, inFlag, verbosityFlag},
						Action: importAction,
					},
					{
						Name:      "diff",
						Usage:     "compare two snapshot files",
						ArgsUsage: "SNAPSHOT-A SNAPSHOT-B",
						Action:    diffAction,
					},
				},
			},
			{
				Name:   "dump",
				Usage:  "print every prover's ledger summary",
				Flags:  []cli.Flag{dataDirFlag, verbosityFlag},
				Action: dumpAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAction(ctx *cli.Context) error {
	defer func() { log.Info("exited") }()

	initLogger(ctx)
	checkClockOffset(ctx.Bool(skipClockCheckFlag.Name))

	dataDir := makeDataDir(ctx)

	store := openStore(ctx, dataDir)
	defer func() { log.Info("closing ledger database..."); store.Close() }()

	journal := openJournal(dataDir)
	defer func() { log.Info("closing event database..."); journal.Close() }()

	ensureGenesis(ctx, store)

	// read-through value cache over the store, sized at 1/4 of the cache budget
	cached := kv.NewCachedStore(store, ctx.Int(cacheFlag.Name)<<20/4)
	host := node.New(cached, journal, nil)
	defer host.Close()

	handler, closeAPI := api.New(host, journal, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		EventsLimit:     ctx.Uint64(apiEventsLimitFlag.Name),
		PprofOn:         ctx.Bool(pprofFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
	})
	defer func() { log.Info("closing API..."); closeAPI() }()

	apiListener, err := net.Listen("tcp", ctx.String(apiAddrFlag.Name))
	if err != nil {
		fatal(fmt.Sprintf("listen API addr [%v]: %v", ctx.String(apiAddrFlag.Name), err))
	}

	exitCtx := handleExitSignal()
	group, groupCtx := errgroup.WithContext(exitCtx)

	apiSrv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	group.Go(func() error {
		if err := apiSrv.Serve(apiListener); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	var metricsSrv *http.Server
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		metricsListener, err := net.Listen("tcp", ctx.String(metricsAddrFlag.Name))
		if err != nil {
			fatal(fmt.Sprintf("listen metrics addr [%v]: %v", ctx.String(metricsAddrFlag.Name), err))
		}
		metricsSrv = &http.Server{Handler: metrics.HTTPHandler(), ReadHeaderTimeout: 10 * time.Second}
		group.Go(func() error {
			if err := metricsSrv.Serve(metricsListener); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		log.Info("metrics server started", "addr", metricsListener.Addr())
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if metricsSrv != nil {
			metricsSrv.Shutdown(shutdownCtx) //nolint:errcheck
		}
		return apiSrv.Shutdown(shutdownCtx)
	})

	log.Info("ledger host started",
		"version", fullVersion(),
		"api", "http://"+apiListener.Addr().String(),
		"dataDir", dataDir,
	)
	return group.Wait()
}
