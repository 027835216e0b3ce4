// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path to the genesis config applied on first run",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for the ledger databases",
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Value: 512,
		Usage: "megabytes of ram allocated to database caching",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8670",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiEventsLimitFlag = cli.Uint64Flag{
		Name:  "api-events-limit",
		Value: 1000,
		Usage: "limit the number of entries returned by /events API",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics recording and the metrics server",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
	pprofFlag = cli.BoolFlag{
		Name:  "pprof",
		Usage: "turn on go-pprof",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-9)",
	}
	skipClockCheckFlag = cli.BoolFlag{
		Name:  "skip-clock-check",
		Usage: "skip the NTP clock offset check on startup",
	}
	outFlag = cli.StringFlag{
		Name:  "out",
		Usage: "snapshot output file",
	}
	inFlag = cli.StringFlag{
		Name:  "in",
		Usage: "snapshot input file",
	}
)
