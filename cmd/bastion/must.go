// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/beevik/ntp"
	"github.com/elastic/gosigar"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/provernet/bastion/eventdb"
	"github.com/provernet/bastion/log"
	"github.com/provernet/bastion/lvldb"
)

const (
	ntpHost        = "pool.ntp.org"
	maxClockOffset = 2 * time.Second
)

// checkClockOffset warns when the system clock drifts too far from NTP.
// Ticks come from the system clock, so a skewed clock mis-times unbonding.
func checkClockOffset(skip bool) {
	if skip {
		return
	}
	resp, err := ntp.Query(ntpHost)
	if err != nil {
		log.Debug("failed to access NTP", "err", err)
		return
	}
	if resp.ClockOffset > maxClockOffset || resp.ClockOffset < -maxClockOffset {
		log.Warn("system clock offset too large", "offset", resp.ClockOffset)
	}
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 128 {
		sizeMB = 128
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		log.Warn("failed to get total mem:", "err", err)
	} else {
		// limit to 1/2 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 2)
		if sizeMB > limitMB {
			sizeMB = limitMB
			log.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func suggestFDCache() int {
	limit, err := fdlimit.Current()
	if err != nil {
		fatal("failed to get fd limit:", err)
	}
	if limit <= 1024 {
		log.Warn("low fd limit, increase it if possible", "limit", limit)
	}

	n := limit / 2
	if n > 5120 {
		return 5120
	}
	return n
}

func openStore(ctx *cli.Context, dataDir string) *lvldb.LevelDB {
	cacheMB := normalizeCacheSize(ctx.Int(cacheFlag.Name))
	fdCache := suggestFDCache()

	dir := filepath.Join(dataDir, "ledger.db")
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              cacheMB,
		OpenFilesCacheCapacity: fdCache,
	})
	if err != nil {
		fatal(fmt.Sprintf("open ledger database [%v]: %v", dir, err))
	}
	return db
}

func openJournal(dataDir string) *eventdb.EventDB {
	path := filepath.Join(dataDir, "events.db")
	db, err := eventdb.New(path)
	if err != nil {
		fatal(fmt.Sprintf("open event database [%v]: %v", path, err))
	}
	return db
}
