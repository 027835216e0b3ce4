// Copyright (c) 2024 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "github.com/provernet/bastion/metrics"

var metricStageCommitCounter = metrics.LazyLoadCounter("state_stage_commit_count")
