// Copyright (c) 2025 The Bastion developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

//go:build !linux

package metrics

// registerProcessCollectors is a no-op on platforms without /proc.
func registerProcessCollectors() {}
