// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package prover

// Status is a prover's lifecycle state.
type Status uint8

const (
	// StatusNull marks an unregistered address.
	StatusNull Status = iota
	// StatusActive accepts deposits and earns rewards.
	StatusActive
	// StatusRetired is the voluntary exit state, entered only with an
	// empty position and never automatically.
	StatusRetired
	// StatusDeactivated is entered automatically on heavy slashing or a
	// self-collateral shortfall, or manually by the executor.
	StatusDeactivated
)

func (s Status) String() string {
	switch s {
	case StatusNull:
		return "null"
	case StatusActive:
		return "active"
	case StatusRetired:
		return "retired"
	case StatusDeactivated:
		return "deactivated"
	default:
		return "unknown"
	}
}

// Prover is a registered prover's lifecycle record.
type Prover struct {
	Status        Status
	CommissionBps uint32
	RegisteredAt  uint32
}

func (p *Prover) IsEmpty() bool {
	return p.Status == StatusNull && p.CommissionBps == 0 && p.RegisteredAt == 0
}
