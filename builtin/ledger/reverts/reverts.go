// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
)

// ErrRevert is a rejected ledger operation. Every rejection reverts the
// operation's checkpoint, leaving no partial effects.
type ErrRevert struct {
	message string
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// Validation errors.
var (
	ErrZeroAmount          = New("zero amount")
	ErrZeroShares          = New("amount yields zero shares")
	ErrUnknownProver       = New("unknown prover")
	ErrAlreadyRegistered   = New("already registered")
	ErrAmountTooLarge      = New("amount exceeds available balance")
	ErrTooManyPending      = New("too many pending requests")
	ErrBelowGranule        = New("withdrawal below minimum granule")
	ErrInvalidCommission   = New("invalid commission rate")
	ErrPoolDrained         = New("pool is drained")
	ErrInsufficientBalance = New("insufficient balance")
	ErrNoReadyRequests     = New("no ready requests")
	ErrNoValue             = New("no value")
)

// State errors.
var (
	ErrNotActive           = New("prover not active")
	ErrNotRetired          = New("prover not retired")
	ErrNotDeactivated      = New("prover not deactivated")
	ErrPositionNotEmpty    = New("position not empty")
	ErrBelowSelfStakeFloor = New("below self stake floor")
)

// Authorization errors, checked before all other validation.
var (
	ErrUnauthorized = New("unauthorized")
)

// Invariant guards.
var (
	ErrSlashTooHigh = New("slash exceeds per-call cap")
	ErrScaleFloor   = New("slash would breach scale floor")
	ErrInvalidScale = New("scale below reactivation threshold")
)
