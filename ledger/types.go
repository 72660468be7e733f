/*
Package ledger provides the inventory movement ledger and balance engine.

PURPOSE:
  This package contains the core domain model and operations for tracking
  fabric stock as a sequence of signed quantity changes (movements) against
  per-variant on-hand balances. The balance for a variant is always the sum
  of its non-cancelled movements; keeping the two consistent under
  concurrent writers is this package's whole job.

KEY CONCEPTS IN THIS FILE (types.go):
  - Movement: an immutable ledger entry (a signed change in meters)
  - Balance: the materialized on-hand quantity for one variant
  - MovementType: RECEIPT / ISSUE / ADJUST
  - UnitOfMeasure: the unit a quantity was originally entered in

DESIGN PRINCIPLES:
  1. Immutability: a movement's quantity fields never change after insert;
     the only mutation ever allowed is the one-way cancellation flag.
  2. Precision: decimal.Decimal everywhere, canonical scale of 3 decimal
     places (the source schema's NUMERIC(14,3)).
  3. Meters are the source of truth. Roll counts are tracked independently
     and never derived from meters: conversion factors vary per variant, so
     there is deliberately NO roll<->meter conversion anywhere.

SEE ALSO:
  - service.go: movement creation and cancellation
  - history.go: filtered history queries
  - store.go: persistence interface
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuantityScale is the canonical number of decimal places for meter
// quantities. All inputs are rounded to this scale before persisting.
const QuantityScale = 3

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MovementID int64
type VariantID int64

// =============================================================================
// ENUMERATIONS
// =============================================================================

// MovementType classifies a movement as inbound, outbound, or corrective.
type MovementType string

const (
	MovementReceipt MovementType = "RECEIPT"
	MovementIssue   MovementType = "ISSUE"
	MovementAdjust  MovementType = "ADJUST"
)

// Valid reports whether t is one of the known movement types.
func (t MovementType) Valid() bool {
	switch t {
	case MovementReceipt, MovementIssue, MovementAdjust:
		return true
	}
	return false
}

// UnitOfMeasure is the unit a quantity was originally entered in.
// The ledger stores deltas in meters regardless; the original unit is kept
// for audit only.
type UnitOfMeasure string

const (
	UnitMeters UnitOfMeasure = "m"
	UnitRolls  UnitOfMeasure = "roll"
)

// Valid reports whether u is one of the known units.
func (u UnitOfMeasure) Valid() bool {
	return u == UnitMeters || u == UnitRolls
}

// =============================================================================
// MOVEMENT - Immutable ledger entry
// =============================================================================

// Movement is one recorded stock change. Quantity fields, the variant
// reference, and the movement type are write-once; only IsCancelled and
// CancelledAt may change, exactly once, from false to true.
type Movement struct {
	ID          MovementID
	Timestamp   time.Time
	VariantID   VariantID
	Type        MovementType
	DeltaQty    decimal.Decimal // signed, meters
	OriginalQty decimal.Decimal // as entered by the caller
	OriginalUOM UnitOfMeasure
	RollCount   *int64 // signed, optional; independent of DeltaQty
	DocumentID  string
	Reason      string
	IsCancelled bool
	CancelledAt *time.Time
	CreatedAt   time.Time
}

// =============================================================================
// BALANCE - Materialized aggregate, one per variant
// =============================================================================

// Balance is the current on-hand stock for one variant.
//
// INVARIANT: OnHandMeters equals the sum of DeltaQty over the variant's
// non-cancelled movements, and OnHandRolls equals the sum of RollCount over
// those that carry one. A variant with no movements has no stored balance;
// readers treat the missing row as zero.
type Balance struct {
	VariantID    VariantID
	OnHandMeters decimal.Decimal
	OnHandRolls  decimal.Decimal
	UpdatedAt    time.Time
}

// ZeroBalance returns the empty balance for a variant, used when no balance
// row exists yet.
func ZeroBalance(id VariantID) Balance {
	return Balance{VariantID: id, OnHandMeters: decimal.Zero, OnHandRolls: decimal.Zero}
}
