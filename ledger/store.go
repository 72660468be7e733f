/*
store.go - Persistence interface for movements and balances

PURPOSE:
  Defines the contract between the ledger engine and the database. Every
  method that writes is one atomic unit of work: the movement row and the
  balance row commit or fail together, never one without the other.

ATOMIC INCREMENT CONTRACT:
  Implementations must apply balance changes as in-database increments
  (SET on_hand = on_hand + delta within the operation's transaction),
  never by reading the current value into application code outside the
  transaction and writing a computed result back. The balance row is the
  sole point of write contention; movements on different variants must not
  serialize against each other beyond what the storage engine requires.

IMPLEMENTATIONS:
  - store/sqlite: production and test storage
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// MovementEffect reports the outcome of applying one movement: the stored
// row (with its generated id) plus the balance immediately before and after
// the write.
type MovementEffect struct {
	Movement Movement
	Previous Balance
	New      Balance
}

// CancelEffect reports the outcome of cancelling a movement.
type CancelEffect struct {
	Movement      Movement        // post-cancellation state
	ReversedQty   decimal.Decimal // negation of the original delta
	ReversedRolls *int64          // negation of the original roll count, if any
	New           Balance
}

// Store handles persistence for the movement ledger and balance table.
type Store interface {
	// ApplyMovement inserts the movement and increments the variant's
	// balance in one transaction. The movement's ID, and the balance
	// before and after, are returned. Fails with ErrVariantNotFound - and
	// no side effects - when the variant does not exist. A nil RollCount
	// leaves on_hand_rolls untouched.
	ApplyMovement(ctx context.Context, m Movement) (*MovementEffect, error)

	// Movement returns one movement by id, or ErrMovementNotFound.
	Movement(ctx context.Context, id MovementID) (*Movement, error)

	// CancelMovement transitions the movement to cancelled and reverses
	// its balance contribution, atomically. The guard is a conditional
	// update on is_cancelled, so two concurrent attempts cannot both
	// succeed: the loser gets ErrAlreadyCancelled.
	CancelMovement(ctx context.Context, id MovementID) (*CancelEffect, error)

	// SearchMovements returns matching history entries and the total
	// matching count. The query is assumed normalized (DateTo exclusive).
	SearchMovements(ctx context.Context, q HistoryQuery) ([]HistoryEntry, int, error)

	// Balance returns the variant's current balance. A missing balance
	// row reads as zero, not as an error.
	Balance(ctx context.Context, variantID VariantID) (Balance, error)

	// RebuildBalance recomputes the balance from the variant's
	// non-cancelled movements and stores it. Maintenance operation; the
	// invariant tests use it as the reference value.
	RebuildBalance(ctx context.Context, variantID VariantID) (Balance, error)
}

// VariantResolver resolves (fabric code, color code) pairs to variant ids.
// Implemented by the catalog collaborator; the ledger itself owns no
// master data.
type VariantResolver interface {
	ResolveVariant(ctx context.Context, fabricCode, colorCode string) (int64, error)
}
