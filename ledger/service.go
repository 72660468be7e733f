/*
service.go - Movement creation and cancellation

PURPOSE:
  The Service is the write surface of the ledger. It validates input,
  derives the sign of the delta from the movement type, and delegates the
  atomic insert+increment to the Store.

SIGN CONVENTION:
  The ledger owns direction. RECEIPT and ISSUE take a non-negative
  magnitude; the service applies the sign (+ for receipts, - for issues).
  A pre-signed quantity for those types is rejected: a caller that negates
  an issue itself would otherwise double-negate and silently corrupt the
  balance. ADJUST is the escape hatch and takes a caller-signed delta.
  Roll counts follow the same rule.

CANCELLATION:
  Cancelling reverses the movement's contribution to the balance directly
  and flags the original row; no compensating row is appended. The ledger
  therefore reconstructs balances by summing non-cancelled rows only.
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service exposes the ledger's write and read operations.
type Service struct {
	store    Store
	resolver VariantResolver
	log      *zap.Logger
}

// NewService creates a ledger service. The resolver may be nil when
// code-based operations (batches, by-codes creation) are not used.
func NewService(store Store, resolver VariantResolver, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, resolver: resolver, log: log}
}

// =============================================================================
// CREATE MOVEMENT
// =============================================================================

// CreateMovementInput is the request to record one movement.
type CreateMovementInput struct {
	VariantID VariantID
	Type      MovementType

	// Qty is in meters. Non-negative magnitude for RECEIPT/ISSUE;
	// signed delta for ADJUST. Zero is allowed only together with a
	// roll count (roll-only correction).
	Qty decimal.Decimal
	UOM UnitOfMeasure

	// RollCount adjusts on_hand_rolls independently of Qty. Nil means
	// "not reported this time", which leaves the roll balance untouched.
	RollCount *int64

	DocumentID string
	Reason     string
}

// MovementResult reports the created movement and the post-write balance.
type MovementResult struct {
	MovementID MovementID
	Type       MovementType
	DeltaQty   decimal.Decimal
	Previous   Balance
	Balance    Balance
}

// CreateMovement records one movement and atomically updates the variant's
// balance. NotFound when the variant does not exist, with no partial write.
func (s *Service) CreateMovement(ctx context.Context, in CreateMovementInput) (*MovementResult, error) {
	m, err := s.buildMovement(in)
	if err != nil {
		return nil, err
	}

	effect, err := s.store.ApplyMovement(ctx, *m)
	if err != nil {
		return nil, err
	}

	s.log.Info("movement applied",
		zap.Int64("movement_id", int64(effect.Movement.ID)),
		zap.Int64("variant_id", int64(effect.Movement.VariantID)),
		zap.String("type", string(effect.Movement.Type)),
		zap.String("delta_m", effect.Movement.DeltaQty.String()),
		zap.String("on_hand_m", effect.New.OnHandMeters.String()),
	)

	return &MovementResult{
		MovementID: effect.Movement.ID,
		Type:       effect.Movement.Type,
		DeltaQty:   effect.Movement.DeltaQty,
		Previous:   effect.Previous,
		Balance:    effect.New,
	}, nil
}

// CreateMovementByCodes resolves the variant by fabric and color code, then
// records the movement.
func (s *Service) CreateMovementByCodes(ctx context.Context, fabricCode, colorCode string, in CreateMovementInput) (*MovementResult, error) {
	id, err := s.resolver.ResolveVariant(ctx, fabricCode, colorCode)
	if err != nil {
		return nil, err
	}
	in.VariantID = VariantID(id)
	return s.CreateMovement(ctx, in)
}

// buildMovement validates the input and derives the signed deltas.
func (s *Service) buildMovement(in CreateMovementInput) (*Movement, error) {
	if !in.Type.Valid() {
		return nil, invalidf("movement_type", "unknown type %q", string(in.Type))
	}
	if !in.UOM.Valid() {
		return nil, invalidf("uom", "unknown unit %q (want %q or %q)", string(in.UOM), UnitMeters, UnitRolls)
	}

	qty := in.Qty.Round(QuantityScale)
	if qty.IsZero() && in.RollCount == nil {
		return nil, invalidf("qty", "zero quantity requires a roll_count")
	}

	delta := qty
	rolls := in.RollCount
	switch in.Type {
	case MovementReceipt:
		if qty.IsNegative() {
			return nil, invalidf("qty", "RECEIPT takes a non-negative magnitude, got %s", qty)
		}
		if rolls != nil && *rolls < 0 {
			return nil, invalidf("roll_count", "RECEIPT takes a non-negative roll count, got %d", *rolls)
		}
	case MovementIssue:
		if qty.IsNegative() {
			return nil, invalidf("qty", "ISSUE takes a non-negative magnitude, got %s", qty)
		}
		delta = qty.Neg()
		if rolls != nil {
			if *rolls < 0 {
				return nil, invalidf("roll_count", "ISSUE takes a non-negative roll count, got %d", *rolls)
			}
			neg := -*rolls
			rolls = &neg
		}
	case MovementAdjust:
		// Caller-signed delta; rolls as given.
	}

	now := time.Now().UTC()
	return &Movement{
		Timestamp:   now,
		VariantID:   in.VariantID,
		Type:        in.Type,
		DeltaQty:    delta,
		OriginalQty: qty,
		OriginalUOM: in.UOM,
		RollCount:   rolls,
		DocumentID:  in.DocumentID,
		Reason:      in.Reason,
		CreatedAt:   now,
	}, nil
}

// =============================================================================
// CANCEL MOVEMENT
// =============================================================================

// CancelResult reports a successful cancellation.
type CancelResult struct {
	MovementID    MovementID
	ReversedQty   decimal.Decimal
	ReversedRolls *int64
	CancelledAt   time.Time
	Balance       Balance
}

// CancelMovement transitions a movement to cancelled and reverses its
// effect on the balance. The original row is kept as the audit trail.
// Fails with ErrMovementNotFound or ErrAlreadyCancelled; in both cases the
// balance is untouched. The reason, if given, is recorded in the log only:
// the stored movement is immutable apart from the cancellation flag.
func (s *Service) CancelMovement(ctx context.Context, id MovementID, reason string) (*CancelResult, error) {
	effect, err := s.store.CancelMovement(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Info("movement cancelled",
		zap.Int64("movement_id", int64(id)),
		zap.Int64("variant_id", int64(effect.Movement.VariantID)),
		zap.String("reversed_m", effect.ReversedQty.String()),
		zap.String("reason", reason),
	)

	var cancelledAt time.Time
	if effect.Movement.CancelledAt != nil {
		cancelledAt = *effect.Movement.CancelledAt
	}
	return &CancelResult{
		MovementID:    id,
		ReversedQty:   effect.ReversedQty,
		ReversedRolls: effect.ReversedRolls,
		CancelledAt:   cancelledAt,
		Balance:       effect.New,
	}, nil
}

// =============================================================================
// BALANCE READS
// =============================================================================

// Balance returns the variant's current balance; a variant with no
// movements reads as zero.
func (s *Service) Balance(ctx context.Context, variantID VariantID) (Balance, error) {
	return s.store.Balance(ctx, variantID)
}

// RebuildBalance recomputes and stores the balance from the ledger.
func (s *Service) RebuildBalance(ctx context.Context, variantID VariantID) (Balance, error) {
	b, err := s.store.RebuildBalance(ctx, variantID)
	if err != nil {
		return Balance{}, err
	}
	s.log.Info("balance rebuilt",
		zap.Int64("variant_id", int64(variantID)),
		zap.String("on_hand_m", b.OnHandMeters.String()),
	)
	return b, nil
}
