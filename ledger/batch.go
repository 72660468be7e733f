/*
batch.go - Bulk movement application with per-entry failure isolation

CONTRACT:
  Entries are applied independently, in input order, through the same
  validation and atomic-write path as single movements. One entry's
  failure - unresolvable codes, validation, storage error - is recorded
  and processing continues; previously committed entries stay committed.
  Each entry is its own transaction inside the Store, so there is nothing
  to roll back across entries.

  Final balances are order-independent (increments commute), but the
  previous/new balance pair reported per entry is only meaningful because
  entries touching the same variant run sequentially in input order.
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BatchEntry is one movement request inside a batch, identified by codes
// rather than a variant id.
type BatchEntry struct {
	FabricCode string
	ColorCode  string
	Qty        decimal.Decimal
	UOM        UnitOfMeasure
	RollCount  *int64
}

// BatchProcessed reports one successfully applied entry.
type BatchProcessed struct {
	FabricCode      string
	ColorCode       string
	Qty             decimal.Decimal
	MovementID      MovementID
	PreviousBalance decimal.Decimal // meters, immediately before this entry
	NewBalance      decimal.Decimal // meters, immediately after this entry
}

// BatchFailure reports one rejected entry with its identifying fields.
type BatchFailure struct {
	FabricCode string
	ColorCode  string
	Qty        decimal.Decimal
	Error      string
}

// BatchSummary totals a batch outcome.
type BatchSummary struct {
	Total     int
	Processed int
	Failed    int
	TotalQty  decimal.Decimal // sum of absolute processed magnitudes, meters
}

// BatchResult is the full outcome of one batch call.
type BatchResult struct {
	Processed []BatchProcessed
	Failed    []BatchFailure
	Summary   BatchSummary
}

// CreateMovementsBatch applies each entry independently with the given
// movement type and shared document/reason. The call itself only fails on
// invalid arguments (unknown movement type); per-entry errors end up in
// Failed. An empty batch is a valid no-op.
func (s *Service) CreateMovementsBatch(ctx context.Context, entries []BatchEntry, movementType MovementType, documentID, reason string) (*BatchResult, error) {
	if !movementType.Valid() {
		return nil, invalidf("movement_type", "unknown type %q", string(movementType))
	}

	result := &BatchResult{
		Processed: []BatchProcessed{},
		Failed:    []BatchFailure{},
		Summary:   BatchSummary{Total: len(entries), TotalQty: decimal.Zero},
	}

	for _, e := range entries {
		res, err := s.CreateMovementByCodes(ctx, e.FabricCode, e.ColorCode, CreateMovementInput{
			Type:       movementType,
			Qty:        e.Qty,
			UOM:        e.UOM,
			RollCount:  e.RollCount,
			DocumentID: documentID,
			Reason:     reason,
		})
		if err != nil {
			result.Failed = append(result.Failed, BatchFailure{
				FabricCode: e.FabricCode,
				ColorCode:  e.ColorCode,
				Qty:        e.Qty,
				Error:      err.Error(),
			})
			continue
		}

		result.Processed = append(result.Processed, BatchProcessed{
			FabricCode:      e.FabricCode,
			ColorCode:       e.ColorCode,
			Qty:             e.Qty,
			MovementID:      res.MovementID,
			PreviousBalance: res.Previous.OnHandMeters,
			NewBalance:      res.Balance.OnHandMeters,
		})
		result.Summary.TotalQty = result.Summary.TotalQty.Add(res.DeltaQty.Abs())
	}

	result.Summary.Processed = len(result.Processed)
	result.Summary.Failed = len(result.Failed)

	s.log.Info("movement batch finished",
		zap.String("type", string(movementType)),
		zap.Int("total", result.Summary.Total),
		zap.Int("processed", result.Summary.Processed),
		zap.Int("failed", result.Summary.Failed),
	)
	return result, nil
}
