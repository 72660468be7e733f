package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/ledger"
)

// =============================================================================
// BATCH MOVEMENTS
// =============================================================================

func TestCreateMovementsBatch_PartialFailure_IsIsolated(t *testing.T) {
	// GIVEN: A batch where the middle entry references an unknown color
	// WHEN: Applying the batch as receipts
	// THEN: The good entries commit, the bad one is reported, and the
	//       committed ones stay committed

	svc, cat, _ := newTestLedger(t)
	ctx := context.Background()
	seedVariant(t, cat, "LIN_55", "NAVY")
	seedVariant(t, cat, "LIN_55", "ECRU")

	result, err := svc.CreateMovementsBatch(ctx, []ledger.BatchEntry{
		{FabricCode: "LIN_55", ColorCode: "NAVY", Qty: dec("40"), UOM: ledger.UnitMeters},
		{FabricCode: "LIN_55", ColorCode: "NOPE", Qty: dec("10"), UOM: ledger.UnitMeters},
		{FabricCode: "LIN_55", ColorCode: "ECRU", Qty: dec("25.5"), UOM: ledger.UnitMeters},
	}, ledger.MovementReceipt, "PO-2001", "")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Summary.Total)
	assert.Equal(t, 2, result.Summary.Processed)
	assert.Equal(t, 1, result.Summary.Failed)
	assertQty(t, "65.5", result.Summary.TotalQty)

	require.Len(t, result.Failed, 1)
	assert.Equal(t, "NOPE", result.Failed[0].ColorCode)

	// The entries before and after the failure really landed.
	navy, err := svc.SearchMovements(ctx, ledger.HistoryQuery{FabricCode: "LIN_55", ColorCode: "NAVY"})
	require.NoError(t, err)
	assert.Equal(t, 1, navy.Total)
	ecru, err := svc.SearchMovements(ctx, ledger.HistoryQuery{FabricCode: "LIN_55", ColorCode: "ECRU"})
	require.NoError(t, err)
	assert.Equal(t, 1, ecru.Total)
}

func TestCreateMovementsBatch_Empty_IsValidNoop(t *testing.T) {
	svc, _, _ := newTestLedger(t)

	result, err := svc.CreateMovementsBatch(context.Background(), nil, ledger.MovementReceipt, "", "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Summary.Total)
	assert.Empty(t, result.Processed)
	assert.Empty(t, result.Failed)
	assert.True(t, result.Summary.TotalQty.IsZero())
}

func TestCreateMovementsBatch_SameVariant_BalancesChain(t *testing.T) {
	// GIVEN: Two receipts for the same variant in one batch
	// WHEN: Applying them
	// THEN: The second entry's previous balance is the first entry's new one

	svc, cat, _ := newTestLedger(t)
	seedVariant(t, cat, "LIN_55", "NAVY")

	result, err := svc.CreateMovementsBatch(context.Background(), []ledger.BatchEntry{
		{FabricCode: "LIN_55", ColorCode: "NAVY", Qty: dec("10"), UOM: ledger.UnitMeters},
		{FabricCode: "LIN_55", ColorCode: "NAVY", Qty: dec("7.25"), UOM: ledger.UnitMeters},
	}, ledger.MovementReceipt, "", "")
	require.NoError(t, err)
	require.Len(t, result.Processed, 2)

	assertQty(t, "0", result.Processed[0].PreviousBalance)
	assertQty(t, "10", result.Processed[0].NewBalance)
	assertQty(t, "10", result.Processed[1].PreviousBalance)
	assertQty(t, "17.25", result.Processed[1].NewBalance)
}

func TestCreateMovementsBatch_IssueBatch_NegatesEachEntry(t *testing.T) {
	svc, cat, _ := newTestLedger(t)
	ctx := context.Background()
	variant := seedVariant(t, cat, "LIN_55", "NAVY")

	_, err := svc.CreateMovement(ctx, ledger.CreateMovementInput{
		VariantID: variant, Type: ledger.MovementReceipt, Qty: dec("100"), UOM: ledger.UnitMeters,
	})
	require.NoError(t, err)

	result, err := svc.CreateMovementsBatch(ctx, []ledger.BatchEntry{
		{FabricCode: "LIN_55", ColorCode: "NAVY", Qty: dec("30"), UOM: ledger.UnitMeters},
		{FabricCode: "LIN_55", ColorCode: "NAVY", Qty: dec("-5"), UOM: ledger.UnitMeters},
	}, ledger.MovementIssue, "DN-17", "")
	require.NoError(t, err)

	// Magnitude entry applied as an outflow, pre-signed entry rejected.
	assert.Equal(t, 1, result.Summary.Processed)
	assert.Equal(t, 1, result.Summary.Failed)
	assertQty(t, "70", result.Processed[0].NewBalance)

	b, err := svc.Balance(ctx, variant)
	require.NoError(t, err)
	assertQty(t, "70", b.OnHandMeters)
}

func TestCreateMovementsBatch_UnknownType_FailsWholeCall(t *testing.T) {
	svc, cat, _ := newTestLedger(t)
	seedVariant(t, cat, "LIN_55", "NAVY")

	_, err := svc.CreateMovementsBatch(context.Background(), []ledger.BatchEntry{
		{FabricCode: "LIN_55", ColorCode: "NAVY", Qty: decimal.NewFromInt(1), UOM: ledger.UnitMeters},
	}, ledger.MovementType("TRANSFER"), "", "")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}
