package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/ledger"
	"github.com/warp/stock-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// applyAt writes a movement with a chosen timestamp straight through the
// store, bypassing the service's "now". History tests need fixed clocks.
func applyAt(t *testing.T, store *sqlite.Store, variant ledger.VariantID, movementType ledger.MovementType, qty string, ts time.Time, documentID string) ledger.MovementID {
	t.Helper()

	delta := dec(qty)
	effect, err := store.ApplyMovement(context.Background(), ledger.Movement{
		Timestamp:   ts,
		VariantID:   variant,
		Type:        movementType,
		DeltaQty:    delta,
		OriginalQty: delta.Abs(),
		OriginalUOM: ledger.UnitMeters,
		DocumentID:  documentID,
		CreatedAt:   ts,
	})
	require.NoError(t, err)
	return effect.Movement.ID
}

func day(yr int, m time.Month, d, hour int) time.Time {
	return time.Date(yr, m, d, hour, 0, 0, 0, time.UTC)
}

// =============================================================================
// DATE RANGE SEMANTICS
// =============================================================================

func TestSearchMovements_SingleDayRange_CoversWholeDay(t *testing.T) {
	// GIVEN: Movements on Jan 16, Jan 17 (morning and evening), and Jan 18
	// WHEN: Filtering from 2026-01-17 to 2026-01-17 (both bare dates)
	// THEN: Both Jan 17 movements match; the other days do not

	svc, cat, store := newTestLedger(t)
	variant := seedVariant(t, cat, "LIN_55", "NAVY")

	applyAt(t, store, variant, ledger.MovementReceipt, "10", day(2026, time.January, 16, 12), "")
	applyAt(t, store, variant, ledger.MovementReceipt, "20", day(2026, time.January, 17, 8), "")
	applyAt(t, store, variant, ledger.MovementIssue, "-5", day(2026, time.January, 17, 22), "")
	applyAt(t, store, variant, ledger.MovementReceipt, "30", day(2026, time.January, 18, 0), "")

	from := day(2026, time.January, 17, 0)
	to := day(2026, time.January, 17, 0)
	page, err := svc.SearchMovements(context.Background(), ledger.HistoryQuery{
		DateFrom: &from,
		DateTo:   &to,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	for _, e := range page.Items {
		assert.Equal(t, 17, e.Timestamp.Day())
	}
}

func TestSearchMovements_NonMidnightUpperBound_StaysExclusive(t *testing.T) {
	// An explicit time in DateTo is used as-is: [from, to).
	svc, cat, store := newTestLedger(t)
	variant := seedVariant(t, cat, "LIN_55", "NAVY")

	applyAt(t, store, variant, ledger.MovementReceipt, "10", day(2026, time.January, 17, 8), "")
	applyAt(t, store, variant, ledger.MovementReceipt, "20", day(2026, time.January, 17, 12), "")

	from := day(2026, time.January, 17, 0)
	to := day(2026, time.January, 17, 12)
	page, err := svc.SearchMovements(context.Background(), ledger.HistoryQuery{
		DateFrom: &from,
		DateTo:   &to,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 8, page.Items[0].Timestamp.Hour())
}

// =============================================================================
// FILTERS
// =============================================================================

func TestSearchMovements_CancelledHiddenByDefault(t *testing.T) {
	// GIVEN: One live and one cancelled movement
	// WHEN: Searching with and without include_cancelled
	// THEN: The cancelled row appears only when asked for

	svc, cat, store := newTestLedger(t)
	ctx := context.Background()
	variant := seedVariant(t, cat, "LIN_55", "NAVY")

	applyAt(t, store, variant, ledger.MovementReceipt, "10", day(2026, time.February, 1, 9), "")
	cancelled := applyAt(t, store, variant, ledger.MovementReceipt, "20", day(2026, time.February, 1, 10), "")
	_, err := svc.CancelMovement(ctx, cancelled, "")
	require.NoError(t, err)

	page, err := svc.SearchMovements(ctx, ledger.HistoryQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	page, err = svc.SearchMovements(ctx, ledger.HistoryQuery{IncludeCancelled: true})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestSearchMovements_FilterComposition(t *testing.T) {
	// All set filters are ANDed together.
	svc, cat, store := newTestLedger(t)
	navy := seedVariant(t, cat, "LIN_55", "NAVY")
	ecru := seedVariant(t, cat, "LIN_55", "ECRU")

	applyAt(t, store, navy, ledger.MovementReceipt, "40", day(2026, time.March, 2, 9), "PO-1")
	applyAt(t, store, navy, ledger.MovementIssue, "-12.5", day(2026, time.March, 3, 9), "DN-1")
	applyAt(t, store, ecru, ledger.MovementReceipt, "40", day(2026, time.March, 2, 10), "PO-1")

	page, err := svc.SearchMovements(context.Background(), ledger.HistoryQuery{
		FabricCode: "LIN_55",
		ColorCode:  "NAVY",
		Type:       ledger.MovementReceipt,
	})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "NAVY", page.Items[0].ColorCode)
	assert.Equal(t, "LIN_55", page.Items[0].FabricCode)

	page, err = svc.SearchMovements(context.Background(), ledger.HistoryQuery{DocumentID: "PO-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestSearchMovements_QtyBoundsUseMagnitude(t *testing.T) {
	// Min/max quantity filters compare the absolute delta, so outflows
	// are matched by size, not by their negative sign.
	svc, cat, store := newTestLedger(t)
	variant := seedVariant(t, cat, "LIN_55", "NAVY")

	applyAt(t, store, variant, ledger.MovementReceipt, "5", day(2026, time.March, 2, 9), "")
	applyAt(t, store, variant, ledger.MovementIssue, "-25", day(2026, time.March, 2, 10), "")
	applyAt(t, store, variant, ledger.MovementReceipt, "100", day(2026, time.March, 2, 11), "")

	min := dec("10")
	max := dec("50")
	page, err := svc.SearchMovements(context.Background(), ledger.HistoryQuery{
		MinQty: &min,
		MaxQty: &max,
	})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assertQty(t, "-25", page.Items[0].DeltaQty)
}

// =============================================================================
// SORTING AND PAGINATION
// =============================================================================

func TestSearchMovements_DefaultSort_NewestFirst(t *testing.T) {
	svc, cat, store := newTestLedger(t)
	variant := seedVariant(t, cat, "LIN_55", "NAVY")

	applyAt(t, store, variant, ledger.MovementReceipt, "1", day(2026, time.April, 1, 9), "")
	applyAt(t, store, variant, ledger.MovementReceipt, "2", day(2026, time.April, 2, 9), "")
	applyAt(t, store, variant, ledger.MovementReceipt, "3", day(2026, time.April, 3, 9), "")

	page, err := svc.SearchMovements(context.Background(), ledger.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assertQty(t, "3", page.Items[0].DeltaQty)
	assertQty(t, "1", page.Items[2].DeltaQty)
}

func TestSearchMovements_UnknownSortField_FallsBackToTimestamp(t *testing.T) {
	// An unrecognized sort field must not error (and must not reach the
	// SQL); it falls back to timestamp descending.
	svc, cat, store := newTestLedger(t)
	variant := seedVariant(t, cat, "LIN_55", "NAVY")

	applyAt(t, store, variant, ledger.MovementReceipt, "1", day(2026, time.April, 1, 9), "")
	applyAt(t, store, variant, ledger.MovementReceipt, "2", day(2026, time.April, 2, 9), "")

	page, err := svc.SearchMovements(context.Background(), ledger.HistoryQuery{
		SortBy:  ledger.SortField("ts; DROP TABLE stock_movements"),
		SortDir: ledger.SortDir("sideways"),
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assertQty(t, "2", page.Items[0].DeltaQty)
}

func TestSearchMovements_SortByDeltaAscending(t *testing.T) {
	svc, cat, store := newTestLedger(t)
	variant := seedVariant(t, cat, "LIN_55", "NAVY")

	applyAt(t, store, variant, ledger.MovementReceipt, "50", day(2026, time.April, 1, 9), "")
	applyAt(t, store, variant, ledger.MovementIssue, "-20", day(2026, time.April, 1, 10), "")
	applyAt(t, store, variant, ledger.MovementReceipt, "5", day(2026, time.April, 1, 11), "")

	page, err := svc.SearchMovements(context.Background(), ledger.HistoryQuery{
		SortBy:  ledger.SortDelta,
		SortDir: ledger.SortAsc,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assertQty(t, "-20", page.Items[0].DeltaQty)
	assertQty(t, "50", page.Items[2].DeltaQty)
}

func TestSearchMovements_Pagination(t *testing.T) {
	// GIVEN: 5 movements
	// WHEN: Paging with limit 2
	// THEN: Pages don't overlap and Total always reports the full count

	svc, cat, store := newTestLedger(t)
	variant := seedVariant(t, cat, "LIN_55", "NAVY")

	for i := 0; i < 5; i++ {
		applyAt(t, store, variant, ledger.MovementReceipt, "10", day(2026, time.May, 1, 8+i), "")
	}

	seen := map[ledger.MovementID]bool{}
	for offset := 0; offset < 5; offset += 2 {
		page, err := svc.SearchMovements(context.Background(), ledger.HistoryQuery{Limit: 2, Offset: offset})
		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
		assert.Equal(t, 2, page.Limit)
		for _, e := range page.Items {
			assert.False(t, seen[e.ID], "movement %d returned twice", e.ID)
			seen[e.ID] = true
		}
	}
	assert.Len(t, seen, 5)
}

func TestSearchMovements_LimitClampedToMaximum(t *testing.T) {
	svc, cat, _ := newTestLedger(t)
	seedVariant(t, cat, "LIN_55", "NAVY")

	page, err := svc.SearchMovements(context.Background(), ledger.HistoryQuery{Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)
}
