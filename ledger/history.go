/*
history.go - Filtered, paginated read view over the movement ledger

PURPOSE:
  Defines the query surface for movement history: optional AND-composed
  filters, limit/offset pagination with a total count, and a restricted
  sort vocabulary with a safe fallback.

DATE SEMANTICS:
  Date ranges are half-open: [from, to). A caller filtering "from
  2026-01-17 to 2026-01-17" means the entire day, so a DateTo that falls on
  midnight is widened to the following midnight before it becomes the
  exclusive upper bound. Filtering with "< day" would silently drop the
  whole day's movements.
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SORTING
// =============================================================================

type SortField string

const (
	SortTimestamp    SortField = "ts"
	SortDelta        SortField = "delta_qty_m"
	SortMovementType SortField = "movement_type"
)

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// =============================================================================
// QUERY
// =============================================================================

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryQuery carries the optional filters for a movement search. All set
// filters are intersected. Cancelled movements are excluded unless
// IncludeCancelled is set.
type HistoryQuery struct {
	FabricCode string // exact match
	ColorCode  string // exact match
	Type       MovementType

	// DateFrom is inclusive. DateTo is exclusive after normalization; a
	// midnight DateTo is first widened by one day so the named day is
	// fully included.
	DateFrom *time.Time
	DateTo   *time.Time

	// MinQty/MaxQty bound the absolute delta in meters.
	MinQty *decimal.Decimal
	MaxQty *decimal.Decimal

	DocumentID       string
	IncludeCancelled bool

	Limit  int
	Offset int

	SortBy  SortField
	SortDir SortDir
}

// withDefaults normalizes pagination, sorting, and the date range.
// Unrecognized sort fields fall back to timestamp descending rather than
// erroring.
func (q HistoryQuery) withDefaults() HistoryQuery {
	if q.Limit <= 0 {
		q.Limit = defaultHistoryLimit
	}
	if q.Limit > maxHistoryLimit {
		q.Limit = maxHistoryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	switch q.SortBy {
	case SortTimestamp, SortDelta, SortMovementType:
	default:
		q.SortBy = SortTimestamp
		q.SortDir = SortDesc
	}
	if q.SortDir != SortAsc && q.SortDir != SortDesc {
		q.SortDir = SortDesc
	}

	if q.DateTo != nil {
		to := exclusiveEnd(*q.DateTo)
		q.DateTo = &to
	}
	return q
}

// exclusiveEnd converts an upper date bound to its exclusive instant.
// A bare date (midnight) means "through the end of that day".
func exclusiveEnd(t time.Time) time.Time {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.AddDate(0, 0, 1)
	}
	return t
}

// =============================================================================
// RESULTS
// =============================================================================

// HistoryEntry is a movement joined with the identifying codes of its
// variant, for display without a second lookup.
type HistoryEntry struct {
	Movement
	FabricCode string
	ColorCode  string
}

// HistoryPage is one page of results plus the total matching count.
type HistoryPage struct {
	Items  []HistoryEntry
	Total  int
	Limit  int
	Offset int
}

// SearchMovements returns a page of movement history matching the query.
func (s *Service) SearchMovements(ctx context.Context, q HistoryQuery) (*HistoryPage, error) {
	q = q.withDefaults()

	items, total, err := s.store.SearchMovements(ctx, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []HistoryEntry{}
	}
	return &HistoryPage{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}
