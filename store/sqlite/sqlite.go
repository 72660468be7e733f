/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements persistence for the movement ledger (ledger.Store) and the
  fabric catalog (catalog.Store) using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  ledger.Store:  movement rows + atomic balance maintenance
  catalog.Store: fabrics and color variants

ATOMIC BALANCE MAINTENANCE:
  Every movement write runs in one transaction: insert the movement row,
  then increment the balance row with
      ON CONFLICT(variant_id) DO UPDATE
          SET on_hand_mm = stock_balances.on_hand_mm + excluded.on_hand_mm
  so the new balance is computed inside the database, never read-modify-
  written in application code. Concurrent movements on the same variant
  cannot lose updates.

QUANTITY STORAGE:
  Meter quantities are stored as INTEGER thousandths of a meter (the
  canonical scale is 3 decimal places). Integer columns keep the SQL
  increments exact; the boundary converts to and from decimal.Decimal.

TIMESTAMPS:
  Stored as fixed-width UTC text ("2006-01-02T15:04:05.000000000Z") so
  lexicographic ORDER BY and range comparisons agree with time order.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/stock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go:  ledger persistence contract
  - catalog/store.go: catalog persistence contract
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/stock-ledger/catalog"
	"github.com/warp/stock-ledger/ledger"
)

// timeLayout is fixed-width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements the ledger and catalog storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ ledger.Store  = (*Store)(nil)
	_ catalog.Store = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Fabric articles
	CREATE TABLE IF NOT EXISTS fabrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		composition TEXT NOT NULL DEFAULT '',
		width_cm INTEGER,
		created_at TEXT NOT NULL
	);

	-- Color variants; the unit everything else hangs off
	CREATE TABLE IF NOT EXISTS fabric_variants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fabric_id INTEGER NOT NULL REFERENCES fabrics(id),
		color_code TEXT NOT NULL,
		color_name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE(fabric_id, color_code)
	);

	CREATE INDEX IF NOT EXISTS idx_variants_fabric
		ON fabric_variants(fabric_id);

	-- Movements (append-only apart from the one-way cancellation flag).
	-- Quantities are integer thousandths of a meter.
	CREATE TABLE IF NOT EXISTS stock_movements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts TEXT NOT NULL,
		variant_id INTEGER NOT NULL REFERENCES fabric_variants(id),
		movement_type TEXT NOT NULL CHECK (movement_type IN ('RECEIPT','ISSUE','ADJUST')),
		delta_qty_mm INTEGER NOT NULL,
		original_qty_mm INTEGER NOT NULL,
		original_uom TEXT NOT NULL CHECK (original_uom IN ('m','roll')),
		roll_count INTEGER,
		document_id TEXT,
		reason TEXT,
		is_cancelled INTEGER NOT NULL DEFAULT 0,
		cancelled_at TEXT,
		created_at TEXT NOT NULL
	);

	-- Balance recomputation and per-variant history (hot path)
	CREATE INDEX IF NOT EXISTS idx_movements_variant_ts
		ON stock_movements(variant_id, ts);
	CREATE INDEX IF NOT EXISTS idx_movements_ts
		ON stock_movements(ts);
	CREATE INDEX IF NOT EXISTS idx_movements_type
		ON stock_movements(movement_type);
	CREATE INDEX IF NOT EXISTS idx_movements_document
		ON stock_movements(document_id) WHERE document_id IS NOT NULL;

	-- Materialized balances, one row per variant with recorded movements
	CREATE TABLE IF NOT EXISTS stock_balances (
		variant_id INTEGER PRIMARY KEY REFERENCES fabric_variants(id),
		on_hand_mm INTEGER NOT NULL DEFAULT 0,
		on_hand_rolls INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

// ApplyMovement inserts the movement and increments the variant's balance
// in one transaction.
func (s *Store) ApplyMovement(ctx context.Context, m ledger.Movement) (*ledger.MovementEffect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := variantExistsTx(ctx, tx, m.VariantID); err != nil {
		return nil, err
	}

	previous, err := readBalanceTx(ctx, tx, m.VariantID)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO stock_movements
		(ts, variant_id, movement_type, delta_qty_mm, original_qty_mm, original_uom,
		 roll_count, document_id, reason, is_cancelled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`,
		m.Timestamp.UTC().Format(timeLayout),
		int64(m.VariantID),
		string(m.Type),
		toMilli(m.DeltaQty),
		toMilli(m.OriginalQty),
		string(m.OriginalUOM),
		m.RollCount,
		nullString(m.DocumentID),
		nullString(m.Reason),
		m.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert movement: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read movement id: %w", err)
	}
	m.ID = ledger.MovementID(id)

	rolls := int64(0)
	if m.RollCount != nil {
		rolls = *m.RollCount
	}
	if err := incrementBalanceTx(ctx, tx, m.VariantID, toMilli(m.DeltaQty), rolls); err != nil {
		return nil, err
	}

	updated, err := readBalanceTx(ctx, tx, m.VariantID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit movement: %w", err)
	}

	return &ledger.MovementEffect{Movement: m, Previous: previous, New: updated}, nil
}

// Movement returns one movement by id.
func (s *Store) Movement(ctx context.Context, id ledger.MovementID) (*ledger.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return movementTx(ctx, s.db, id)
}

// CancelMovement flips the cancellation flag and reverses the movement's
// balance contribution. The conditional UPDATE is the guard: it matches
// only a live row, so a second attempt affects zero rows and fails without
// touching the balance.
func (s *Store) CancelMovement(ctx context.Context, id ledger.MovementID) (*ledger.CancelEffect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cancelledAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE stock_movements
		SET is_cancelled = 1, cancelled_at = ?
		WHERE id = ? AND is_cancelled = 0
	`, cancelledAt.Format(timeLayout), int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to cancel movement: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		var cancelled int
		err := tx.QueryRowContext(ctx,
			"SELECT is_cancelled FROM stock_movements WHERE id = ?", int64(id),
		).Scan(&cancelled)
		if err == sql.ErrNoRows {
			return nil, ledger.ErrMovementNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ledger.ErrAlreadyCancelled
	}

	m, err := movementTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	var reversedRolls *int64
	rolls := int64(0)
	if m.RollCount != nil {
		r := -*m.RollCount
		reversedRolls = &r
		rolls = r
	}
	if err := incrementBalanceTx(ctx, tx, m.VariantID, -toMilli(m.DeltaQty), rolls); err != nil {
		return nil, err
	}

	updated, err := readBalanceTx(ctx, tx, m.VariantID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	return &ledger.CancelEffect{
		Movement:      *m,
		ReversedQty:   m.DeltaQty.Neg(),
		ReversedRolls: reversedRolls,
		New:           updated,
	}, nil
}

// Balance returns the variant's current balance; a missing row reads as zero.
func (s *Store) Balance(ctx context.Context, variantID ledger.VariantID) (ledger.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return readBalanceTx(ctx, s.db, variantID)
}

// RebuildBalance recomputes the balance from non-cancelled movements and
// overwrites the stored row.
func (s *Store) RebuildBalance(ctx context.Context, variantID ledger.VariantID) (ledger.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Balance{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := variantExistsTx(ctx, tx, variantID); err != nil {
		return ledger.Balance{}, err
	}

	var meters, rolls int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(delta_qty_mm), 0), COALESCE(SUM(COALESCE(roll_count, 0)), 0)
		FROM stock_movements
		WHERE variant_id = ? AND is_cancelled = 0
	`, int64(variantID)).Scan(&meters, &rolls)
	if err != nil {
		return ledger.Balance{}, fmt.Errorf("failed to sum movements: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_balances (variant_id, on_hand_mm, on_hand_rolls, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(variant_id) DO UPDATE SET
			on_hand_mm = excluded.on_hand_mm,
			on_hand_rolls = excluded.on_hand_rolls,
			updated_at = excluded.updated_at
	`, int64(variantID), meters, rolls, now.Format(timeLayout))
	if err != nil {
		return ledger.Balance{}, fmt.Errorf("failed to store rebuilt balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ledger.Balance{}, fmt.Errorf("failed to commit rebuild: %w", err)
	}

	return ledger.Balance{
		VariantID:    variantID,
		OnHandMeters: fromMilli(meters),
		OnHandRolls:  decimal.NewFromInt(rolls),
		UpdatedAt:    now,
	}, nil
}

// =============================================================================
// HISTORY SEARCH
// =============================================================================

// sortColumns is the whitelist mapping the query's sort vocabulary to
// actual columns. Anything else never reaches the SQL.
var sortColumns = map[ledger.SortField]string{
	ledger.SortTimestamp:    "m.ts",
	ledger.SortDelta:        "m.delta_qty_mm",
	ledger.SortMovementType: "m.movement_type",
}

// SearchMovements returns the matching history page and total count. The
// query arrives normalized: DateTo is already exclusive.
func (s *Store) SearchMovements(ctx context.Context, q ledger.HistoryQuery) ([]ledger.HistoryEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := []string{"1=1"}
	args := []any{}

	if !q.IncludeCancelled {
		where = append(where, "m.is_cancelled = 0")
	}
	if q.FabricCode != "" {
		where = append(where, "f.code = ?")
		args = append(args, q.FabricCode)
	}
	if q.ColorCode != "" {
		where = append(where, "v.color_code = ?")
		args = append(args, q.ColorCode)
	}
	if q.Type != "" {
		where = append(where, "m.movement_type = ?")
		args = append(args, string(q.Type))
	}
	if q.DateFrom != nil {
		where = append(where, "m.ts >= ?")
		args = append(args, q.DateFrom.UTC().Format(timeLayout))
	}
	if q.DateTo != nil {
		where = append(where, "m.ts < ?")
		args = append(args, q.DateTo.UTC().Format(timeLayout))
	}
	if q.MinQty != nil {
		where = append(where, "ABS(m.delta_qty_mm) >= ?")
		args = append(args, toMilli(*q.MinQty))
	}
	if q.MaxQty != nil {
		where = append(where, "ABS(m.delta_qty_mm) <= ?")
		args = append(args, toMilli(*q.MaxQty))
	}
	if q.DocumentID != "" {
		where = append(where, "m.document_id = ?")
		args = append(args, q.DocumentID)
	}

	base := `
		FROM stock_movements m
		JOIN fabric_variants v ON v.id = m.variant_id
		JOIN fabrics f ON f.id = v.fabric_id
		WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+base, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count movements: %w", err)
	}

	dir := "DESC"
	if q.SortDir == ledger.SortAsc {
		dir = "ASC"
	}
	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = "m.ts"
	}
	// Secondary sort on id keeps pagination stable across equal keys.
	query := `
		SELECT m.id, m.ts, m.variant_id, m.movement_type, m.delta_qty_mm,
		       m.original_qty_mm, m.original_uom, m.roll_count, m.document_id,
		       m.reason, m.is_cancelled, m.cancelled_at, m.created_at,
		       f.code, v.color_code
	` + base + fmt.Sprintf(" ORDER BY %s %s, m.id %s LIMIT ? OFFSET ?", col, dir, dir)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var entries []ledger.HistoryEntry
	for rows.Next() {
		var e ledger.HistoryEntry
		if err := scanMovement(rows.Scan, &e.Movement, &e.FabricCode, &e.ColorCode); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// =============================================================================
// LEDGER HELPERS
// =============================================================================

// queryer covers *sql.DB and *sql.Tx for the shared helpers.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func variantExistsTx(ctx context.Context, db queryer, id ledger.VariantID) error {
	var one int
	err := db.QueryRowContext(ctx,
		"SELECT 1 FROM fabric_variants WHERE id = ?", int64(id),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return ledger.ErrVariantNotFound
	}
	return err
}

func readBalanceTx(ctx context.Context, db queryer, id ledger.VariantID) (ledger.Balance, error) {
	var meters, rolls int64
	var updatedAt string
	err := db.QueryRowContext(ctx,
		"SELECT on_hand_mm, on_hand_rolls, updated_at FROM stock_balances WHERE variant_id = ?",
		int64(id),
	).Scan(&meters, &rolls, &updatedAt)
	if err == sql.ErrNoRows {
		return ledger.ZeroBalance(id), nil
	}
	if err != nil {
		return ledger.Balance{}, fmt.Errorf("failed to read balance: %w", err)
	}

	b := ledger.Balance{
		VariantID:    id,
		OnHandMeters: fromMilli(meters),
		OnHandRolls:  decimal.NewFromInt(rolls),
	}
	b.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return b, nil
}

// incrementBalanceTx applies a delta to the balance row inside the
// caller's transaction. The addition happens in SQL, on the stored value.
func incrementBalanceTx(ctx context.Context, db queryer, id ledger.VariantID, deltaMilli, deltaRolls int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO stock_balances (variant_id, on_hand_mm, on_hand_rolls, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(variant_id) DO UPDATE SET
			on_hand_mm = stock_balances.on_hand_mm + excluded.on_hand_mm,
			on_hand_rolls = stock_balances.on_hand_rolls + excluded.on_hand_rolls,
			updated_at = excluded.updated_at
	`, int64(id), deltaMilli, deltaRolls, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

func movementTx(ctx context.Context, db queryer, id ledger.MovementID) (*ledger.Movement, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, ts, variant_id, movement_type, delta_qty_mm, original_qty_mm,
		       original_uom, roll_count, document_id, reason, is_cancelled,
		       cancelled_at, created_at
		FROM stock_movements
		WHERE id = ?
	`, int64(id))

	var m ledger.Movement
	if err := scanMovement(row.Scan, &m); err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrMovementNotFound
		}
		return nil, err
	}
	return &m, nil
}

// scanMovement scans a movement row, optionally followed by extra columns.
func scanMovement(scan func(...any) error, m *ledger.Movement, extra ...any) error {
	var (
		ts, createdAt         string
		deltaMilli, origMilli int64
		rollCount             sql.NullInt64
		documentID, reason    sql.NullString
		cancelledAt           sql.NullString
	)

	dest := []any{
		&m.ID, &ts, &m.VariantID, &m.Type, &deltaMilli, &origMilli,
		&m.OriginalUOM, &rollCount, &documentID, &reason, &m.IsCancelled,
		&cancelledAt, &createdAt,
	}
	dest = append(dest, extra...)

	if err := scan(dest...); err != nil {
		return err
	}

	m.Timestamp, _ = time.Parse(timeLayout, ts)
	m.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	m.DeltaQty = fromMilli(deltaMilli)
	m.OriginalQty = fromMilli(origMilli)
	if rollCount.Valid {
		m.RollCount = &rollCount.Int64
	}
	m.DocumentID = documentID.String
	m.Reason = reason.String
	if cancelledAt.Valid {
		t, _ := time.Parse(timeLayout, cancelledAt.String)
		m.CancelledAt = &t
	}
	return nil
}

// =============================================================================
// CATALOG STORE (catalog.Store interface)
// =============================================================================

// CreateFabric inserts a fabric.
func (s *Store) CreateFabric(ctx context.Context, f catalog.Fabric) (*catalog.Fabric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fabrics (code, name, composition, width_cm, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, f.Code, f.Name, f.Composition, f.WidthCM, now.Format(timeLayout))
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, catalog.ErrDuplicateFabric
		}
		return nil, fmt.Errorf("failed to insert fabric: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	f.ID = id
	f.CreatedAt = now
	return &f, nil
}

// FabricByCode looks a fabric up by its code.
func (s *Store) FabricByCode(ctx context.Context, code string) (*catalog.Fabric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fabricByCodeTx(ctx, s.db, code)
}

func fabricByCodeTx(ctx context.Context, db queryer, code string) (*catalog.Fabric, error) {
	var f catalog.Fabric
	var widthCM sql.NullInt64
	var createdAt string
	err := db.QueryRowContext(ctx,
		"SELECT id, code, name, composition, width_cm, created_at FROM fabrics WHERE code = ?",
		code,
	).Scan(&f.ID, &f.Code, &f.Name, &f.Composition, &widthCM, &createdAt)
	if err == sql.ErrNoRows {
		return nil, catalog.ErrFabricNotFound
	}
	if err != nil {
		return nil, err
	}

	if widthCM.Valid {
		f.WidthCM = &widthCM.Int64
	}
	f.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &f, nil
}

// FabricByID looks a fabric up by id.
func (s *Store) FabricByID(ctx context.Context, id int64) (*catalog.Fabric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var f catalog.Fabric
	var widthCM sql.NullInt64
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, code, name, composition, width_cm, created_at FROM fabrics WHERE id = ?",
		id,
	).Scan(&f.ID, &f.Code, &f.Name, &f.Composition, &widthCM, &createdAt)
	if err == sql.ErrNoRows {
		return nil, catalog.ErrFabricNotFound
	}
	if err != nil {
		return nil, err
	}

	if widthCM.Valid {
		f.WidthCM = &widthCM.Int64
	}
	f.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &f, nil
}

// Fabrics lists all fabrics ordered by code.
func (s *Store) Fabrics(ctx context.Context) ([]catalog.Fabric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, code, name, composition, width_cm, created_at FROM fabrics ORDER BY code",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fabrics []catalog.Fabric
	for rows.Next() {
		var f catalog.Fabric
		var widthCM sql.NullInt64
		var createdAt string
		if err := rows.Scan(&f.ID, &f.Code, &f.Name, &f.Composition, &widthCM, &createdAt); err != nil {
			return nil, err
		}
		if widthCM.Valid {
			f.WidthCM = &widthCM.Int64
		}
		f.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		fabrics = append(fabrics, f)
	}
	return fabrics, rows.Err()
}

// CreateVariant inserts a variant for an existing fabric.
func (s *Store) CreateVariant(ctx context.Context, v catalog.Variant) (*catalog.Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fabric_variants (fabric_id, color_code, color_name, created_at)
		VALUES (?, ?, ?, ?)
	`, v.FabricID, v.ColorCode, v.ColorName, now.Format(timeLayout))
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, catalog.ErrDuplicateVariant
		}
		return nil, fmt.Errorf("failed to insert variant: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	v.ID = id
	v.CreatedAt = now
	return &v, nil
}

// VariantByCodes resolves a (fabric, color) pair to a variant.
func (s *Store) VariantByCodes(ctx context.Context, fabricCode, colorCode string) (*catalog.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fabric, err := fabricByCodeTx(ctx, s.db, fabricCode)
	if err != nil {
		return nil, err
	}

	var v catalog.Variant
	var createdAt string
	err = s.db.QueryRowContext(ctx,
		"SELECT id, fabric_id, color_code, color_name, created_at FROM fabric_variants WHERE fabric_id = ? AND color_code = ?",
		fabric.ID, colorCode,
	).Scan(&v.ID, &v.FabricID, &v.ColorCode, &v.ColorName, &createdAt)
	if err == sql.ErrNoRows {
		return nil, catalog.ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}

	v.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &v, nil
}

// VariantByID looks a variant up by id.
func (s *Store) VariantByID(ctx context.Context, id int64) (*catalog.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v catalog.Variant
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, fabric_id, color_code, color_name, created_at FROM fabric_variants WHERE id = ?",
		id,
	).Scan(&v.ID, &v.FabricID, &v.ColorCode, &v.ColorName, &createdAt)
	if err == sql.ErrNoRows {
		return nil, catalog.ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}

	v.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &v, nil
}

// DeleteVariant removes a variant with its movements and balance row.
func (s *Store) DeleteVariant(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Children first: the variant row is referenced by both tables.
	if _, err := tx.ExecContext(ctx, "DELETE FROM stock_movements WHERE variant_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete movements: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM stock_balances WHERE variant_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete balance: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM fabric_variants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete variant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return catalog.ErrVariantNotFound
	}

	return tx.Commit()
}

// VariantsByFabric lists a fabric's variants ordered by color code.
func (s *Store) VariantsByFabric(ctx context.Context, fabricID int64) ([]catalog.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, fabric_id, color_code, color_name, created_at FROM fabric_variants WHERE fabric_id = ? ORDER BY color_code",
		fabricID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []catalog.Variant
	for rows.Next() {
		var v catalog.Variant
		var createdAt string
		if err := rows.Scan(&v.ID, &v.FabricID, &v.ColorCode, &v.ColorName, &createdAt); err != nil {
			return nil, err
		}
		v.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"stock_movements", "stock_balances", "fabric_variants", "fabrics"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

// toMilli converts meters to integer thousandths. Quantities are rounded
// to the canonical scale before they reach the store, so this is exact.
func toMilli(d decimal.Decimal) int64 {
	return d.Shift(ledger.QuantityScale).IntPart()
}

func fromMilli(n int64) decimal.Decimal {
	return decimal.New(n, -ledger.QuantityScale)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
