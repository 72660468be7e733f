/*
handlers_test.go - HTTP-level tests for the movement and catalog endpoints

Tests drive the real router with httptest against an in-memory store, so
routing, validation, domain logic, and error mapping are all exercised
together.
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/catalog"
	"github.com/warp/stock-ledger/ledger"
	"github.com/warp/stock-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) http.Handler {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	catalogSvc := catalog.NewService(store, nil)
	ledgerSvc := ledger.NewService(store, catalogSvc, nil)
	return NewRouter(NewHandler(ledgerSvc, catalogSvc, nil))
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), "body: %s", rec.Body.String())
}

// seedCatalog registers LIN_55 with NAVY and ECRU via the API itself.
func seedCatalog(t *testing.T, h http.Handler) {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/fabrics", map[string]any{
		"code": "lin-55", "name": "Linen 55", "composition": "100% linen",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/variants/batch", map[string]any{
		"fabric_code": "LIN_55",
		"entries": []map[string]string{
			{"color_code": "navy", "color_name": "Navy"},
			{"color_code": "ecru", "color_name": "Ecru"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
}

// =============================================================================
// MOVEMENT ENDPOINTS
// =============================================================================

func TestReceiveEndpoint_RecordsAndReportsBalance(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodPost, "/api/movements/receive", map[string]any{
		"fabric_code": "LIN 55",
		"color_code":  "Navy",
		"qty":         "125.500",
		"uom":         "m",
		"document_id": "PO-1001",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var resp MovementResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "RECEIPT", resp.MovementType)
	assert.Equal(t, "125.5", resp.NewQty.String())
	assert.Equal(t, "0", resp.PreviousQty.String())
	assert.NotZero(t, resp.MovementID)
}

func TestIssueEndpoint_PreSignedQty_Rejected(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodPost, "/api/movements/issue", map[string]any{
		"fabric_code": "LIN_55",
		"color_code":  "NAVY",
		"qty":         "-30",
		"uom":         "m",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIssueEndpoint_CustomerNameFoldedIntoReason(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodPost, "/api/movements/receive", map[string]any{
		"fabric_code": "LIN_55", "color_code": "NAVY", "qty": "100", "uom": "m",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/movements/issue", map[string]any{
		"fabric_code":   "LIN_55",
		"color_code":    "NAVY",
		"qty":           "40",
		"uom":           "m",
		"customer_name": "Acme Apparel",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var page HistoryResponse
	rec = do(t, h, http.MethodGet, "/api/movements?movement_type=issue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "customer: Acme Apparel", page.Items[0].Reason)
}

func TestMovementEndpoint_UnknownVariant_404(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodPost, "/api/movements/receive", map[string]any{
		"fabric_code": "LIN_55", "color_code": "GHOST", "qty": "10", "uom": "m",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMovementEndpoint_BadUOM_400(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodPost, "/api/movements/receive", map[string]any{
		"fabric_code": "LIN_55", "color_code": "NAVY", "qty": "10", "uom": "yards",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// BATCH ENDPOINT
// =============================================================================

func TestBatchEndpoint_PartialFailure_207(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodPost, "/api/movements/receive/batch", map[string]any{
		"document_id": "PO-2001",
		"entries": []map[string]any{
			{"fabric_code": "LIN_55", "color_code": "NAVY", "qty": "40", "uom": "m"},
			{"fabric_code": "LIN_55", "color_code": "GHOST", "qty": "10", "uom": "m"},
			{"fabric_code": "LIN_55", "color_code": "ECRU", "qty": "25.5", "uom": "m"},
		},
	})
	require.Equal(t, http.StatusMultiStatus, rec.Code, "body: %s", rec.Body.String())

	var resp BatchMovementResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, 3, resp.Summary.Total)
	assert.Equal(t, 2, resp.Summary.Processed)
	assert.Equal(t, 1, resp.Summary.Failed)
	assert.Equal(t, "65.5", resp.Summary.TotalQty.String())
}

func TestBatchEndpoint_AllSucceed_201_AllFail_422(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodPost, "/api/movements/receive/batch", map[string]any{
		"entries": []map[string]any{
			{"fabric_code": "LIN_55", "color_code": "NAVY", "qty": "40", "uom": "m"},
		},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/movements/issue/batch", map[string]any{
		"entries": []map[string]any{
			{"fabric_code": "LIN_55", "color_code": "GHOST", "qty": "40", "uom": "m"},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBatchEndpoint_OversizedBatch_400(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	entries := make([]map[string]any, 51)
	for i := range entries {
		entries[i] = map[string]any{"fabric_code": "LIN_55", "color_code": "NAVY", "qty": "1", "uom": "m"}
	}
	rec := do(t, h, http.MethodPost, "/api/movements/receive/batch", map[string]any{"entries": entries})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// CANCELLATION ENDPOINT
// =============================================================================

func TestCancelEndpoint_FullLifecycle(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodPost, "/api/movements/receive", map[string]any{
		"fabric_code": "LIN_55", "color_code": "NAVY", "qty": "50", "uom": "m",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created MovementResponse
	decodeBody(t, rec, &created)

	path := fmt.Sprintf("/api/movements/%d/cancel", created.MovementID)

	rec = do(t, h, http.MethodPost, path, CancelRequest{Reason: "wrong lot"})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	var cancel CancelResponse
	decodeBody(t, rec, &cancel)
	assert.Equal(t, "-50", cancel.ReversedQty.String())
	assert.Equal(t, "0", cancel.NewQty.String())

	// Second attempt conflicts.
	rec = do(t, h, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown id is a 404.
	rec = do(t, h, http.MethodPost, "/api/movements/99999/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// HISTORY AND STOCK ENDPOINTS
// =============================================================================

func TestSearchEndpoint_FiltersAndPaginates(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	for i := 0; i < 3; i++ {
		rec := do(t, h, http.MethodPost, "/api/movements/receive", map[string]any{
			"fabric_code": "LIN_55", "color_code": "NAVY", "qty": "10", "uom": "m",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/api/movements/issue", map[string]any{
		"fabric_code": "LIN_55", "color_code": "NAVY", "qty": "5", "uom": "m",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var page HistoryResponse
	rec = do(t, h, http.MethodGet, "/api/movements?movement_type=RECEIPT&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &page)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Limit)

	// Codes in the query string are normalized before matching.
	rec = do(t, h, http.MethodGet, "/api/movements?fabric_code=lin+55&color_code=navy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &page)
	assert.Equal(t, 4, page.Total)
}

func TestSearchEndpoint_BadDate_400(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/movements?date_from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStockEndpoint_ReportsOnHand(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodPost, "/api/movements/receive", map[string]any{
		"fabric_code": "LIN_55", "color_code": "NAVY", "qty": "80", "uom": "m", "roll_count": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/stock?fabric_code=LIN_55&color_code=NAVY", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stock StockDTO
	decodeBody(t, rec, &stock)
	assert.Equal(t, "80", stock.OnHandQty.String())
	assert.Equal(t, "2", stock.OnHandRolls.String())

	// A registered variant with no movements reads as zero, not 404.
	rec = do(t, h, http.MethodGet, "/api/stock?fabric_code=LIN_55&color_code=ECRU", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &stock)
	assert.Equal(t, "0", stock.OnHandQty.String())

	rec = do(t, h, http.MethodGet, "/api/stock?fabric_code=LIN_55&color_code=GHOST", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRebuildEndpoint(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodPost, "/api/movements/receive", map[string]any{
		"fabric_code": "LIN_55", "color_code": "NAVY", "qty": "42.25", "uom": "m",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/stock/rebuild", map[string]any{
		"fabric_code": "LIN_55", "color_code": "NAVY",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	var stock StockDTO
	decodeBody(t, rec, &stock)
	assert.Equal(t, "42.25", stock.OnHandQty.String())
}

// =============================================================================
// CATALOG ENDPOINTS
// =============================================================================

func TestCatalogEndpoints(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	var fabrics []FabricDTO
	rec := do(t, h, http.MethodGet, "/api/fabrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &fabrics)
	require.Len(t, fabrics, 1)
	assert.Equal(t, "LIN_55", fabrics[0].Code)

	var variants []VariantDTO
	rec = do(t, h, http.MethodGet, "/api/fabrics/LIN_55/variants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &variants)
	assert.Len(t, variants, 2)

	// Duplicate fabric conflicts.
	rec = do(t, h, http.MethodPost, "/api/fabrics", map[string]any{"code": "LIN_55", "name": "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Bulk registration with one duplicate is a partial success.
	rec = do(t, h, http.MethodPost, "/api/variants/batch", map[string]any{
		"fabric_code": "LIN_55",
		"entries": []map[string]string{
			{"color_code": "NAVY"},
			{"color_code": "OLIVE"},
		},
	})
	require.Equal(t, http.StatusMultiStatus, rec.Code)
	var batch BatchVariantResponse
	decodeBody(t, rec, &batch)
	assert.Len(t, batch.Created, 1)
	assert.Len(t, batch.Skipped, 1)
}

func TestFabricEndpoint_LookupByCode(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodGet, "/api/fabrics/LIN_55", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fabric FabricDTO
	decodeBody(t, rec, &fabric)
	assert.Equal(t, "LIN_55", fabric.Code)
	assert.Equal(t, "Linen 55", fabric.Name)

	rec = do(t, h, http.MethodGet, "/api/fabrics/GHOST", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVariantEndpoint_LookupByCodePair(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodGet, "/api/variants?fabric_code=lin+55&color_code=navy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var variant VariantDTO
	decodeBody(t, rec, &variant)
	assert.Equal(t, "NAVY", variant.ColorCode)

	rec = do(t, h, http.MethodGet, "/api/variants?fabric_code=LIN_55", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/variants?fabric_code=LIN_55&color_code=GHOST", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStockByIDEndpoint(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodPost, "/api/movements/receive", map[string]any{
		"fabric_code": "LIN_55", "color_code": "NAVY", "qty": "12.5", "uom": "m",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/variants?fabric_code=LIN_55&color_code=NAVY", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var variant VariantDTO
	decodeBody(t, rec, &variant)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/api/stock/%d", variant.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	var stock StockDTO
	decodeBody(t, rec, &stock)
	assert.Equal(t, "LIN_55", stock.FabricCode)
	assert.Equal(t, "NAVY", stock.ColorCode)
	assert.Equal(t, "12.5", stock.OnHandQty.String())

	rec = do(t, h, http.MethodGet, "/api/stock/999999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/stock/notanumber", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteVariantEndpoint_RemovesHistoryToo(t *testing.T) {
	h := newTestRouter(t)
	seedCatalog(t, h)

	rec := do(t, h, http.MethodPost, "/api/movements/receive", map[string]any{
		"fabric_code": "LIN_55", "color_code": "NAVY", "qty": "30", "uom": "m",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/variants?fabric_code=LIN_55&color_code=NAVY", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var variant VariantDTO
	decodeBody(t, rec, &variant)

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/api/variants/%d", variant.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code, "body: %s", rec.Body.String())

	// The variant, its balance, and its movements are all gone.
	rec = do(t, h, http.MethodGet, "/api/variants?fabric_code=LIN_55&color_code=NAVY", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/movements?fabric_code=LIN_55&color_code=NAVY", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page HistoryResponse
	decodeBody(t, rec, &page)
	assert.Equal(t, 0, page.Total)

	// Deleting again is a 404.
	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/api/variants/%d", variant.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
