/*
handlers.go - HTTP API handlers for the stock ledger

PURPOSE:
  Exposes the movement ledger and fabric catalog via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Movements:
    POST   /api/movements/receive        Record an inbound movement
    POST   /api/movements/issue          Record an outbound movement
    POST   /api/movements/adjust         Record a signed correction
    POST   /api/movements/receive/batch  Bulk receipts (max 50)
    POST   /api/movements/issue/batch    Bulk issues (max 50)
    GET    /api/movements                Filtered movement history
    POST   /api/movements/{id}/cancel    Cancel a movement

  Stock:
    GET    /api/stock                    On-hand balance by fabric/color codes
    GET    /api/stock/{id}               On-hand balance by variant id
    POST   /api/stock/rebuild            Recompute a balance from the ledger

  Catalog:
    GET    /api/fabrics                  List fabrics
    POST   /api/fabrics                  Register a fabric
    GET    /api/fabrics/{code}           One fabric
    GET    /api/fabrics/{code}/variants  List a fabric's variants
    GET    /api/variants                 Look one variant up by code pair
    POST   /api/variants                 Register one variant
    DELETE /api/variants/{id}            Remove a variant and its history
    POST   /api/variants/batch           Bulk variant registration (max 100)

REQUEST FLOW:
  1. Decode and validate the body (go-playground/validator)
  2. Call domain logic (ledger / catalog service)
  3. Serialize response
  4. Map domain errors to HTTP statuses

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Fabric, variant, or movement not found
  - 409: Conflict (duplicate code, already cancelled)
  - 500: Internal errors
  Batch endpoints report per-entry outcomes: 201 when everything was
  applied, 207 on a partial result, 422 when every entry failed.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/stock-ledger/catalog"
	"github.com/warp/stock-ledger/ledger"
)

const timeFormat = time.RFC3339Nano

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger  *ledger.Service
	Catalog *catalog.Service
	Log     *zap.Logger

	validate *validator.Validate
}

// NewHandler creates a new handler over the two domain services.
func NewHandler(ledgerSvc *ledger.Service, catalogSvc *catalog.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Ledger:   ledgerSvc,
		Catalog:  catalogSvc,
		Log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// =============================================================================
// MOVEMENT HANDLERS
// =============================================================================

// Receive records an inbound movement.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	h.createMovement(w, r, ledger.MovementReceipt)
}

// Issue records an outbound movement. The caller sends a magnitude; the
// ledger applies the negative sign.
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	h.createMovement(w, r, ledger.MovementIssue)
}

// Adjust records a caller-signed correction.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	h.createMovement(w, r, ledger.MovementAdjust)
}

func (h *Handler) createMovement(w http.ResponseWriter, r *http.Request, movementType ledger.MovementType) {
	var req MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	res, err := h.Ledger.CreateMovementByCodes(r.Context(), req.FabricCode, req.ColorCode, ledger.CreateMovementInput{
		Type:       movementType,
		Qty:        req.Qty,
		UOM:        ledger.UnitOfMeasure(req.UOM),
		RollCount:  req.RollCount,
		DocumentID: req.DocumentID,
		Reason:     movementReason(req),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MovementResponse{
		MovementID:   int64(res.MovementID),
		MovementType: string(res.Type),
		DeltaQty:     res.DeltaQty,
		PreviousQty:  res.Previous.OnHandMeters,
		NewQty:       res.Balance.OnHandMeters,
		OnHandRolls:  res.Balance.OnHandRolls,
	})
}

// movementReason folds an optional customer name into the free-text reason.
func movementReason(req MovementRequest) string {
	if req.CustomerName == "" {
		return req.Reason
	}
	if req.Reason == "" {
		return "customer: " + req.CustomerName
	}
	return "customer: " + req.CustomerName + "; " + req.Reason
}

// ReceiveBatch records many receipts in one call.
func (h *Handler) ReceiveBatch(w http.ResponseWriter, r *http.Request) {
	h.createBatch(w, r, ledger.MovementReceipt)
}

// IssueBatch records many issues in one call.
func (h *Handler) IssueBatch(w http.ResponseWriter, r *http.Request) {
	h.createBatch(w, r, ledger.MovementIssue)
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request, movementType ledger.MovementType) {
	var req BatchMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	entries := make([]ledger.BatchEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = ledger.BatchEntry{
			FabricCode: e.FabricCode,
			ColorCode:  e.ColorCode,
			Qty:        e.Qty,
			UOM:        ledger.UnitOfMeasure(e.UOM),
			RollCount:  e.RollCount,
		}
	}

	result, err := h.Ledger.CreateMovementsBatch(r.Context(), entries, movementType, req.DocumentID, req.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := BatchMovementResponse{
		Processed: make([]BatchProcessedDTO, 0, len(result.Processed)),
		Failed:    make([]BatchFailureDTO, 0, len(result.Failed)),
		Summary: BatchSummaryDTO{
			Total:     result.Summary.Total,
			Processed: result.Summary.Processed,
			Failed:    result.Summary.Failed,
			TotalQty:  result.Summary.TotalQty,
		},
	}
	for _, p := range result.Processed {
		resp.Processed = append(resp.Processed, BatchProcessedDTO{
			FabricCode:  p.FabricCode,
			ColorCode:   p.ColorCode,
			Qty:         p.Qty,
			MovementID:  int64(p.MovementID),
			PreviousQty: p.PreviousBalance,
			NewQty:      p.NewBalance,
		})
	}
	for _, f := range result.Failed {
		resp.Failed = append(resp.Failed, BatchFailureDTO{
			FabricCode: f.FabricCode,
			ColorCode:  f.ColorCode,
			Qty:        f.Qty,
			Error:      f.Error,
		})
	}

	writeJSON(w, batchStatus(result.Summary), resp)
}

// batchStatus picks the response status from the batch outcome: 201 when
// everything was applied, 207 on a mixed result, 422 when nothing went
// through.
func batchStatus(s ledger.BatchSummary) int {
	switch {
	case s.Failed == 0:
		return http.StatusCreated
	case s.Processed == 0:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusMultiStatus
	}
}

// CancelMovement cancels one movement and reverses its balance effect.
func (h *Handler) CancelMovement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid movement id", err)
		return
	}

	// The body is optional; a bare POST cancels without a reason.
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Ledger.CancelMovement(r.Context(), ledger.MovementID(id), req.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CancelResponse{
		MovementID:    int64(res.MovementID),
		ReversedQty:   res.ReversedQty,
		ReversedRolls: res.ReversedRolls,
		CancelledAt:   res.CancelledAt.Format(timeFormat),
		NewQty:        res.Balance.OnHandMeters,
	})
}

// SearchMovements returns a filtered page of movement history.
func (h *Handler) SearchMovements(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistoryQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	page, err := h.Ledger.SearchMovements(r.Context(), q)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := HistoryResponse{
		Items:  make([]MovementDTO, 0, len(page.Items)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, e := range page.Items {
		resp.Items = append(resp.Items, movementDTO(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseHistoryQuery maps URL query parameters to a history query. Codes
// are normalized here so the filter matches stored values.
func parseHistoryQuery(r *http.Request) (ledger.HistoryQuery, error) {
	v := r.URL.Query()
	q := ledger.HistoryQuery{
		FabricCode: catalog.SanitizeFabricCode(v.Get("fabric_code")),
		ColorCode:  catalog.SanitizeColorCode(v.Get("color_code")),
		DocumentID: v.Get("document_id"),
		SortBy:     ledger.SortField(v.Get("sort_by")),
		SortDir:    ledger.SortDir(strings.ToLower(v.Get("sort_dir"))),
	}

	if t := v.Get("movement_type"); t != "" {
		mt := ledger.MovementType(strings.ToUpper(t))
		if !mt.Valid() {
			return q, errors.New("unknown movement_type " + strconv.Quote(t))
		}
		q.Type = mt
	}

	var err error
	if q.DateFrom, err = parseDateParam(v.Get("date_from")); err != nil {
		return q, err
	}
	if q.DateTo, err = parseDateParam(v.Get("date_to")); err != nil {
		return q, err
	}

	if s := v.Get("min_qty"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return q, err
		}
		q.MinQty = &d
	}
	if s := v.Get("max_qty"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return q, err
		}
		q.MaxQty = &d
	}

	if s := v.Get("include_cancelled"); s != "" {
		q.IncludeCancelled, err = strconv.ParseBool(s)
		if err != nil {
			return q, err
		}
	}
	if s := v.Get("limit"); s != "" {
		q.Limit, err = strconv.Atoi(s)
		if err != nil {
			return q, err
		}
	}
	if s := v.Get("offset"); s != "" {
		q.Offset, err = strconv.Atoi(s)
		if err != nil {
			return q, err
		}
	}
	return q, nil
}

// parseDateParam accepts a bare date (YYYY-MM-DD) or a full RFC3339
// timestamp. Bare dates parse to midnight UTC.
func parseDateParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

// =============================================================================
// STOCK HANDLERS
// =============================================================================

// GetStock returns the on-hand balance for one variant.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	fabricCode := r.URL.Query().Get("fabric_code")
	colorCode := r.URL.Query().Get("color_code")
	if fabricCode == "" || colorCode == "" {
		writeError(w, http.StatusBadRequest, "fabric_code and color_code are required", nil)
		return
	}

	variant, err := h.Catalog.VariantByCodes(r.Context(), fabricCode, colorCode)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	b, err := h.Ledger.Balance(r.Context(), ledger.VariantID(variant.ID))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dto := StockDTO{
		FabricCode:  catalog.SanitizeFabricCode(fabricCode),
		ColorCode:   variant.ColorCode,
		OnHandQty:   b.OnHandMeters,
		OnHandRolls: b.OnHandRolls,
	}
	if !b.UpdatedAt.IsZero() {
		dto.UpdatedAt = b.UpdatedAt.Format(timeFormat)
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetStockByID returns the on-hand balance for a variant identified by id.
func (h *Handler) GetStockByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid variant id", err)
		return
	}

	variant, err := h.Catalog.VariantByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	fabric, err := h.Catalog.FabricByID(r.Context(), variant.FabricID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	b, err := h.Ledger.Balance(r.Context(), ledger.VariantID(variant.ID))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dto := StockDTO{
		FabricCode:  fabric.Code,
		ColorCode:   variant.ColorCode,
		OnHandQty:   b.OnHandMeters,
		OnHandRolls: b.OnHandRolls,
	}
	if !b.UpdatedAt.IsZero() {
		dto.UpdatedAt = b.UpdatedAt.Format(timeFormat)
	}
	writeJSON(w, http.StatusOK, dto)
}

// RebuildBalance recomputes one variant's balance from its movements.
func (h *Handler) RebuildBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FabricCode string `json:"fabric_code" validate:"required"`
		ColorCode  string `json:"color_code" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	variant, err := h.Catalog.VariantByCodes(r.Context(), req.FabricCode, req.ColorCode)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	b, err := h.Ledger.RebuildBalance(r.Context(), ledger.VariantID(variant.ID))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StockDTO{
		FabricCode:  catalog.SanitizeFabricCode(req.FabricCode),
		ColorCode:   variant.ColorCode,
		OnHandQty:   b.OnHandMeters,
		OnHandRolls: b.OnHandRolls,
		UpdatedAt:   b.UpdatedAt.Format(timeFormat),
	})
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListFabrics returns all registered fabrics.
func (h *Handler) ListFabrics(w http.ResponseWriter, r *http.Request) {
	fabrics, err := h.Catalog.Fabrics(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]FabricDTO, 0, len(fabrics))
	for _, f := range fabrics {
		dtos = append(dtos, fabricDTO(f))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateFabric registers a fabric.
func (h *Handler) CreateFabric(w http.ResponseWriter, r *http.Request) {
	var req CreateFabricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	f, err := h.Catalog.CreateFabric(r.Context(), catalog.CreateFabricInput{
		Code:        req.Code,
		Name:        req.Name,
		Composition: req.Composition,
		WidthCM:     req.WidthCM,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fabricDTO(*f))
}

// GetFabric returns one fabric by code.
func (h *Handler) GetFabric(w http.ResponseWriter, r *http.Request) {
	f, err := h.Catalog.FabricByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fabricDTO(*f))
}

// ListVariants returns the variants of one fabric.
func (h *Handler) ListVariants(w http.ResponseWriter, r *http.Request) {
	variants, err := h.Catalog.VariantsByFabric(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]VariantDTO, 0, len(variants))
	for _, v := range variants {
		dtos = append(dtos, variantDTO(v))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetVariant looks one variant up by its fabric/color code pair.
func (h *Handler) GetVariant(w http.ResponseWriter, r *http.Request) {
	fabricCode := r.URL.Query().Get("fabric_code")
	colorCode := r.URL.Query().Get("color_code")
	if fabricCode == "" || colorCode == "" {
		writeError(w, http.StatusBadRequest, "fabric_code and color_code are required", nil)
		return
	}

	v, err := h.Catalog.VariantByCodes(r.Context(), fabricCode, colorCode)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, variantDTO(*v))
}

// CreateVariant registers one color variant.
func (h *Handler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	var req CreateVariantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	v, err := h.Catalog.CreateVariant(r.Context(), catalog.CreateVariantInput{
		FabricCode: req.FabricCode,
		ColorCode:  req.ColorCode,
		ColorName:  req.ColorName,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, variantDTO(*v))
}

// DeleteVariant removes a variant together with its movements and balance.
func (h *Handler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid variant id", err)
		return
	}

	if err := h.Catalog.DeleteVariant(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateVariantsBatch registers many colors of one fabric.
func (h *Handler) CreateVariantsBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchVariantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	entries := make([]catalog.VariantBatchEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = catalog.VariantBatchEntry{ColorCode: e.ColorCode, ColorName: e.ColorName}
	}

	result, err := h.Catalog.CreateVariantsBatch(r.Context(), req.FabricCode, entries)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := BatchVariantResponse{
		FabricCode: result.FabricCode,
		Created:    make([]VariantDTO, 0, len(result.Created)),
		Skipped:    make([]VariantSkippedDTO, 0, len(result.Skipped)),
	}
	for _, v := range result.Created {
		resp.Created = append(resp.Created, variantDTO(v))
	}
	for _, f := range result.Skipped {
		resp.Skipped = append(resp.Skipped, VariantSkippedDTO{ColorCode: f.ColorCode, Error: f.Error})
	}

	status := http.StatusCreated
	if len(resp.Skipped) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp)
}

func fabricDTO(f catalog.Fabric) FabricDTO {
	return FabricDTO{
		ID:          f.ID,
		Code:        f.Code,
		Name:        f.Name,
		Composition: f.Composition,
		WidthCM:     f.WidthCM,
		CreatedAt:   f.CreatedAt.Format(timeFormat),
	}
}

func variantDTO(v catalog.Variant) VariantDTO {
	return VariantDTO{
		ID:        v.ID,
		FabricID:  v.FabricID,
		ColorCode: v.ColorCode,
		ColorName: v.ColorName,
		CreatedAt: v.CreatedAt.Format(timeFormat),
	}
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// writeDomainError maps domain sentinels to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, "Invalid movement", err)
	case errors.Is(err, ledger.ErrMovementNotFound):
		writeError(w, http.StatusNotFound, "Movement not found", nil)
	case errors.Is(err, ledger.ErrVariantNotFound), errors.Is(err, catalog.ErrVariantNotFound):
		writeError(w, http.StatusNotFound, "Variant not found", nil)
	case errors.Is(err, catalog.ErrFabricNotFound):
		writeError(w, http.StatusNotFound, "Fabric not found", nil)
	case errors.Is(err, ledger.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, "Movement already cancelled", nil)
	case errors.Is(err, catalog.ErrDuplicateFabric):
		writeError(w, http.StatusConflict, "Fabric already exists", nil)
	case errors.Is(err, catalog.ErrDuplicateVariant):
		writeError(w, http.StatusConflict, "Variant already exists", nil)
	default:
		h.Log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
