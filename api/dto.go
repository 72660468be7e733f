/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request structs carry go-playground/validator tags; the handler runs the
  validator before anything touches domain logic. Domain-level rules (sign
  conventions, zero-quantity handling) stay in the ledger service.

QUANTITIES:
  All quantities cross the wire as JSON strings ("125.500"), never floats.
  decimal.Decimal marshals that way and clients keep exactness.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/service.go: Domain validation
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/stock-ledger/ledger"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MOVEMENT TYPES
// =============================================================================

// MovementRequest is the body for the single-movement endpoints. The
// endpoint determines the movement type; qty is a magnitude for receive
// and issue, a signed delta for adjust.
type MovementRequest struct {
	FabricCode string          `json:"fabric_code" validate:"required"`
	ColorCode  string          `json:"color_code" validate:"required"`
	Qty        decimal.Decimal `json:"qty"`
	UOM        string          `json:"uom" validate:"required,oneof=m roll"`
	RollCount  *int64          `json:"roll_count,omitempty"`
	DocumentID string          `json:"document_id,omitempty"`

	// CustomerName is accepted on issues and folded into the stored
	// reason; there is no dedicated customer column.
	CustomerName string `json:"customer_name,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// MovementResponse reports a recorded movement and the resulting balance.
type MovementResponse struct {
	MovementID   int64           `json:"movement_id"`
	MovementType string          `json:"movement_type"`
	DeltaQty     decimal.Decimal `json:"delta_qty_m"`
	PreviousQty  decimal.Decimal `json:"previous_on_hand_m"`
	NewQty       decimal.Decimal `json:"new_on_hand_m"`
	OnHandRolls  decimal.Decimal `json:"on_hand_rolls"`
}

// BatchMovementRequest is the body for the batch endpoints. An empty
// batch is rejected here; the service layer itself treats it as a no-op.
type BatchMovementRequest struct {
	Entries    []BatchEntryRequest `json:"entries" validate:"min=1,max=50,dive"`
	DocumentID string              `json:"document_id,omitempty"`
	Reason     string              `json:"reason,omitempty"`
}

// BatchEntryRequest is one entry of a batch.
type BatchEntryRequest struct {
	FabricCode string          `json:"fabric_code" validate:"required"`
	ColorCode  string          `json:"color_code" validate:"required"`
	Qty        decimal.Decimal `json:"qty"`
	UOM        string          `json:"uom" validate:"required,oneof=m roll"`
	RollCount  *int64          `json:"roll_count,omitempty"`
}

// BatchMovementResponse reports a full batch outcome.
type BatchMovementResponse struct {
	Processed []BatchProcessedDTO `json:"processed"`
	Failed    []BatchFailureDTO   `json:"failed"`
	Summary   BatchSummaryDTO     `json:"summary"`
}

type BatchProcessedDTO struct {
	FabricCode  string          `json:"fabric_code"`
	ColorCode   string          `json:"color_code"`
	Qty         decimal.Decimal `json:"qty"`
	MovementID  int64           `json:"movement_id"`
	PreviousQty decimal.Decimal `json:"previous_on_hand_m"`
	NewQty      decimal.Decimal `json:"new_on_hand_m"`
}

type BatchFailureDTO struct {
	FabricCode string          `json:"fabric_code"`
	ColorCode  string          `json:"color_code"`
	Qty        decimal.Decimal `json:"qty"`
	Error      string          `json:"error"`
}

type BatchSummaryDTO struct {
	Total     int             `json:"total"`
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	TotalQty  decimal.Decimal `json:"total_qty_m"`
}

// CancelRequest is the optional body for a cancellation.
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancelResponse reports a successful cancellation.
type CancelResponse struct {
	MovementID    int64           `json:"movement_id"`
	ReversedQty   decimal.Decimal `json:"reversed_qty_m"`
	ReversedRolls *int64          `json:"reversed_rolls,omitempty"`
	CancelledAt   string          `json:"cancelled_at"`
	NewQty        decimal.Decimal `json:"new_on_hand_m"`
}

// MovementDTO is one movement in history responses.
type MovementDTO struct {
	ID           int64           `json:"id"`
	Timestamp    string          `json:"ts"`
	FabricCode   string          `json:"fabric_code"`
	ColorCode    string          `json:"color_code"`
	MovementType string          `json:"movement_type"`
	DeltaQty     decimal.Decimal `json:"delta_qty_m"`
	OriginalQty  decimal.Decimal `json:"original_qty"`
	OriginalUOM  string          `json:"original_uom"`
	RollCount    *int64          `json:"roll_count,omitempty"`
	DocumentID   string          `json:"document_id,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	IsCancelled  bool            `json:"is_cancelled"`
	CancelledAt  *string         `json:"cancelled_at,omitempty"`
}

// HistoryResponse is one page of movement history.
type HistoryResponse struct {
	Items  []MovementDTO `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// =============================================================================
// STOCK TYPES
// =============================================================================

// StockDTO is one variant's on-hand position.
type StockDTO struct {
	FabricCode  string          `json:"fabric_code"`
	ColorCode   string          `json:"color_code"`
	OnHandQty   decimal.Decimal `json:"on_hand_m"`
	OnHandRolls decimal.Decimal `json:"on_hand_rolls"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
}

// =============================================================================
// CATALOG TYPES
// =============================================================================

// FabricDTO represents a fabric in API responses.
type FabricDTO struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Composition string `json:"composition,omitempty"`
	WidthCM     *int64 `json:"width_cm,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// CreateFabricRequest is the request to register a fabric.
type CreateFabricRequest struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Composition string `json:"composition,omitempty"`
	WidthCM     *int64 `json:"width_cm,omitempty" validate:"omitempty,gt=0"`
}

// VariantDTO represents a color variant in API responses.
type VariantDTO struct {
	ID        int64  `json:"id"`
	FabricID  int64  `json:"fabric_id"`
	ColorCode string `json:"color_code"`
	ColorName string `json:"color_name,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateVariantRequest is the request to register one variant.
type CreateVariantRequest struct {
	FabricCode string `json:"fabric_code" validate:"required"`
	ColorCode  string `json:"color_code" validate:"required"`
	ColorName  string `json:"color_name,omitempty"`
}

// BatchVariantRequest registers many colors of one fabric at once.
type BatchVariantRequest struct {
	FabricCode string                `json:"fabric_code" validate:"required"`
	Entries    []VariantEntryRequest `json:"entries" validate:"min=1,max=100,dive"`
}

type VariantEntryRequest struct {
	ColorCode string `json:"color_code" validate:"required"`
	ColorName string `json:"color_name,omitempty"`
}

// BatchVariantResponse reports a bulk variant registration.
type BatchVariantResponse struct {
	FabricCode string              `json:"fabric_code"`
	Created    []VariantDTO        `json:"created"`
	Skipped    []VariantSkippedDTO `json:"skipped"`
}

type VariantSkippedDTO struct {
	ColorCode string `json:"color_code"`
	Error     string `json:"error"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func movementDTO(e ledger.HistoryEntry) MovementDTO {
	dto := MovementDTO{
		ID:           int64(e.ID),
		Timestamp:    e.Timestamp.Format(timeFormat),
		FabricCode:   e.FabricCode,
		ColorCode:    e.ColorCode,
		MovementType: string(e.Type),
		DeltaQty:     e.DeltaQty,
		OriginalQty:  e.OriginalQty,
		OriginalUOM:  string(e.OriginalUOM),
		RollCount:    e.RollCount,
		DocumentID:   e.DocumentID,
		Reason:       e.Reason,
		IsCancelled:  e.IsCancelled,
	}
	if e.CancelledAt != nil {
		t := e.CancelledAt.Format(timeFormat)
		dto.CancelledAt = &t
	}
	return dto
}
