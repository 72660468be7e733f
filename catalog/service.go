/*
service.go - Catalog operations

Sanitizes codes at the boundary, delegates persistence to the Store, and
implements variant resolution for the movement ledger.
*/
package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Service exposes catalog operations over a Store.
type Service struct {
	store Store
	log   *zap.Logger
}

// NewService wires a catalog service. A nil logger is replaced by a no-op.
func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

// CreateFabricInput carries a fabric registration request.
type CreateFabricInput struct {
	Code        string
	Name        string
	Composition string
	WidthCM     *int64
}

// CreateFabric registers a fabric. The code is sanitized first; an input
// whose code sanitizes to nothing is rejected.
func (s *Service) CreateFabric(ctx context.Context, in CreateFabricInput) (*Fabric, error) {
	code := SanitizeFabricCode(in.Code)
	if code == "" {
		return nil, fmt.Errorf("fabric code %q is empty after normalization", in.Code)
	}

	f, err := s.store.CreateFabric(ctx, Fabric{
		Code:        code,
		Name:        in.Name,
		Composition: in.Composition,
		WidthCM:     in.WidthCM,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("fabric registered", zap.String("code", f.Code), zap.Int64("id", f.ID))
	return f, nil
}

// FabricByCode looks a fabric up by its (sanitized) code.
func (s *Service) FabricByCode(ctx context.Context, code string) (*Fabric, error) {
	return s.store.FabricByCode(ctx, SanitizeFabricCode(code))
}

// FabricByID looks a fabric up by id.
func (s *Service) FabricByID(ctx context.Context, id int64) (*Fabric, error) {
	return s.store.FabricByID(ctx, id)
}

// Fabrics lists all registered fabrics.
func (s *Service) Fabrics(ctx context.Context) ([]Fabric, error) {
	return s.store.Fabrics(ctx)
}

// CreateVariantInput carries a variant registration request.
type CreateVariantInput struct {
	FabricCode string
	ColorCode  string
	ColorName  string
}

// CreateVariant registers one color variant of an existing fabric.
func (s *Service) CreateVariant(ctx context.Context, in CreateVariantInput) (*Variant, error) {
	fabric, err := s.store.FabricByCode(ctx, SanitizeFabricCode(in.FabricCode))
	if err != nil {
		return nil, err
	}

	colorCode := SanitizeColorCode(in.ColorCode)
	if colorCode == "" {
		return nil, fmt.Errorf("color code %q is empty after normalization", in.ColorCode)
	}

	v, err := s.store.CreateVariant(ctx, Variant{
		FabricID:  fabric.ID,
		ColorCode: colorCode,
		ColorName: in.ColorName,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("variant registered",
		zap.String("fabric", fabric.Code),
		zap.String("color", v.ColorCode),
		zap.Int64("id", v.ID),
	)
	return v, nil
}

// VariantByCodes resolves one variant by its code pair.
func (s *Service) VariantByCodes(ctx context.Context, fabricCode, colorCode string) (*Variant, error) {
	return s.store.VariantByCodes(ctx, SanitizeFabricCode(fabricCode), SanitizeColorCode(colorCode))
}

// VariantByID looks one variant up by id.
func (s *Service) VariantByID(ctx context.Context, id int64) (*Variant, error) {
	return s.store.VariantByID(ctx, id)
}

// DeleteVariant removes a variant and everything recorded against it.
func (s *Service) DeleteVariant(ctx context.Context, id int64) error {
	if err := s.store.DeleteVariant(ctx, id); err != nil {
		return err
	}
	s.log.Info("variant deleted", zap.Int64("id", id))
	return nil
}

// VariantsByFabric lists the variants of a fabric identified by code.
func (s *Service) VariantsByFabric(ctx context.Context, fabricCode string) ([]Variant, error) {
	fabric, err := s.store.FabricByCode(ctx, SanitizeFabricCode(fabricCode))
	if err != nil {
		return nil, err
	}
	return s.store.VariantsByFabric(ctx, fabric.ID)
}

// ResolveVariant maps a code pair to a variant id for the movement ledger.
func (s *Service) ResolveVariant(ctx context.Context, fabricCode, colorCode string) (int64, error) {
	v, err := s.store.VariantByCodes(ctx, SanitizeFabricCode(fabricCode), SanitizeColorCode(colorCode))
	if err != nil {
		return 0, err
	}
	return v.ID, nil
}

// =====================================================================
// Bulk variant registration
// =====================================================================

// VariantBatchEntry is one color inside a bulk registration.
type VariantBatchEntry struct {
	ColorCode string
	ColorName string
}

// VariantBatchResult reports a bulk registration outcome. Entries fail
// independently; an already-registered color is recorded under Skipped
// and the rest of the batch proceeds.
type VariantBatchResult struct {
	FabricCode string
	Created    []Variant
	Skipped    []VariantBatchFailure
}

// VariantBatchFailure is one rejected entry.
type VariantBatchFailure struct {
	ColorCode string
	Error     string
}

// CreateVariantsBatch registers many colors of one fabric. A missing
// fabric fails the whole call; everything per-entry is isolated.
func (s *Service) CreateVariantsBatch(ctx context.Context, fabricCode string, entries []VariantBatchEntry) (*VariantBatchResult, error) {
	fabric, err := s.store.FabricByCode(ctx, SanitizeFabricCode(fabricCode))
	if err != nil {
		return nil, err
	}

	result := &VariantBatchResult{
		FabricCode: fabric.Code,
		Created:    []Variant{},
		Skipped:    []VariantBatchFailure{},
	}
	for _, e := range entries {
		colorCode := SanitizeColorCode(e.ColorCode)
		if colorCode == "" {
			result.Skipped = append(result.Skipped, VariantBatchFailure{
				ColorCode: e.ColorCode,
				Error:     "color code empty after normalization",
			})
			continue
		}

		v, err := s.store.CreateVariant(ctx, Variant{
			FabricID:  fabric.ID,
			ColorCode: colorCode,
			ColorName: e.ColorName,
		})
		if err != nil {
			result.Skipped = append(result.Skipped, VariantBatchFailure{
				ColorCode: colorCode,
				Error:     err.Error(),
			})
			continue
		}
		result.Created = append(result.Created, *v)
	}

	s.log.Info("variant batch finished",
		zap.String("fabric", fabric.Code),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}
