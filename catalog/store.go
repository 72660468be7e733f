/*
store.go - Persistence contract for the catalog

Implementations receive codes already sanitized by the service layer and
must report duplicates with the package sentinels so bulk registration
can isolate them per entry.
*/
package catalog

import "context"

// Store is the catalog persistence contract.
type Store interface {
	// CreateFabric inserts a fabric and returns it with its id set.
	// Returns ErrDuplicateFabric when the code is taken.
	CreateFabric(ctx context.Context, f Fabric) (*Fabric, error)

	// FabricByCode looks a fabric up by sanitized code.
	// Returns ErrFabricNotFound when absent.
	FabricByCode(ctx context.Context, code string) (*Fabric, error)

	// FabricByID looks a fabric up by id.
	// Returns ErrFabricNotFound when absent.
	FabricByID(ctx context.Context, id int64) (*Fabric, error)

	// CreateVariant inserts a variant for an existing fabric.
	// Returns ErrDuplicateVariant when the (fabric, color) pair is taken.
	CreateVariant(ctx context.Context, v Variant) (*Variant, error)

	// VariantByCodes resolves a (fabric, color) pair.
	// Returns ErrFabricNotFound or ErrVariantNotFound when absent.
	VariantByCodes(ctx context.Context, fabricCode, colorCode string) (*Variant, error)

	// VariantByID looks a variant up by id.
	// Returns ErrVariantNotFound when absent.
	VariantByID(ctx context.Context, id int64) (*Variant, error)

	// DeleteVariant removes a variant together with its movements and
	// balance row, in one transaction. Master-data cleanup only; the
	// audit trail goes with the variant.
	DeleteVariant(ctx context.Context, id int64) error

	// Fabrics lists all fabrics ordered by code.
	Fabrics(ctx context.Context) ([]Fabric, error)

	// VariantsByFabric lists a fabric's variants ordered by color code.
	VariantsByFabric(ctx context.Context, fabricID int64) ([]Variant, error)
}
