/*
Package catalog holds the fabric and variant registry.

A Fabric is a cloth article (code, name, composition); a Variant is one
color of a fabric and is the unit every stock movement and balance hangs
off. Codes are normalized before storage so lookups are insensitive to
spacing, case and punctuation in the source documents.

PURPOSE:
  - Register fabrics and color variants, individually and in bulk
  - Resolve (fabric_code, color_code) pairs to variant ids for the ledger

SEE ALSO:
  - catalog/sanitize.go - code normalization rules
  - ledger/service.go   - consumer of ResolveVariant
*/
package catalog

import "time"

// Fabric is a cloth article. Code is unique and already sanitized.
type Fabric struct {
	ID          int64
	Code        string
	Name        string
	Composition string
	WidthCM     *int64
	CreatedAt   time.Time
}

// Variant is one color of a fabric. (FabricID, ColorCode) is unique.
type Variant struct {
	ID        int64
	FabricID  int64
	ColorCode string
	ColorName string
	CreatedAt time.Time
}
