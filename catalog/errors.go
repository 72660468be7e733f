/*
errors.go - Sentinel errors for catalog lookups and writes
*/
package catalog

import "errors"

var (
	// ErrFabricNotFound means no fabric exists with the given code.
	ErrFabricNotFound = errors.New("fabric not found")

	// ErrVariantNotFound means no variant exists for the code pair.
	ErrVariantNotFound = errors.New("variant not found")

	// ErrDuplicateFabric means a fabric with that code already exists.
	ErrDuplicateFabric = errors.New("fabric already exists")

	// ErrDuplicateVariant means the (fabric, color) pair already exists.
	ErrDuplicateVariant = errors.New("variant already exists")
)
