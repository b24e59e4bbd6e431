package catalog

import "errors"

// Sentinel errors for catalog construction.
var (
	ErrEmptyCatalog  = errors.New("catalog has no items")
	ErrDuplicateName = errors.New("duplicate item name")
	ErrInvalidItem   = errors.New("invalid item")
)
