package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for storage errors.
var (
	ErrPersistence   = errors.New("persistence failure")
	ErrDuplicate     = errors.New("duplicate vote id")
	ErrUnknownDriver = errors.New("unknown database driver")
)

// persistErr tags a driver error so callers can match ErrPersistence while
// keeping the cause.
func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
