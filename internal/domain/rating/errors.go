package rating

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine.
var (
	ErrUnknownItem = errors.New("unknown item")
	ErrSameItem    = errors.New("winner and loser must differ")
)

// UnknownItemError names the item the engine does not hold.
type UnknownItemError struct {
	Name string
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("unknown item %q", e.Name)
}

// Is lets errors.Is match ErrUnknownItem.
func (e *UnknownItemError) Is(target error) bool {
	return target == ErrUnknownItem
}

// ReplayError reports the log position at which a rebuild stopped.
type ReplayError struct {
	Seq int64
	Err error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay event seq %d: %v", e.Seq, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }
