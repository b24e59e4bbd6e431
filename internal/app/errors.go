package service

import (
	"errors"
	"fmt"

	"github.com/okian/arena/internal/adapters/mq/queue"
)

var (
	// ErrNotStarted is returned by operations that need the live state.
	ErrNotStarted = errors.New("service not started")

	// ErrNoStore is returned by Start when the service has no store.
	ErrNoStore = errors.New("service has no store")

	// ErrBackpressure is returned when the write queue is full.
	ErrBackpressure = fmt.Errorf("vote rejected: %w", queue.ErrFull)
)
