// Package repository persists the catalog and the append-only vote log.
package repository

import (
	"context"

	"github.com/okian/arena/internal/domain/model"
)

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// CatalogStore keeps the item catalog.
type CatalogStore interface {
	// ListItems returns items in insertion order.
	ListItems(ctx context.Context) ([]model.Item, error)
	// UpsertItems inserts items, overwriting metadata of existing names.
	UpsertItems(ctx context.Context, items []model.Item) error
}

// VoteLog is the durable, ordered record of votes.
type VoteLog interface {
	// Append stores ev and returns it with Seq assigned. A vote id that is
	// already present yields ErrDuplicate.
	Append(ctx context.Context, ev model.VoteEvent) (model.VoteEvent, error)
	// ReadAll returns every event in ascending Seq.
	ReadAll(ctx context.Context) ([]model.VoteEvent, error)
	// ReadRecent returns the last n events, oldest first.
	ReadRecent(ctx context.Context, n int) ([]model.VoteEvent, error)
	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)
}

// Store is a catalog plus a vote log behind one connection.
type Store interface {
	CatalogStore
	VoteLog
	Close() error
}

// Open returns the store for driver. dsn is ignored by the memory driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, DriverPostgres:
		return OpenSQL(ctx, driver, dsn)
	default:
		return nil, ErrUnknownDriver
	}
}
