package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/okian/arena/internal/domain/model"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS llms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		provider TEXT NOT NULL,
		open INTEGER NOT NULL DEFAULT 0,
		context TEXT NOT NULL DEFAULT '',
		params TEXT NOT NULL DEFAULT '',
		reasoning INTEGER NOT NULL DEFAULT 0,
		input_cost REAL,
		output_cost REAL
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vote_id TEXT UNIQUE,
		winner TEXT NOT NULL,
		loser TEXT NOT NULL,
		voted_at TEXT
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS llms (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		provider TEXT NOT NULL,
		open BOOLEAN NOT NULL DEFAULT FALSE,
		context TEXT NOT NULL DEFAULT '',
		params TEXT NOT NULL DEFAULT '',
		reasoning BOOLEAN NOT NULL DEFAULT FALSE,
		input_cost DOUBLE PRECISION,
		output_cost DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id BIGSERIAL PRIMARY KEY,
		vote_id TEXT UNIQUE,
		winner TEXT NOT NULL,
		loser TEXT NOT NULL,
		voted_at TEXT
	)`,
}

const (
	upsertItemSQL = `INSERT INTO llms (name, provider, open, context, params, reasoning, input_cost, output_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			provider = excluded.provider,
			open = excluded.open,
			context = excluded.context,
			params = excluded.params,
			reasoning = excluded.reasoning,
			input_cost = excluded.input_cost,
			output_cost = excluded.output_cost`
	listItemsSQL  = `SELECT name, provider, open, context, params, reasoning, input_cost, output_cost FROM llms ORDER BY id ASC`
	appendVoteSQL = `INSERT INTO votes (vote_id, winner, loser, voted_at) VALUES (?, ?, ?, ?) RETURNING id`
	readAllSQL    = `SELECT id, vote_id, winner, loser, voted_at FROM votes ORDER BY id ASC`
	readRecentSQL = `SELECT id, vote_id, winner, loser, voted_at FROM votes ORDER BY id DESC LIMIT ?`
	countVotesSQL = `SELECT COUNT(*) FROM votes`
)

// SQLStore implements Store over database/sql for SQLite and PostgreSQL.
// Seq is the votes table's auto-increment id, so log order is insert order.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens dsn with driver ("sqlite" or "pgx") and creates the schema.
// For SQLite, ":memory:" gives each store its own private database.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var schema []string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, ErrUnknownDriver
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite allows one writer. A single long-lived connection also
		// keeps a :memory: database alive.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if driver == DriverSQLite && dsn != ":memory:" {
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
	}

	s := &SQLStore{db: db, driver: driver}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $1..$n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ListItems returns the catalog in insertion order.
func (s *SQLStore) ListItems(ctx context.Context) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(listItemsSQL))
	if err != nil {
		return nil, persistErr("list items", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var (
			it       model.Item
			in, outC sql.NullFloat64
		)
		if err := rows.Scan(&it.Name, &it.Provider, &it.Open, &it.Context, &it.Params, &it.Reasoning, &in, &outC); err != nil {
			return nil, persistErr("scan item", err)
		}
		it.InputCost = floatPtr(in)
		it.OutputCost = floatPtr(outC)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list items", err)
	}
	return items, nil
}

// UpsertItems writes items in one transaction.
func (s *SQLStore) UpsertItems(ctx context.Context, items []model.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.rebind(upsertItemSQL))
	if err != nil {
		return persistErr("prepare upsert", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, it.Name, it.Provider, it.Open, it.Context, it.Params, it.Reasoning,
			nullFloat(it.InputCost), nullFloat(it.OutputCost)); err != nil {
			return persistErr("upsert item "+it.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return persistErr("commit upsert", err)
	}
	return nil
}

// Append inserts one vote and returns it with its sequence number.
func (s *SQLStore) Append(ctx context.Context, ev model.VoteEvent) (model.VoteEvent, error) {
	err := s.db.QueryRowContext(ctx, s.rebind(appendVoteSQL),
		nullString(ev.ID), ev.Winner, ev.Loser, nullString(ev.Time),
	).Scan(&ev.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return model.VoteEvent{}, fmt.Errorf("%w: %s", ErrDuplicate, ev.ID)
		}
		return model.VoteEvent{}, persistErr("append vote", err)
	}
	return ev, nil
}

// ReadAll returns the full log in ascending sequence order.
func (s *SQLStore) ReadAll(ctx context.Context) ([]model.VoteEvent, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(readAllSQL))
	if err != nil {
		return nil, persistErr("read votes", err)
	}
	defer rows.Close()
	return scanVotes(rows)
}

// ReadRecent returns the last n votes, oldest first.
func (s *SQLStore) ReadRecent(ctx context.Context, n int) ([]model.VoteEvent, error) {
	if n <= 0 {
		return []model.VoteEvent{}, nil
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(readRecentSQL), n)
	if err != nil {
		return nil, persistErr("read recent votes", err)
	}
	defer rows.Close()

	events, err := scanVotes(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// Count returns the number of votes.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countVotesSQL).Scan(&n); err != nil {
		return 0, persistErr("count votes", err)
	}
	return n, nil
}

func scanVotes(rows *sql.Rows) ([]model.VoteEvent, error) {
	events := []model.VoteEvent{}
	for rows.Next() {
		var (
			ev     model.VoteEvent
			id, at sql.NullString
		)
		if err := rows.Scan(&ev.Seq, &id, &ev.Winner, &ev.Loser, &at); err != nil {
			return nil, persistErr("scan vote", err)
		}
		ev.ID = id.String
		ev.Time = at.String
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("read votes", err)
	}
	return events, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
