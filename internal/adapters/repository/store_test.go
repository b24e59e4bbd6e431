package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/arena/internal/domain/model"
)

func cost(v float64) *float64 { return &v }

// stores returns every Store implementation that runs without a server.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	lite, err := OpenSQL(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": lite,
	}
}

func TestStore_Catalog(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			items, err := s.ListItems(ctx)
			require.NoError(t, err)
			assert.Empty(t, items)

			require.NoError(t, s.UpsertItems(ctx, []model.Item{
				{Name: "o3", Provider: "OpenAI", Context: "128K tokens", Reasoning: true, InputCost: cost(15), OutputCost: cost(60)},
				{Name: "Llama 4 Scout", Provider: "Meta", Open: true},
			}))

			// overwrite by name keeps the original position
			require.NoError(t, s.UpsertItems(ctx, []model.Item{
				{Name: "o3", Provider: "OpenAI", Params: "Very Large", InputCost: cost(10)},
				{Name: "DeepSeek R1", Provider: "DeepSeek", Open: true},
			}))

			items, err = s.ListItems(ctx)
			require.NoError(t, err)
			require.Len(t, items, 3)
			assert.Equal(t, "o3", items[0].Name)
			assert.Equal(t, "Very Large", items[0].Params)
			require.NotNil(t, items[0].InputCost)
			assert.Equal(t, 10.0, *items[0].InputCost)
			assert.Nil(t, items[0].OutputCost)
			assert.Equal(t, "Llama 4 Scout", items[1].Name)
			assert.True(t, items[1].Open)
			assert.Nil(t, items[1].InputCost)
			assert.Equal(t, "DeepSeek R1", items[2].Name)
		})
	}
}

func TestStore_VoteLog(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			all, err := s.ReadAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)

			for i := 0; i < 5; i++ {
				ev, err := s.Append(ctx, model.VoteEvent{
					ID:     fmt.Sprintf("vote-%d", i),
					Winner: "a",
					Loser:  "b",
					Time:   fmt.Sprintf("2025-01-01T00:00:0%dZ", i),
				})
				require.NoError(t, err)
				assert.Equal(t, int64(i+1), ev.Seq)
			}

			// votes without an id or time are allowed and unique-exempt
			_, err = s.Append(ctx, model.VoteEvent{Winner: "b", Loser: "a"})
			require.NoError(t, err)
			_, err = s.Append(ctx, model.VoteEvent{Winner: "b", Loser: "a"})
			require.NoError(t, err)

			all, err = s.ReadAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 7)
			for i := 1; i < len(all); i++ {
				assert.Less(t, all[i-1].Seq, all[i].Seq)
			}
			assert.Equal(t, "vote-0", all[0].ID)
			assert.Equal(t, "2025-01-01T00:00:00Z", all[0].Time)
			assert.Equal(t, "", all[6].ID)
			assert.Equal(t, "", all[6].Time)

			recent, err := s.ReadRecent(ctx, 3)
			require.NoError(t, err)
			require.Len(t, recent, 3)
			assert.Equal(t, "vote-4", recent[0].ID)
			assert.Equal(t, all[6].Seq, recent[2].Seq)

			recent, err = s.ReadRecent(ctx, 100)
			require.NoError(t, err)
			assert.Len(t, recent, 7)

			recent, err = s.ReadRecent(ctx, 0)
			require.NoError(t, err)
			assert.Empty(t, recent)

			n, err = s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 7, n)
		})
	}
}

func TestStore_DuplicateVoteID(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Append(ctx, model.VoteEvent{ID: "same", Winner: "a", Loser: "b"})
			require.NoError(t, err)

			_, err = s.Append(ctx, model.VoteEvent{ID: "same", Winner: "a", Loser: "b"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDuplicate))
			assert.False(t, errors.Is(err, ErrPersistence))

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestSQLStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "arena.db")

	s, err := OpenSQL(ctx, DriverSQLite, path)
	require.NoError(t, err)
	_, err = s.Append(ctx, model.VoteEvent{ID: "v1", Winner: "a", Loser: "b", Time: "t1"})
	require.NoError(t, err)
	require.NoError(t, s.UpsertItems(ctx, []model.Item{{Name: "a", Provider: "p"}}))
	require.NoError(t, s.Close())

	s, err = OpenSQL(ctx, DriverSQLite, path)
	require.NoError(t, err)
	defer s.Close()

	all, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.VoteEvent{Seq: 1, ID: "v1", Winner: "a", Loser: "b", Time: "t1"}, all[0])

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSQLStore_ClosedDatabaseIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQL(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Append(ctx, model.VoteEvent{Winner: "a", Loser: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))

	_, err = s.ReadAll(ctx)
	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	assert.Equal(t, "INSERT INTO votes (a, b) VALUES ($1, $2)", pg.rebind("INSERT INTO votes (a, b) VALUES (?, ?)"))

	lite := &SQLStore{driver: DriverSQLite}
	assert.Equal(t, "SELECT ? ", lite.rebind("SELECT ? "))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, DriverMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(ctx, "oracle", "")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
