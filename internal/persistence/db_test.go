package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/brood/internal/game"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	file, err := Open(filepath.Join(t.TempDir(), "brood.db"))
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })

	return map[string]Backend{"sqlite-memory": db, "sqlite-file": file, "memory": NewMemory()}
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Get(ctx, "save:none")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.Put(ctx, "save:a", "one"))
			require.NoError(t, b.Put(ctx, "save:a", "two"))
			require.NoError(t, b.Put(ctx, "save:b", "three"))
			require.NoError(t, b.Put(ctx, "other", "x"))

			v, err := b.Get(ctx, "save:a")
			require.NoError(t, err)
			assert.Equal(t, "two", v)

			keys, err := b.Keys(ctx, "save:")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"save:a", "save:b"}, keys)
		})
	}
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for round := 1; round <= 4; round++ {
				require.NoError(t, b.AppendRound(ctx, "g1", game.JournalEntry{Round: round, Population: round * 3}))
			}
			require.NoError(t, b.AppendRound(ctx, "g2", game.JournalEntry{Round: 1}))

			rows, err := b.RecentRounds(ctx, "g1", 2)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, 4, rows[0].Round)
			assert.Equal(t, 12, rows[0].Population)
			assert.Equal(t, 3, rows[1].Round)

			none, err := b.RecentRounds(ctx, "nobody", 10)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestDeleteGame(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Put(ctx, game.SaveKey("g1"), "{}"))
			require.NoError(t, b.AppendRound(ctx, "g1", game.JournalEntry{Round: 1}))

			require.NoError(t, b.DeleteGame(ctx, "g1"))

			_, err := b.Get(ctx, game.SaveKey("g1"))
			assert.ErrorIs(t, err, ErrNotFound)
			rows, err := b.RecentRounds(ctx, "g1", 10)
			require.NoError(t, err)
			assert.Empty(t, rows)
		})
	}
}

func TestEngineRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			e := game.NewEngine(game.DefaultRules(), b, b, nil)
			s := game.NewGame(e.Rules, "persist", false, false)
			for _, a := range []game.Action{
				game.Place{Index: 0}, game.Place{Index: 1}, game.Place{Index: 2},
				game.FullReveal{}, game.ShowEndModal{}, game.NextSeason{},
			} {
				s, _ = e.Dispatch(ctx, "g", s, a)
			}

			loaded, ok := e.Load(ctx, "g", "unused")
			require.True(t, ok)
			assert.Equal(t, s.Progress, loaded.Progress)

			rows, err := b.RecentRounds(ctx, "g", 5)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, s.Progress.Population, rows[0].Population)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\`, escapeLike(`a%b_c\`))
}
