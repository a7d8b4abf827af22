package game

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	data    map[string]string
	failPut bool
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (m *memStore) Put(_ context.Context, key, value string) error {
	if m.failPut {
		return errors.New("disk full")
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

type memJournal struct {
	entries []JournalEntry
}

func (j *memJournal) AppendRound(_ context.Context, _ string, e JournalEntry) error {
	j.entries = append(j.entries, e)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngine_SavesAfterNextSeason(t *testing.T) {
	ctx := context.Background()
	store, journal := newMemStore(), &memJournal{}
	e := NewEngine(DefaultRules(), store, journal, quietLogger())

	s := NewGame(e.Rules, "eng", false, false)
	for _, a := range []Action{Place{Index: 0}, Place{Index: 1}, Place{Index: 2}, FullReveal{}, ShowEndModal{}} {
		var ok bool
		s, ok = e.Dispatch(ctx, "g1", s, a)
		require.True(t, ok, a.Kind())
	}
	assert.Empty(t, store.data, "only NextSeason saves")

	s, ok := e.Dispatch(ctx, "g1", s, NextSeason{})
	require.True(t, ok)
	require.Contains(t, store.data, SaveKey("g1"))
	require.Len(t, journal.entries, 1)
	assert.Equal(t, 1, journal.entries[0].Round)
	assert.Equal(t, s.Progress.Population, journal.entries[0].Population)

	loaded, found := e.Load(ctx, "g1", "ignored")
	require.True(t, found)
	assert.Equal(t, s.Progress, loaded.Progress)
	assert.Equal(t, s.Board.Outcomes, loaded.Board.Outcomes)
}

func TestEngine_SaveFailureDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.failPut = true
	e := NewEngine(DefaultRules(), store, nil, quietLogger())

	s := playRound(t, e.Rules, NewGame(e.Rules, "fail", false, false))
	next, ok := e.Dispatch(ctx, "g", s, NextSeason{})
	require.True(t, ok)
	assert.Equal(t, 2, next.Progress.GlobalRound)
	assert.Error(t, e.Save(ctx, "g", next))
}

func TestEngine_IgnoredAction(t *testing.T) {
	e := NewEngine(DefaultRules(), nil, nil, quietLogger())
	s := NewGame(e.Rules, "ign", false, false)
	next, ok := e.Dispatch(context.Background(), "g", s, AdvanceLevel{})
	assert.False(t, ok)
	assert.Equal(t, s, next)

	_, ok = e.Dispatch(context.Background(), "g", s, nil)
	assert.False(t, ok)
}

func TestEngine_LoadFallsBack(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := NewEngine(DefaultRules(), store, nil, quietLogger())

	s, found := e.Load(ctx, "missing", "fresh-seed")
	assert.False(t, found)
	assert.Equal(t, "fresh-seed", s.Progress.Seed)
	assert.Equal(t, 1, s.Progress.GlobalRound)

	store.data[SaveKey("bad")] = "{not json"
	s, found = e.Load(ctx, "bad", "fresh-seed")
	assert.False(t, found)
	assert.Equal(t, 0, s.Progress.Population)

	noStore := NewEngine(DefaultRules(), nil, nil, nil)
	_, found = noStore.Load(ctx, "x", "y")
	assert.False(t, found)
	assert.NoError(t, noStore.Save(ctx, "x", s))
}

func TestSnapshot_RoundTrip(t *testing.T) {
	r := DefaultRules()
	s := playRound(t, r, NewGame(r, "snap", false, false))
	s = Reduce(r, s, NextSeason{})
	s.Equipped["clutch"] = "wide-nest"

	data, err := EncodeSnapshot(s)
	require.NoError(t, err)
	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, SnapshotVersion, snap.Version)

	restored := Restore(r, snap)
	assert.Equal(t, s.Progress, restored.Progress)
	assert.Equal(t, s.Equipped, restored.Equipped)
	assert.Equal(t, s.Board, restored.Board)
}

func TestSnapshot_ByteStableAcrossRestore(t *testing.T) {
	r := DefaultRules()

	fresh := Reduce(r, State{}, Init{Seed: "bytes"})
	bought := playRound(t, r, NewGame(r, "bytes", false, false))
	bought = Reduce(r, bought, NextSeason{})
	bought.Progress.EvolutionPoints, bought.Progress.LifetimeEP = 10, 10
	bought = Reduce(r, bought, PurchaseEvolutionNode{NodeID: "eggs-1"})
	require.Equal(t, []string{"eggs-1"}, bought.Progress.PurchasedNodes)
	placed := Reduce(r, NewGame(r, "bytes", false, false), Place{Index: 0})

	for name, s := range map[string]State{"fresh init": fresh, "after purchase": bought, "after place": placed} {
		t.Run(name, func(t *testing.T) {
			data, err := EncodeSnapshot(s)
			require.NoError(t, err)
			assert.NotContains(t, data, `"purchased_nodes":null`)

			snap, err := DecodeSnapshot(data)
			require.NoError(t, err)
			again, err := EncodeSnapshot(Restore(r, snap))
			require.NoError(t, err)
			assert.Equal(t, data, again)
		})
	}
}

func TestClone_KeepsEmptySlices(t *testing.T) {
	r := DefaultRules()
	s := Reduce(r, NewGame(r, "empty", false, false), Place{Index: 0})

	require.NotNil(t, s.Progress.PurchasedNodes)
	assert.Empty(t, s.Progress.PurchasedNodes)
	assert.Nil(t, cloneSlice([]int(nil)))
	assert.NotNil(t, cloneSlice([]int{}))
}

func TestSnapshot_PendingAdvance(t *testing.T) {
	r := DefaultRules()
	s := NewGame(r, "pending", false, false)
	for i := 0; i < 3; i++ {
		s = playRound(t, r, s)
		s = Reduce(r, s, NextSeason{})
	}
	require.True(t, s.Progress.PendingAdvance)

	data, err := EncodeSnapshot(s)
	require.NoError(t, err)
	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)

	restored := Restore(r, snap)
	assert.True(t, restored.UI.ShowLevelComplete)
	assert.False(t, restored.Board.Dealt())

	restored = Reduce(r, restored, AdvanceLevel{})
	assert.Len(t, restored.Board.Outcomes, 10)
}

func TestDecodeSnapshot_Rejects(t *testing.T) {
	for _, in := range []string{
		``,
		`{"version":2,"progress":{"current_level":1,"global_round":1}}`,
		`{"version":1,"progress":{"current_level":0,"global_round":1}}`,
		`{"version":1,"progress":{"current_level":1,"global_round":1,"population":-1}}`,
		`{"version":1,"progress":{"current_level":1,"global_round":1,"evolution_points":5,"lifetime_ep":2}}`,
		`{"version":1,"progress":{"current_level":1,"global_round":1,"current_level_index":-2}}`,
	} {
		_, err := DecodeSnapshot(in)
		assert.Error(t, err, in)
	}
}
