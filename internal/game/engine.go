package game

import (
	"context"
	"fmt"
	"log/slog"
)

// Store is a string key/value store for saves.
type Store interface {
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
}

// JournalEntry is one closed round.
type JournalEntry struct {
	Round           int `json:"round" db:"round"`
	Population      int `json:"population" db:"population"`
	EvolutionPoints int `json:"evolution_points" db:"evolution_points"`
	LevelIndex      int `json:"level_index" db:"level_index"`
	Cycle           int `json:"cycle" db:"cycle"`
	Survived        int `json:"survived" db:"survived"`
	Deaths          int `json:"deaths" db:"deaths"`
	Mitigated       int `json:"mitigated" db:"mitigated"`
}

// Journal records closed rounds.
type Journal interface {
	AppendRound(ctx context.Context, game string, e JournalEntry) error
}

// SaveKey is the store key for a game's snapshot.
func SaveKey(game string) string {
	return "save:" + game
}

// Engine runs the reducer and performs the one side effect it allows: a
// best-effort save after every NextSeason. Store and Journal may be nil.
type Engine struct {
	Rules   *Rules
	Store   Store
	Journal Journal
	Logger  *slog.Logger
}

// NewEngine creates an engine. A nil logger uses slog.Default().
func NewEngine(r *Rules, store Store, journal Journal, logger *slog.Logger) *Engine {
	return &Engine{Rules: r, Store: store, Journal: journal, Logger: logger}
}

func (e *Engine) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Dispatch applies an action to s for the named game. Save failures are
// logged and never change the returned state.
func (e *Engine) Dispatch(ctx context.Context, game string, s State, a Action) (State, bool) {
	next, ok := Apply(e.Rules, s, a)
	if !ok {
		kind := "nil"
		if a != nil {
			kind = a.Kind()
		}
		e.log().Debug("action ignored", "game", game, "action", kind, "rev", s.Rev)
		return s, false
	}
	if _, closed := a.(NextSeason); closed {
		e.afterSeason(ctx, game, s, next)
	}
	return next, true
}

func (e *Engine) afterSeason(ctx context.Context, game string, prev, next State) {
	if err := e.Save(ctx, game, next); err != nil {
		e.log().Warn("save failed", "game", game, "round", next.Progress.GlobalRound, "error", err)
	}
	if e.Journal == nil || prev.LastRound == nil {
		return
	}
	p := next.Progress
	entry := JournalEntry{
		Round:           prev.LastRound.Round,
		Population:      p.Population,
		EvolutionPoints: p.EvolutionPoints,
		LevelIndex:      p.CurrentLevelIndex,
		Cycle:           p.CurrentCycle,
		Survived:        prev.LastRound.Survived,
		Deaths:          prev.LastRound.Deaths,
		Mitigated:       prev.LastRound.Mitigated,
	}
	if err := e.Journal.AppendRound(ctx, game, entry); err != nil {
		e.log().Warn("journal append failed", "game", game, "round", entry.Round, "error", err)
	}
}

// Save writes the snapshot for a game. It is a no-op without a store.
func (e *Engine) Save(ctx context.Context, game string, s State) error {
	if e.Store == nil {
		return nil
	}
	data, err := EncodeSnapshot(s)
	if err != nil {
		return err
	}
	if err := e.Store.Put(ctx, SaveKey(game), data); err != nil {
		return fmt.Errorf("put %s: %w", SaveKey(game), err)
	}
	return nil
}

// Load restores a saved game. Any failure falls back to a fresh game with
// the given seed; loaded reports which happened.
func (e *Engine) Load(ctx context.Context, game, seed string) (s State, loaded bool) {
	fresh := NewGame(e.Rules, seed, false, false)
	if e.Store == nil {
		return fresh, false
	}
	data, err := e.Store.Get(ctx, SaveKey(game))
	if err != nil {
		e.log().Info("no save found, starting fresh", "game", game, "error", err)
		return fresh, false
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		e.log().Warn("discarding unreadable save", "game", game, "error", err)
		return fresh, false
	}
	return Restore(e.Rules, snap), true
}
