package persistence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/talgya/brood/internal/game"
)

// Memory is an in-process store with the same contract as DB. It backs
// test mode and runs without a database file.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
	rounds map[string][]game.JournalEntry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]string),
		rounds: make(map[string][]game.JournalEntry),
	}
}

func (m *Memory) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v, nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) AppendRound(_ context.Context, gameID string, e game.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[gameID] = append(m.rounds[gameID], e)
	return nil
}

func (m *Memory) RecentRounds(_ context.Context, gameID string, limit int) ([]game.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.rounds[gameID]
	out := make([]game.JournalEntry, 0, len(all))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *Memory) DeleteGame(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, game.SaveKey(gameID))
	delete(m.rounds, gameID)
	return nil
}

// Backend is what the server needs from storage. DB and Memory satisfy it.
type Backend interface {
	game.Store
	game.Journal
	Keys(ctx context.Context, prefix string) ([]string, error)
	RecentRounds(ctx context.Context, gameID string, limit int) ([]game.JournalEntry, error)
	DeleteGame(ctx context.Context, gameID string) error
}

var (
	_ Backend = (*DB)(nil)
	_ Backend = (*Memory)(nil)
)
