// Package session keeps live games in memory and sequences the timed
// follow-ups after a round's last pick: FullReveal, then ShowEndModal.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/brood/internal/entropy"
	"github.com/talgya/brood/internal/game"
)

// ErrNotFound is returned for an unknown game id.
var ErrNotFound = errors.New("game not found")

// Timing is the delay before each follow-up step.
type Timing struct {
	Reveal   time.Duration
	EndModal time.Duration
}

// Options start a new game.
type Options struct {
	Seed     string
	TestMode bool // follow-ups run synchronously
	FastPeek bool // follow-ups are applied inline with the last pick
}

// Session is one live game.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	state   game.State
	gen     int
	pending []Cancel
}

// State returns the current state.
func (s *Session) State() game.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// resetTimers stops queued follow-ups and invalidates any already firing.
// Caller holds mu.
func (s *Session) resetTimers() {
	for _, cancel := range s.pending {
		cancel()
	}
	s.pending = nil
	s.gen++
}

// Manager owns every live session.
type Manager struct {
	engine *game.Engine
	sched  Scheduler
	timing Timing
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	NewID   func() string
	NewSeed func() string
	Now     func() time.Time
}

// NewManager creates a manager. A nil scheduler uses RealScheduler.
func NewManager(engine *game.Engine, sched Scheduler, timing Timing, logger *slog.Logger) *Manager {
	if sched == nil {
		sched = RealScheduler{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		engine:   engine,
		sched:    sched,
		timing:   timing,
		logger:   logger,
		sessions: make(map[string]*Session),
		NewID:    uuid.NewString,
		NewSeed:  entropy.NewSeed,
		Now:      time.Now,
	}
}

// Rules returns the rules the manager's engine plays by.
func (m *Manager) Rules() *game.Rules {
	return m.engine.Rules
}

// Create starts a game and saves its first snapshot.
func (m *Manager) Create(ctx context.Context, opts Options) (string, game.State) {
	seed := opts.Seed
	if seed == "" {
		seed = m.NewSeed()
	}
	id := m.NewID()
	state, _ := m.engine.Dispatch(ctx, id, game.State{}, game.Init{
		Seed: seed, TestMode: opts.TestMode, FastPeek: opts.FastPeek,
	})
	if err := m.engine.Save(ctx, id, state); err != nil {
		m.logger.Warn("initial save failed", "game", id, "error", err)
	}

	m.mu.Lock()
	m.sessions[id] = &Session{ID: id, CreatedAt: m.Now(), state: state}
	m.mu.Unlock()

	m.logger.Info("game created", "game", id, "seed", seed, "test_mode", opts.TestMode, "fast_peek", opts.FastPeek)
	return id, state
}

// Get returns a game's state, restoring it from storage if needed.
func (m *Manager) Get(ctx context.Context, id string) (game.State, error) {
	sess, err := m.lookup(ctx, id)
	if err != nil {
		return game.State{}, err
	}
	return sess.State(), nil
}

func (m *Manager) lookup(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	state, loaded := m.engine.Load(ctx, id, "")
	if !loaded {
		return nil, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	sess = &Session{ID: id, CreatedAt: m.Now(), state: state}
	m.sessions[id] = sess
	m.logger.Info("game restored", "game", id, "round", state.Progress.GlobalRound)
	return sess, nil
}

// Dispatch applies an action and reports whether it took effect. An Init
// without a seed gets a fresh one.
// The returned state includes any follow-ups that ran synchronously.
func (m *Manager) Dispatch(ctx context.Context, id string, a game.Action) (game.State, bool, error) {
	sess, err := m.lookup(ctx, id)
	if err != nil {
		return game.State{}, false, err
	}

	if in, ok := a.(game.Init); ok && in.Seed == "" {
		in.Seed = m.NewSeed()
		a = in
	}

	sess.mu.Lock()
	next, ok := m.engine.Dispatch(ctx, id, sess.state, a)
	if !ok {
		state := sess.state
		sess.mu.Unlock()
		return state, false, nil
	}
	if _, isInit := a.(game.Init); isInit {
		sess.resetTimers()
	}
	sess.state = next

	_, placed := a.(game.Place)
	sequence := placed && needsReveal(next)
	if sequence && next.FastPeek {
		sess.state, _ = m.engine.Dispatch(ctx, id, sess.state, game.FullReveal{})
		sess.state, _ = m.engine.Dispatch(ctx, id, sess.state, game.ShowEndModal{})
		sequence = false
	}
	gen, testMode := sess.gen, sess.state.TestMode
	sess.mu.Unlock()

	if sequence {
		m.scheduleReveal(sess, gen, testMode)
	}
	return sess.State(), true, nil
}

func needsReveal(s game.State) bool {
	return s.Board.Dealt() && !s.Board.FullyRevealed && s.PicksLeft() == 0
}

func (m *Manager) scheduleReveal(sess *Session, gen int, testMode bool) {
	sched := m.sched
	if testMode {
		sched = ImmediateScheduler{}
	}
	m.after(sess, sched, gen, m.timing.Reveal, func() {
		if !m.followUp(sess, gen, game.FullReveal{}) {
			return
		}
		m.after(sess, sched, gen, m.timing.EndModal, func() {
			m.followUp(sess, gen, game.ShowEndModal{})
		})
	})
}

func (m *Manager) after(sess *Session, sched Scheduler, gen int, d time.Duration, f func()) {
	cancel := sched.AfterFunc(d, f)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.gen == gen {
		sess.pending = append(sess.pending, cancel)
		return
	}
	cancel()
}

// followUp applies a scheduled action unless the session was reset since
// it was queued.
func (m *Manager) followUp(sess *Session, gen int, a game.Action) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.gen != gen {
		return false
	}
	next, ok := m.engine.Dispatch(context.Background(), sess.ID, sess.state, a)
	if ok {
		sess.state = next
	}
	return ok
}

// Save writes a game's snapshot now.
func (m *Manager) Save(ctx context.Context, id string) error {
	sess, err := m.lookup(ctx, id)
	if err != nil {
		return err
	}
	return m.engine.Save(ctx, id, sess.State())
}

// IDs lists live session ids, oldest first.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := m.sessions[ids[i]], m.sessions[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Count is the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every pending follow-up and saves every live game.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.mu.Lock()
		s.resetTimers()
		state := s.state
		s.mu.Unlock()
		if err := m.engine.Save(ctx, s.ID, state); err != nil {
			m.logger.Warn("save on close failed", "game", s.ID, "error", err)
		}
	}
	m.logger.Info("sessions closed", "count", len(sessions))
}
