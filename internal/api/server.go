// Package api serves games over HTTP.
// GET endpoints are public and read-only. Actions are rate limited per
// client. The save endpoint requires the admin bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talgya/brood/internal/game"
	"github.com/talgya/brood/internal/ladder"
	"github.com/talgya/brood/internal/persistence"
	"github.com/talgya/brood/internal/session"
)

const (
	maxActionBytes = 4 << 10
	defaultHistory = 20
	maxHistory     = 200
)

// localOrigins are always allowed for dev servers.
var localOrigins = []string{
	"http://localhost:5173",
	"http://localhost:4173",
	"http://localhost:3000",
}

// Server serves game state over HTTP.
type Server struct {
	Sessions         *session.Manager
	Backend          persistence.Backend // history and save listing; may be nil
	Port             int
	AdminKey         string // Bearer token for the save endpoint. Empty = disabled.
	CORSOrigins      []string
	ActionsPerMinute int
	Logger           *slog.Logger

	started time.Time
	limiter *RateLimiter
	srv     *http.Server
}

func (s *Server) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Handler builds the router. It may be called once per server.
func (s *Server) Handler() http.Handler {
	if s.started.IsZero() {
		s.started = time.Now()
	}
	if s.limiter == nil {
		s.limiter = NewRateLimiter(s.ActionsPerMinute, time.Minute)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.CORSOrigins))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Post("/games", s.handleCreateGame)
		r.Route("/games/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetGame)
			r.Get("/history", s.handleHistory)
			r.With(RateLimitMiddleware(s.limiter)).Post("/actions", s.handleAction)
			r.Post("/save", s.adminOnly(s.handleSave))
		})

		r.Get("/ladder", s.handleLadder)
		r.Get("/ladder/current", s.handleLadderCurrent)
		r.Get("/evolution", s.handleEvolution)
	})
	return r
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log().Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "actions_per_minute", s.ActionsPerMinute)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the listener and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins)+len(localOrigins))
	for _, o := range localOrigins {
		allowed[o] = true
	}
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "admin endpoints disabled (no BROOD_ADMIN_KEY set)")
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rules := s.Sessions.Rules()
	saved := 0
	if s.Backend != nil {
		keys, err := s.Backend.Keys(r.Context(), game.SaveKey(""))
		if err != nil {
			s.log().Warn("listing saves failed", "error", err)
		}
		saved = len(keys)
	}
	levels := rules.Ladder.Levels()
	top := levels[len(levels)-1]

	writeJSON(w, map[string]any{
		"name":          "Brood",
		"started":       humanize.Time(s.started),
		"live_games":    s.Sessions.Count(),
		"saved_games":   saved,
		"ladder_levels": len(levels),
		"eras":          rules.Ladder.Cycles(),
		"top_threshold": humanize.Comma(int64(top.PopulationMin)),
		"base_pop_cap":  humanize.Comma(int64(rules.BasePopCap)),
	})
}

type gameResponse struct {
	ID        string      `json:"id"`
	Applied   *bool       `json:"applied,omitempty"`
	PicksLeft int         `json:"picks_left"`
	Traits    game.Traits `json:"traits"`
	State     game.State  `json:"state"`
}

func (s *Server) gameView(id string, st game.State) gameResponse {
	return gameResponse{
		ID:        id,
		PicksLeft: st.PicksLeft(),
		Traits:    s.Sessions.Rules().Derive(st),
		State:     st,
	}
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	testMode, err := queryBool(q.Get("test"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid test flag")
		return
	}
	fastPeek, err := queryBool(q.Get("fastpeek"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fastpeek flag")
		return
	}

	id, st := s.Sessions.Create(r.Context(), session.Options{
		Seed:     strings.TrimSpace(q.Get("seed")),
		TestMode: testMode,
		FastPeek: fastPeek,
	})
	writeJSONStatus(w, http.StatusCreated, s.gameView(id, st))
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.Sessions.Get(r.Context(), id)
	if err != nil {
		s.writeSessionError(w, id, err)
		return
	}
	writeJSON(w, s.gameView(id, st))
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxActionBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read body")
		return
	}
	action, err := game.DecodeAction(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, applied, err := s.Sessions.Dispatch(r.Context(), id, action)
	if err != nil {
		s.writeSessionError(w, id, err)
		return
	}
	view := s.gameView(id, st)
	view.Applied = &applied
	writeJSON(w, view)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.Backend == nil {
		writeError(w, http.StatusServiceUnavailable, "no journal configured")
		return
	}
	limit := defaultHistory
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistory)
	}

	rounds, err := s.Backend.RecentRounds(r.Context(), id, limit)
	if err != nil {
		s.log().Error("history query failed", "game", id, "error", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if rounds == nil {
		rounds = []game.JournalEntry{}
	}
	writeJSON(w, map[string]any{"id": id, "rounds": rounds})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Save(r.Context(), id); err != nil {
		s.writeSessionError(w, id, err)
		return
	}
	s.log().Info("game saved on request", "game", id)
	writeJSON(w, map[string]any{"id": id, "saved": true})
}

type levelView struct {
	ladder.LevelDef
	Label      string `json:"label"`
	Population string `json:"population"`
}

func (s *Server) handleLadder(w http.ResponseWriter, r *http.Request) {
	cycle := -1
	if v := r.URL.Query().Get("cycle"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "cycle must be a non-negative integer")
			return
		}
		cycle = n
	}

	var out []levelView
	for _, lv := range s.Sessions.Rules().Ladder.Levels() {
		if cycle >= 0 && lv.CycleIndex != cycle {
			continue
		}
		out = append(out, viewLevel(lv))
	}
	if out == nil {
		out = []levelView{}
	}
	writeJSON(w, map[string]any{"levels": out})
}

func (s *Server) handleLadderCurrent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pop, err := strconv.Atoi(q.Get("population"))
	if err != nil || pop < 0 {
		writeError(w, http.StatusBadRequest, "population must be a non-negative integer")
		return
	}
	cycle := 0
	if v := q.Get("cycle"); v != "" {
		if cycle, err = strconv.Atoi(v); err != nil || cycle < 0 {
			writeError(w, http.StatusBadRequest, "cycle must be a non-negative integer")
			return
		}
	}

	lv, ok := s.Sessions.Rules().Ladder.Current(pop, cycle)
	if !ok {
		writeJSON(w, map[string]any{"found": false})
		return
	}
	writeJSON(w, map[string]any{"found": true, "level": viewLevel(lv)})
}

func viewLevel(lv ladder.LevelDef) levelView {
	return levelView{
		LevelDef:   lv,
		Label:      lv.DisplayLabel(),
		Population: humanize.Comma(int64(lv.PopulationMin)),
	}
}

func (s *Server) handleEvolution(w http.ResponseWriter, r *http.Request) {
	ep := 0
	if v := r.URL.Query().Get("ep"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "ep must be a non-negative integer")
			return
		}
		ep = n
	}
	cat := s.Sessions.Rules().Catalog
	writeJSON(w, map[string]any{
		"tier":           cat.Tier(ep),
		"milestone_step": cat.Step(),
		"visible":        cat.NodesForTier(ep),
		"total_nodes":    len(cat.Nodes()),
	})
}

func (s *Server) writeSessionError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	s.log().Error("session error", "game", id, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func queryBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("write response failed", "status", status, "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, map[string]string{"error": msg})
}
