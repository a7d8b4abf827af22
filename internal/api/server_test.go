package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/brood/internal/game"
	"github.com/talgya/brood/internal/persistence"
	"github.com/talgya/brood/internal/session"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := persistence.NewMemory()
	eng := game.NewEngine(game.DefaultRules(), store, store, logger)
	mgr := session.NewManager(eng, session.NewFakeScheduler(), session.Timing{}, logger)

	s := &Server{
		Sessions:         mgr,
		Backend:          store,
		AdminKey:         "secret",
		CORSOrigins:      []string{"https://brood.example.com"},
		ActionsPerMinute: 1000,
		Logger:           logger,
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Shutdown(context.Background())
	})
	return ts, s
}

func doJSON(t *testing.T, method, url, body string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createGame(t *testing.T, base, query string) gameResponse {
	t.Helper()
	var g gameResponse
	resp := doJSON(t, http.MethodPost, base+"/api/v1/games?"+query, "", &g)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return g
}

func TestCreateAndGetGame(t *testing.T) {
	ts, _ := newTestServer(t)

	g := createGame(t, ts.URL, "seed=api-seed")
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "api-seed", g.State.Progress.Seed)
	assert.Equal(t, 3, g.PicksLeft)
	assert.Equal(t, 3, g.Traits.EggsPerClutch)

	var got gameResponse
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/games/"+g.ID, "", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, g.State.Board.Outcomes, got.State.Board.Outcomes)
}

func TestCreateGame_BadFlag(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/games?test=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetGame_NotFound(t *testing.T) {
	ts, _ := newTestServer(t)
	var body map[string]string
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/games/nope", "", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "game not found", body["error"])
}

func TestActions_PlayOneSeason(t *testing.T) {
	ts, _ := newTestServer(t)
	g := createGame(t, ts.URL, "seed=season&test=true")
	actions := ts.URL + "/api/v1/games/" + g.ID + "/actions"

	var res gameResponse
	for i := 0; i < 3; i++ {
		resp := doJSON(t, http.MethodPost, actions, `{"type":"place","index":`+string(rune('0'+i))+`}`, &res)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotNil(t, res.Applied)
		assert.True(t, *res.Applied)
	}
	assert.True(t, res.State.UI.ShowEndModal)
	require.NotNil(t, res.State.LastRound)

	doJSON(t, http.MethodPost, actions, `{"type":"NEXT_SEASON"}`, &res)
	assert.True(t, *res.Applied)
	assert.Equal(t, 2, res.State.Progress.GlobalRound)

	var hist struct {
		Rounds []game.JournalEntry `json:"rounds"`
	}
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/games/"+g.ID+"/history", "", &hist)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, hist.Rounds, 1)
	assert.Equal(t, 1, hist.Rounds[0].Round)
}

func TestActions_IgnoredAndInvalid(t *testing.T) {
	ts, _ := newTestServer(t)
	g := createGame(t, ts.URL, "seed=guard")
	actions := ts.URL + "/api/v1/games/" + g.ID + "/actions"

	var res gameResponse
	resp := doJSON(t, http.MethodPost, actions, `{"type":"next_season"}`, &res)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, res.Applied)
	assert.False(t, *res.Applied)

	resp = doJSON(t, http.MethodPost, actions, `{"type":"teleport"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, actions, `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestActions_RateLimited(t *testing.T) {
	ts, s := newTestServer(t)
	s.limiter.maxRate = 2
	g := createGame(t, ts.URL, "seed=limit")
	actions := ts.URL + "/api/v1/games/" + g.ID + "/actions"

	for i := 0; i < 2; i++ {
		resp := doJSON(t, http.MethodPost, actions, `{"type":"dismiss_message"}`, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := doJSON(t, http.MethodPost, actions, `{"type":"dismiss_message"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestSave_RequiresAdminToken(t *testing.T) {
	ts, _ := newTestServer(t)
	g := createGame(t, ts.URL, "seed=admin")
	url := ts.URL + "/api/v1/games/" + g.ID + "/save"

	resp := doJSON(t, http.MethodPost, url, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSave_DisabledWithoutKey(t *testing.T) {
	ts, s := newTestServer(t)
	s.AdminKey = ""
	g := createGame(t, ts.URL, "seed=nokey")
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/games/"+g.ID+"/save", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLadderEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	var all struct {
		Levels []levelView `json:"levels"`
	}
	doJSON(t, http.MethodGet, ts.URL+"/api/v1/ladder?cycle=0", "", &all)
	require.NotEmpty(t, all.Levels)
	for _, lv := range all.Levels {
		assert.Equal(t, 0, lv.CycleIndex)
	}
	assert.Equal(t, "1", all.Levels[0].Population)

	doJSON(t, http.MethodGet, ts.URL+"/api/v1/ladder?cycle=1", "", &all)
	require.NotEmpty(t, all.Levels)
	assert.Equal(t, "1,000", all.Levels[0].Population)
	assert.Equal(t, 1, all.Levels[0].CycleIndex)

	var cur struct {
		Found bool      `json:"found"`
		Level levelView `json:"level"`
	}
	doJSON(t, http.MethodGet, ts.URL+"/api/v1/ladder/current?population=0", "", &cur)
	assert.False(t, cur.Found)

	doJSON(t, http.MethodGet, ts.URL+"/api/v1/ladder/current?population=12&cycle=0", "", &cur)
	assert.True(t, cur.Found)
	assert.Equal(t, 1, cur.Level.LevelIndex)
	assert.Equal(t, 10, cur.Level.CardCount)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/ladder/current?population=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEvolutionEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	var body struct {
		Tier    int `json:"tier"`
		Visible []struct {
			ID   string `json:"id"`
			Tier int    `json:"tier"`
		} `json:"visible"`
	}
	doJSON(t, http.MethodGet, ts.URL+"/api/v1/evolution?ep=10", "", &body)
	assert.Equal(t, 1, body.Tier)
	require.Len(t, body.Visible, 2)
	for _, n := range body.Visible {
		assert.Equal(t, 1, n.Tier)
	}
}

func TestStatusAndCORS(t *testing.T) {
	ts, _ := newTestServer(t)
	createGame(t, ts.URL, "seed=status")

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/status", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://brood.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "https://brood.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "Brood", status["name"])
	assert.EqualValues(t, 1, status["live_games"])
	assert.EqualValues(t, 1, status["saved_games"])

	req, _ = http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/status", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))
	assert.Equal(t, 61, rl.RetryAfter("1.2.3.4"))

	now = now.Add(30 * time.Second)
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.Equal(t, 31, rl.RetryAfter("1.2.3.4"))

	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.Equal(t, 0, rl.RetryAfter("unknown"))
}

func TestRateLimiter_DisabledAndForget(t *testing.T) {
	off := NewRateLimiter(0, time.Minute)
	defer off.Stop()
	for i := 0; i < 10; i++ {
		assert.True(t, off.Allow("x"))
	}

	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("idle")
	now = now.Add(3 * time.Minute)
	rl.forgetIdle()
	assert.Empty(t, rl.clients)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}

func TestWriteJSONStatus_UnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSONStatus(rec, http.StatusTeapot, map[string]any{"c": make(chan int)})
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
