// Package autoplay is a headless player. It observes a game through the
// HTTP API, decides on one action, and acts by posting it back.
package autoplay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/talgya/brood/internal/evolution"
	"github.com/talgya/brood/internal/game"
)

// GameView mirrors GET /api/v1/games/{id}.
type GameView struct {
	ID        string      `json:"id"`
	Applied   *bool       `json:"applied,omitempty"`
	PicksLeft int         `json:"picks_left"`
	Traits    game.Traits `json:"traits"`
	State     game.State  `json:"state"`
}

// EvolutionView mirrors GET /api/v1/evolution.
type EvolutionView struct {
	Tier    int              `json:"tier"`
	Visible []evolution.Node `json:"visible"`
}

// Snapshot is everything collected in one observation.
type Snapshot struct {
	Game      GameView
	Evolution EvolutionView
}

// Observer fetches game state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Observe fetches the game and the evolution nodes visible to it.
func (o *Observer) Observe(ctx context.Context, id string) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := o.fetchJSON(ctx, "/api/v1/games/"+url.PathEscape(id), &snap.Game); err != nil {
		return nil, fmt.Errorf("fetch game: %w", err)
	}
	ep := strconv.Itoa(snap.Game.State.Progress.LifetimeEP)
	if err := o.fetchJSON(ctx, "/api/v1/evolution?ep="+ep, &snap.Evolution); err != nil {
		return nil, fmt.Errorf("fetch evolution: %w", err)
	}
	return snap, nil
}

// History fetches the most recent closed rounds, newest first.
func (o *Observer) History(ctx context.Context, id string, limit int) ([]game.JournalEntry, error) {
	var body struct {
		Rounds []game.JournalEntry `json:"rounds"`
	}
	path := fmt.Sprintf("/api/v1/games/%s/history?limit=%d", url.PathEscape(id), limit)
	if err := o.fetchJSON(ctx, path, &body); err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	return body.Rounds, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
