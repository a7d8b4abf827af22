package autoplay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/talgya/brood/internal/game"
)

// Actor creates games and posts actions.
type Actor struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL.
func NewActor(baseURL string) *Actor {
	return &Actor{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Create starts a game. An empty seed lets the server pick one.
func (a *Actor) Create(ctx context.Context, seed string, testMode bool) (*GameView, error) {
	q := url.Values{}
	if seed != "" {
		q.Set("seed", seed)
	}
	q.Set("test", strconv.FormatBool(testMode))

	var view GameView
	if err := a.post(ctx, "/api/v1/games?"+q.Encode(), nil, http.StatusCreated, &view); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return &view, nil
}

// Act posts one action to a game.
func (a *Actor) Act(ctx context.Context, id string, action game.Action) (*GameView, error) {
	body, err := game.EncodeAction(action)
	if err != nil {
		return nil, fmt.Errorf("marshal action: %w", err)
	}
	var view GameView
	if err := a.post(ctx, "/api/v1/games/"+url.PathEscape(id)+"/actions", body, http.StatusOK, &view); err != nil {
		return nil, fmt.Errorf("%s: %w", action.Kind(), err)
	}
	return &view, nil
}

func (a *Actor) post(ctx context.Context, path string, body []byte, want int, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("POST %s failed (%d): %s", path, resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
