// Command autoplay plays brood games headlessly against a running server.
// It observes a game, decides one action, and acts through the API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/brood/internal/autoplay"
	"github.com/talgya/brood/internal/entropy"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	apiURL := envOrDefault("BROOD_API_URL", "http://localhost:8080")
	seed := os.Getenv("AUTOPLAY_SEED")
	seasons := envIntOrDefault("AUTOPLAY_SEASONS", 20)
	games := envIntOrDefault("AUTOPLAY_GAMES", 1)
	testMode := os.Getenv("AUTOPLAY_TEST_MODE") != "false"
	pickSeed := entropy.NewPickSeed()
	if v := os.Getenv("AUTOPLAY_PICK_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			pickSeed = n
		}
	}

	slog.Info("Brood autoplay starting",
		"api_url", apiURL,
		"seasons", seasons,
		"games", games,
		"test_mode", testMode,
		"pick_seed", pickSeed,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("waiting for brood API...")
	waitForAPI(ctx, apiURL)

	player := autoplay.NewPlayer(apiURL, pickSeed, logger)
	for i := 0; i < games; i++ {
		report, err := player.Run(ctx, seed, testMode, seasons)
		if err != nil {
			slog.Error("game failed", "game", report.GameID, "seasons", report.Seasons, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		fmt.Println(report)
	}
	fmt.Println("Autoplay stopped.")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// waitForAPI polls the status endpoint with exponential backoff until it
// responds. Exits after 2 minutes if the API never becomes ready.
func waitForAPI(ctx context.Context, apiURL string) {
	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second
	deadline := time.Now().Add(2 * time.Minute)

	for {
		resp, err := http.Get(apiURL + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				slog.Info("brood API is ready")
				return
			}
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			slog.Error("brood API did not become ready")
			os.Exit(1)
		}
		slog.Info("brood API not ready, retrying...", "backoff", backoff)
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
