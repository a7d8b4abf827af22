// Command broodsim serves brood games over HTTP with SQLite saves.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/brood/internal/api"
	"github.com/talgya/brood/internal/config"
	"github.com/talgya/brood/internal/game"
	"github.com/talgya/brood/internal/persistence"
	"github.com/talgya/brood/internal/session"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if path := os.Getenv("BROOD_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			slog.Error("failed to load config", "path", path, "error", err)
			os.Exit(1)
		}
		cfg = loaded
		slog.Info("config loaded", "path", path)
	}
	cfg.FromEnv()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	rules, err := cfg.Rules()
	if err != nil {
		slog.Error("failed to build rules", "error", err)
		os.Exit(1)
	}
	levels := rules.Ladder.Levels()
	slog.Info("rules ready",
		"recipes", len(rules.Recipes),
		"ladder_levels", len(levels),
		"top_threshold", humanize.Comma(int64(levels[len(levels)-1].PopulationMin)),
		"evolution_nodes", len(rules.Catalog.Nodes()),
	)

	if dir := filepath.Dir(cfg.Storage.Path); dir != "." && cfg.Storage.Path != ":memory:" {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.Storage.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Storage.Path)

	eng := game.NewEngine(rules, db, db, logger)
	sessions := session.NewManager(eng, session.RealScheduler{}, session.Timing{
		Reveal:   cfg.Timing.RevealDelay(),
		EndModal: cfg.Timing.EndModalDelay(),
	}, logger)

	apiServer := &api.Server{
		Sessions:         sessions,
		Backend:          db,
		Port:             cfg.Server.Port,
		AdminKey:         cfg.Server.AdminKey,
		CORSOrigins:      cfg.Server.CORSOrigins,
		ActionsPerMinute: cfg.Server.ActionsPerMinute,
		Logger:           logger,
	}
	apiServer.Start()
	fmt.Println("Brood server running... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	sessions.Close(ctx)
	fmt.Println("Brood server stopped.")
}
