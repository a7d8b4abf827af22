package autoplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/brood/internal/rng"
)

// ErrStuck is returned when a game stops making progress.
var ErrStuck = errors.New("game made no progress")

// Player drives one game until it has closed the requested seasons.
type Player struct {
	Observer *Observer
	Actor    *Actor
	Pick     *rng.LCG
	Logger   *slog.Logger

	// Poll is how long to wait while the server runs its reveal sequence.
	Poll time.Duration
	// MaxSteps bounds the number of observe/act cycles per season.
	MaxSteps int
}

// NewPlayer creates a player against one API base URL.
func NewPlayer(baseURL string, pickSeed int64, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		Observer: NewObserver(baseURL),
		Actor:    NewActor(baseURL),
		Pick:     rng.NewLCG(pickSeed),
		Logger:   logger,
		Poll:     250 * time.Millisecond,
		MaxSteps: 200,
	}
}

// Report summarizes a finished run.
type Report struct {
	GameID     string
	Seed       string
	Seasons    int
	Population int
	LifetimeEP int
	Deaths     int
	Purchased  []string
	LevelIndex int
	Cycle      int
	Elapsed    time.Duration
}

// String renders the report for humans.
func (r Report) String() string {
	return fmt.Sprintf("game %s (seed %q): %s seasons, population %s, %s EP earned, %s deaths, ladder step %d era %d, %d upgrades, took %s",
		r.GameID, r.Seed,
		humanize.Comma(int64(r.Seasons)),
		humanize.Comma(int64(r.Population)),
		humanize.Comma(int64(r.LifetimeEP)),
		humanize.Comma(int64(r.Deaths)),
		r.LevelIndex, r.Cycle, len(r.Purchased),
		r.Elapsed.Round(time.Millisecond),
	)
}

// Run creates a game and plays it.
func (p *Player) Run(ctx context.Context, seed string, testMode bool, seasons int) (Report, error) {
	view, err := p.Actor.Create(ctx, seed, testMode)
	if err != nil {
		return Report{}, err
	}
	p.Logger.Info("game created", "game", view.ID, "seed", view.State.Progress.Seed)
	return p.Play(ctx, view.ID, seasons)
}

// Play runs observe, decide, act cycles until seasons rounds have closed.
func (p *Player) Play(ctx context.Context, id string, seasons int) (Report, error) {
	start := time.Now()
	played, steps := 0, 0
	var snap *Snapshot

	for played < seasons {
		if err := ctx.Err(); err != nil {
			return p.report(id, snap, played, start), err
		}
		if steps >= p.MaxSteps {
			return p.report(id, snap, played, start), fmt.Errorf("%w after %d steps in season %d", ErrStuck, steps, played+1)
		}
		steps++

		var err error
		snap, err = p.Observer.Observe(ctx, id)
		if err != nil {
			return p.report(id, snap, played, start), fmt.Errorf("observe: %w", err)
		}

		d := Decide(snap, p.Pick)
		if d.Wait() {
			if err := sleep(ctx, p.Poll); err != nil {
				return p.report(id, snap, played, start), err
			}
			continue
		}

		view, err := p.Actor.Act(ctx, id, d.Action)
		if err != nil {
			return p.report(id, snap, played, start), fmt.Errorf("act: %w", err)
		}
		applied := view.Applied != nil && *view.Applied
		p.Logger.Debug("action", "game", id, "action", d.Action.Kind(), "applied", applied, "why", d.Rationale)
		if !applied {
			continue
		}
		if d.Action.Kind() == "next_season" {
			played++
			steps = 0
			pr := view.State.Progress
			p.Logger.Info("season closed",
				"game", id,
				"round", pr.GlobalRound-1,
				"population", humanize.Comma(int64(pr.Population)),
				"ep", pr.EvolutionPoints,
			)
		}
	}

	snap, err := p.Observer.Observe(ctx, id)
	if err != nil {
		return p.report(id, nil, played, start), fmt.Errorf("final observe: %w", err)
	}
	return p.report(id, snap, played, start), nil
}

func (p *Player) report(id string, snap *Snapshot, played int, start time.Time) Report {
	r := Report{GameID: id, Seasons: played, Elapsed: time.Since(start)}
	if snap == nil {
		return r
	}
	pr := snap.Game.State.Progress
	r.Seed = pr.Seed
	r.Population = pr.Population
	r.LifetimeEP = pr.LifetimeEP
	r.Deaths = pr.TotalDeaths
	r.Purchased = append([]string(nil), pr.PurchasedNodes...)
	r.LevelIndex = pr.CurrentLevelIndex
	r.Cycle = pr.CurrentCycle
	return r
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
