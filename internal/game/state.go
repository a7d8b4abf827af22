package game

import (
	"github.com/talgya/brood/internal/climate"
	"github.com/talgya/brood/internal/deal"
	"github.com/talgya/brood/internal/evolution"
	"github.com/talgya/brood/internal/ladder"
)

// NoLevel marks a population below the first ladder threshold.
const NoLevel = -1

// Progress holds the counters that survive a save.
type Progress struct {
	Seed              string   `json:"seed"`
	CurrentLevel      int      `json:"current_level"` // 1-based recipe index
	RoundInLevel      int      `json:"round_in_level"`
	GlobalRound       int      `json:"global_round"`
	GlobalYears       int      `json:"global_years"`
	Population        int      `json:"population"`
	EvolutionPoints   int      `json:"evolution_points"` // spendable balance
	LifetimeEP        int      `json:"lifetime_ep"`      // gates tiers
	TotalDeaths       int      `json:"total_deaths"`
	CurrentLevelIndex int      `json:"current_level_index"`
	CurrentCycle      int      `json:"current_cycle"`
	PurchasedNodes    []string `json:"purchased_nodes"`
	PendingAdvance    bool     `json:"pending_advance"`
}

func (p Progress) clone() Progress {
	p.PurchasedNodes = cloneSlice(p.PurchasedNodes)
	return p
}

// cloneSlice copies s. Empty stays empty and nil stays nil, so a clone
// serializes exactly like its source.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// HasNode reports whether a node was purchased.
func (p Progress) HasNode(id string) bool {
	for _, n := range p.PurchasedNodes {
		if n == id {
			return true
		}
	}
	return false
}

// Reveal is the visibility of one tile.
type Reveal string

const (
	Hidden   Reveal = "hidden"
	Revealed Reveal = "revealed"
	Shadow   Reveal = "shadow" // shown after the round, not picked
)

// Board is the live round.
type Board struct {
	Round         int                `json:"round"`
	Outcomes      []deal.Outcome     `json:"outcomes"`
	Reveals       []Reveal           `json:"reveals"`
	Selected      []int              `json:"selected"`
	FullyRevealed bool               `json:"fully_revealed"`
	Picks         int                `json:"picks"`
	Layout        ladder.Layout      `json:"layout"`
	Climate       climate.Conditions `json:"climate"`
}

func (b Board) clone() Board {
	b.Outcomes = cloneSlice(b.Outcomes)
	b.Reveals = cloneSlice(b.Reveals)
	b.Selected = cloneSlice(b.Selected)
	b.Layout.ColumnGroups = cloneSlice(b.Layout.ColumnGroups)
	return b
}

// Dealt reports whether the board holds tiles.
func (b Board) Dealt() bool {
	return len(b.Outcomes) > 0
}

// RoundResult summarizes a resolved round.
type RoundResult struct {
	Round          int `json:"round"`
	Survived       int `json:"survived"`
	Barren         int `json:"barren"`
	Deaths         int `json:"deaths"`
	Mitigated      int `json:"mitigated"`
	EggsPerClutch  int `json:"eggs_per_clutch"`
	PopulationGain int `json:"population_gain"`
}

// GrowthToast announces a larger board.
type GrowthToast struct {
	FromIndex int    `json:"from_index"`
	ToIndex   int    `json:"to_index"`
	Label     string `json:"label"`
	CardCount int    `json:"card_count"`
}

// UI holds the visibility flags a client renders from.
type UI struct {
	Blocking          bool         `json:"blocking"`
	ShowEndModal      bool         `json:"show_end_modal"`
	AdmireMode        bool         `json:"admire_mode"`
	ShowLevelComplete bool         `json:"show_level_complete"`
	GrowthToast       *GrowthToast `json:"growth_toast,omitempty"`
	EvolutionPrompt   int          `json:"evolution_prompt,omitempty"` // tier reached, 0 when none
	Message           string       `json:"message,omitempty"`
}

// State is everything the reducer owns.
type State struct {
	Rev       int                `json:"rev"`
	Progress  Progress           `json:"progress"`
	Board     Board              `json:"board"`
	UI        UI                 `json:"ui"`
	Equipped  evolution.Equipped `json:"equipped"`
	LastRound *RoundResult       `json:"last_round,omitempty"`
	TestMode  bool               `json:"test_mode"`
	FastPeek  bool               `json:"fast_peek"`
}

func (s State) clone() State {
	s.Progress = s.Progress.clone()
	s.Board = s.Board.clone()
	s.Equipped = s.Equipped.Clone()
	if s.UI.GrowthToast != nil {
		t := *s.UI.GrowthToast
		s.UI.GrowthToast = &t
	}
	if s.LastRound != nil {
		r := *s.LastRound
		s.LastRound = &r
	}
	return s
}

// Resolved reports whether the current round has been scored.
func (s State) Resolved() bool {
	return s.LastRound != nil && s.LastRound.Round == s.Board.Round && s.Board.Dealt()
}

// PicksLeft is how many tiles may still be placed this round.
func (s State) PicksLeft() int {
	n := s.Board.Picks - len(s.Board.Selected)
	if n < 0 {
		return 0
	}
	return n
}
