package autoplay

import (
	"sort"

	"github.com/talgya/brood/internal/evolution"
	"github.com/talgya/brood/internal/game"
	"github.com/talgya/brood/internal/rng"
)

// Decision is the bot's choice for one step. A nil Action means wait for
// the server's reveal sequence.
type Decision struct {
	Action    game.Action
	Rationale string
}

// Wait reports whether the decision is to do nothing this step.
func (d Decision) Wait() bool {
	return d.Action == nil
}

// Decide picks the next action for a snapshot. Tile picks come from pick.
func Decide(snap *Snapshot, pick *rng.LCG) Decision {
	s := snap.Game.State
	ui := s.UI

	switch {
	case ui.ShowLevelComplete:
		return Decision{game.AdvanceLevel{}, "level complete"}
	case ui.GrowthToast != nil:
		return Decision{game.DismissGrowthToast{}, "board grew to " + ui.GrowthToast.Label}
	case ui.EvolutionPrompt != 0:
		return Decision{game.DismissEvolutionPrompt{}, "new evolution tier"}
	case ui.Message != "":
		return Decision{game.DismissMessage{}, "clear message"}
	}

	if s.Resolved() {
		if n, ok := cheapestAffordable(snap.Evolution.Visible, s.Progress); ok {
			return Decision{game.PurchaseEvolutionNode{NodeID: n.ID}, "buy " + n.Name}
		}
		if ui.AdmireMode {
			return Decision{game.ReturnResults{}, "back to results"}
		}
		return Decision{game.NextSeason{}, "round scored"}
	}

	if !s.Board.FullyRevealed && s.PicksLeft() > 0 {
		hidden := hiddenTiles(s.Board)
		if len(hidden) > 0 {
			return Decision{game.Place{Index: hidden[pick.Intn(len(hidden))]}, "pick a tile"}
		}
	}
	return Decision{nil, "waiting for reveal"}
}

func hiddenTiles(b game.Board) []int {
	var out []int
	for i, r := range b.Reveals {
		if r == game.Hidden {
			out = append(out, i)
		}
	}
	return out
}

// cheapestAffordable is the lowest-cost visible node the player can buy now.
func cheapestAffordable(visible []evolution.Node, p game.Progress) (evolution.Node, bool) {
	var candidates []evolution.Node
	for _, n := range visible {
		if n.Cost > p.EvolutionPoints || p.HasNode(n.ID) {
			continue
		}
		met := true
		for _, req := range n.Requires {
			if !p.HasNode(req) {
				met = false
				break
			}
		}
		if met {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return evolution.Node{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Cost != candidates[j].Cost {
			return candidates[i].Cost < candidates[j].Cost
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0], true
}
