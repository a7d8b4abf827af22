package game

import (
	"github.com/talgya/brood/internal/climate"
	"github.com/talgya/brood/internal/deal"
	"github.com/talgya/brood/internal/evolution"
	"github.com/talgya/brood/internal/ladder"
	"github.com/talgya/brood/internal/rng"
)

// MitigationLabel is the child stream used for predator rolls.
const MitigationLabel = "mitigation"

// Reduce applies an action. Actions whose preconditions fail return s
// unchanged.
func Reduce(r *Rules, s State, a Action) State {
	next, _ := Apply(r, s, a)
	return next
}

// Apply is Reduce that also reports whether the action took effect.
// The input state is never mutated.
func Apply(r *Rules, s State, a Action) (State, bool) {
	if a == nil {
		return s, false
	}
	next, ok := a.apply(r, s)
	if !ok {
		return s, false
	}
	next.Rev = s.Rev + 1
	return next, true
}

// NewGame returns a fresh game with round 1 dealt from the first recipe.
func NewGame(r *Rules, seed string, testMode, fastPeek bool) State {
	s := State{
		Progress: Progress{
			Seed:              seed,
			CurrentLevel:      1,
			GlobalRound:       1,
			CurrentLevelIndex: NoLevel,
			PurchasedNodes:    []string{},
		},
		Equipped: evolution.Equipped{},
		TestMode: testMode,
		FastPeek: fastPeek,
	}
	s.Board = dealBoard(r, s)
	return s
}

// dealBoard deals the board for the progress' current global round.
func dealBoard(r *Rules, s State) Board {
	p := s.Progress
	m := r.Modifiers(p, s.Equipped)
	recipe := r.RecipeFor(p.CurrentLevel)

	comp := recipe.Composition
	if recipe.Endless {
		lv, ok := r.Ladder.Level(p.CurrentLevelIndex)
		if !ok {
			lv, _ = r.Ladder.Level(0)
		}
		comp = deal.FromRatios(lv.CardCount, r.Ratios(lv.OddsKey))
	}
	comp = comp.WithExtraFruit(m.ExtraFoodTiles)

	outcomes, err := deal.Make(p.Seed, p.GlobalRound, comp)
	if err != nil {
		outcomes = nil
	}
	reveals := make([]Reveal, len(outcomes))
	for i := range reveals {
		reveals[i] = Hidden
	}
	picks := recipe.PicksPerRound + m.GroupsIncrease
	if picks > len(outcomes) {
		picks = len(outcomes)
	}
	return Board{
		Round:    p.GlobalRound,
		Outcomes: outcomes,
		Reveals:  reveals,
		Selected: []int{},
		Picks:    picks,
		Layout:   ladder.LayoutForCardCount(len(outcomes)),
		Climate:  climate.For(p.Seed, p.GlobalRound),
	}
}

func (a Init) apply(r *Rules, _ State) (State, bool) {
	return NewGame(r, a.Seed, a.TestMode, a.FastPeek), true
}

func (a Place) apply(_ *Rules, s State) (State, bool) {
	b := s.Board
	if s.UI.Blocking || s.UI.ShowLevelComplete || b.FullyRevealed {
		return s, false
	}
	if a.Index < 0 || a.Index >= len(b.Outcomes) || b.Reveals[a.Index] != Hidden {
		return s, false
	}
	if len(b.Selected) >= b.Picks {
		return s, false
	}
	next := s.clone()
	next.Board.Selected = append(next.Board.Selected, a.Index)
	next.Board.Reveals[a.Index] = Revealed
	return next, true
}

func (FullReveal) apply(_ *Rules, s State) (State, bool) {
	if !s.Board.Dealt() || s.Board.FullyRevealed || s.PicksLeft() > 0 {
		return s, false
	}
	next := s.clone()
	for i, rv := range next.Board.Reveals {
		if rv == Hidden {
			next.Board.Reveals[i] = Shadow
		}
	}
	next.Board.FullyRevealed = true
	next.UI.Blocking = true
	return next, true
}

func (ShowEndModal) apply(r *Rules, s State) (State, bool) {
	if !s.Board.FullyRevealed || s.Resolved() {
		return s, false
	}
	next := s.clone()
	traits := r.Derive(s)
	res := resolveRound(s.Progress.Seed, s.Board, traits)

	gain := res.Survived * res.EggsPerClutch
	if limit := traits.PopulationCap; limit > 0 && s.Progress.Population+gain > limit {
		gain = limit - s.Progress.Population
		if gain < 0 {
			gain = 0
		}
	}
	res.PopulationGain = gain
	next.Progress.Population += gain
	next.LastRound = &res
	next.UI.ShowEndModal = true
	next.UI.Blocking = false
	return next, true
}

// resolveRound scores the selected tiles. Each picked predator rolls on the
// round's mitigation stream; a roll under the mitigation percentage is
// neutral instead of a death.
func resolveRound(seed string, b Board, t Traits) RoundResult {
	res := RoundResult{Round: b.Round, EggsPerClutch: t.EggsPerClutch}
	var rolls *rng.Stream
	for _, idx := range b.Selected {
		switch b.Outcomes[idx] {
		case deal.Fruit:
			res.Survived++
		case deal.Barren:
			res.Barren++
		case deal.Predator:
			if t.PredatorMitigationPct <= 0 {
				res.Deaths++
				continue
			}
			if rolls == nil {
				rolls = rng.ForRound(seed, b.Round).Child(MitigationLabel)
			}
			if rolls.Float64()*100 < float64(t.PredatorMitigationPct) {
				res.Mitigated++
			} else {
				res.Deaths++
			}
		}
	}
	return res
}

func (AdmireBoard) apply(_ *Rules, s State) (State, bool) {
	if !s.UI.ShowEndModal {
		return s, false
	}
	next := s.clone()
	next.UI.ShowEndModal = false
	next.UI.AdmireMode = true
	return next, true
}

func (ReturnResults) apply(_ *Rules, s State) (State, bool) {
	if !s.UI.AdmireMode {
		return s, false
	}
	next := s.clone()
	next.UI.ShowEndModal = true
	next.UI.AdmireMode = false
	return next, true
}

func (NextSeason) apply(r *Rules, s State) (State, bool) {
	if !s.Resolved() || s.UI.ShowLevelComplete {
		return s, false
	}
	next := s.clone()
	p := &next.Progress
	recipe := r.RecipeFor(p.CurrentLevel)
	deaths := s.LastRound.Deaths

	p.RoundInLevel++
	p.GlobalRound++
	years := recipe.YearsPerRound
	if years < 1 {
		years = 1
	}
	p.GlobalYears += years

	prevTier := r.Catalog.Tier(p.LifetimeEP)
	p.EvolutionPoints += deaths
	p.LifetimeEP += deaths
	p.TotalDeaths += deaths

	prevIndex := p.CurrentLevelIndex
	r.climb(p)
	if p.CurrentLevelIndex > prevIndex {
		lv, _ := r.Ladder.Level(p.CurrentLevelIndex)
		next.UI.GrowthToast = &GrowthToast{
			FromIndex: prevIndex,
			ToIndex:   lv.LevelIndex,
			Label:     lv.DisplayLabel(),
			CardCount: lv.CardCount,
		}
	}
	if tier := r.Catalog.Tier(p.LifetimeEP); tier > prevTier {
		next.UI.EvolutionPrompt = tier
	}

	next.UI.ShowEndModal = false
	next.UI.AdmireMode = false
	next.UI.Blocking = false

	if !recipe.Endless && p.RoundInLevel >= recipe.RoundsPerLevel {
		p.CurrentLevel++
		p.PendingAdvance = true
		next.UI.ShowLevelComplete = true
		return next, true
	}
	next.Board = dealBoard(r, next)
	return next, true
}

// climb moves the ladder pointer up to the best qualifying level and opens
// the next era once the last step of the current one is reached and the
// population meets the next era's entry threshold. It never moves down.
func (r *Rules) climb(p *Progress) {
	for {
		lv, ok := r.Ladder.Current(p.Population, p.CurrentCycle)
		if !ok {
			return
		}
		if lv.LevelIndex > p.CurrentLevelIndex {
			p.CurrentLevelIndex = lv.LevelIndex
		}
		if lv.CycleIndex != p.CurrentCycle || !r.Ladder.IsLastStep(lv) {
			return
		}
		entry, ok := r.Ladder.CycleEntry(p.CurrentCycle + 1)
		if !ok || p.Population < entry.PopulationMin {
			return
		}
		p.CurrentCycle++
	}
}

func (AdvanceLevel) apply(r *Rules, s State) (State, bool) {
	if !s.UI.ShowLevelComplete {
		return s, false
	}
	next := s.clone()
	next.Progress.RoundInLevel = 0
	next.Progress.PendingAdvance = false
	next.UI.ShowLevelComplete = false
	next.Board = dealBoard(r, next)
	return next, true
}

func (a PurchaseEvolutionNode) apply(r *Rules, s State) (State, bool) {
	p := s.Progress
	if err := r.Catalog.CheckPurchase(a.NodeID, p.LifetimeEP, p.EvolutionPoints, p.PurchasedNodes); err != nil {
		return s, false
	}
	n, _ := r.Catalog.Node(a.NodeID)
	next := s.clone()
	next.Progress.EvolutionPoints -= n.Cost
	next.Progress.PurchasedNodes = append(next.Progress.PurchasedNodes, n.ID)
	next.UI.Message = "Evolved: " + n.Name
	return next, true
}

func (a EquipTrait) apply(r *Rules, s State) (State, bool) {
	if s.UI.Blocking {
		return s, false
	}
	current, has := s.Equipped[a.Slot]
	if a.TraitID == "" {
		if !has {
			return s, false
		}
		next := s.clone()
		delete(next.Equipped, a.Slot)
		next.UI.Message = "Unequipped " + a.Slot
		return next, true
	}
	if has && current == a.TraitID {
		return s, false
	}
	if err := r.Traits.CheckEquip(a.Slot, a.TraitID, s.Progress.Population); err != nil {
		return s, false
	}
	t, _ := r.Traits.Trait(a.TraitID)
	next := s.clone()
	next.Equipped[a.Slot] = t.ID
	next.UI.Message = "Equipped " + t.Name
	return next, true
}

func (DismissGrowthToast) apply(_ *Rules, s State) (State, bool) {
	if s.UI.GrowthToast == nil {
		return s, false
	}
	next := s.clone()
	next.UI.GrowthToast = nil
	return next, true
}

func (DismissEvolutionPrompt) apply(_ *Rules, s State) (State, bool) {
	if s.UI.EvolutionPrompt == 0 {
		return s, false
	}
	next := s.clone()
	next.UI.EvolutionPrompt = 0
	return next, true
}

func (DismissMessage) apply(_ *Rules, s State) (State, bool) {
	if s.UI.Message == "" {
		return s, false
	}
	next := s.clone()
	next.UI.Message = ""
	return next, true
}
