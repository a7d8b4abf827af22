// Package game is the round and progress state machine. Reduce is a pure
// function from (rules, state, action) to the next state; Engine wraps it
// with best-effort persistence.
package game

import (
	"fmt"

	"github.com/talgya/brood/internal/deal"
	"github.com/talgya/brood/internal/evolution"
	"github.com/talgya/brood/internal/ladder"
)

// Defaults for a fresh game.
const (
	DefaultBaseEggs      = 3
	DefaultPicksPerRound = 3
	DefaultBasePopCap    = 1500
)

// Recipe is one static level. An endless recipe takes its board size from
// the ladder and its composition from the odds table.
type Recipe struct {
	ID             int              `json:"id" yaml:"id"`
	Name           string           `json:"name" yaml:"name"`
	RoundsPerLevel int              `json:"rounds_per_level" yaml:"rounds_per_level"`
	TileCount      int              `json:"tile_count" yaml:"tile_count"`
	PicksPerRound  int              `json:"picks_per_round" yaml:"picks_per_round"`
	Composition    deal.Composition `json:"composition" yaml:"composition"`
	YearsPerRound  int              `json:"years_per_round" yaml:"years_per_round"`
	Endless        bool             `json:"endless" yaml:"endless"`
}

// Validate checks the recipe's internal consistency.
func (r Recipe) Validate() error {
	if r.PicksPerRound < 1 {
		return fmt.Errorf("recipe %d: picks_per_round must be >= 1", r.ID)
	}
	if r.Endless {
		return nil
	}
	if err := r.Composition.Validate(); err != nil {
		return fmt.Errorf("recipe %d: %w", r.ID, err)
	}
	if r.Composition.Total() != r.TileCount {
		return fmt.Errorf("recipe %d: composition sums to %d, tile_count is %d", r.ID, r.Composition.Total(), r.TileCount)
	}
	if r.RoundsPerLevel < 1 {
		return fmt.Errorf("recipe %d: rounds_per_level must be >= 1", r.ID)
	}
	return nil
}

// DefaultRecipes are the two tutorial levels followed by the endless wilds.
func DefaultRecipes() []Recipe {
	return []Recipe{
		{ID: 1, Name: "First Clutch", RoundsPerLevel: 3, TileCount: 5, PicksPerRound: DefaultPicksPerRound,
			Composition: deal.Composition{Fruit: 3, Barren: 2}, YearsPerRound: 1},
		{ID: 2, Name: "Thicket", RoundsPerLevel: 4, TileCount: 10, PicksPerRound: DefaultPicksPerRound,
			Composition: deal.Composition{Fruit: 6, Barren: 3, Predator: 1}, YearsPerRound: 1},
		{ID: 3, Name: "The Wilds", PicksPerRound: DefaultPicksPerRound, YearsPerRound: 1, Endless: true},
	}
}

// DefaultOdds returns the odds table keyed by ladder odds key. Later eras
// shift weight from fruit to predators.
func DefaultOdds() map[string]deal.Ratios {
	return map[string]deal.Ratios{
		ladder.StandardOddsKey: deal.StandardRatios,
		ladder.OddsKey(1):      {Fruit: 0.55, Barren: 0.3, Predator: 0.15},
		ladder.OddsKey(2):      {Fruit: 0.5, Barren: 0.3, Predator: 0.2},
		ladder.OddsKey(3):      {Fruit: 0.45, Barren: 0.3, Predator: 0.25},
	}
}

// Rules bundles every tunable the reducer reads. It is built once and
// passed to each call; nothing here is mutated after construction.
type Rules struct {
	Recipes    []Recipe
	Ladder     *ladder.Ladder
	Catalog    *evolution.Catalog
	Traits     *evolution.TraitSet
	Odds       map[string]deal.Ratios
	BaseEggs   int
	BasePopCap int // 0 means uncapped
}

// NewRules validates the parts and assembles them.
func NewRules(recipes []Recipe, lad *ladder.Ladder, cat *evolution.Catalog, traits *evolution.TraitSet, odds map[string]deal.Ratios, baseEggs, basePopCap int) (*Rules, error) {
	if len(recipes) == 0 {
		return nil, fmt.Errorf("at least one recipe is required")
	}
	for _, r := range recipes {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	if lad == nil || cat == nil || traits == nil {
		return nil, fmt.Errorf("ladder, catalog and traits are required")
	}
	if baseEggs < 0 || basePopCap < 0 {
		return nil, fmt.Errorf("base eggs and pop cap must not be negative")
	}
	return &Rules{
		Recipes:    append([]Recipe(nil), recipes...),
		Ladder:     lad,
		Catalog:    cat,
		Traits:     traits,
		Odds:       odds,
		BaseEggs:   baseEggs,
		BasePopCap: basePopCap,
	}, nil
}

// DefaultRules builds rules from every default table.
func DefaultRules() *Rules {
	traits, err := evolution.NewTraitSet(evolution.DefaultTraits())
	if err != nil {
		panic(err)
	}
	r, err := NewRules(DefaultRecipes(), ladder.New(ladder.DefaultOptions()), evolution.MustDefaultCatalog(),
		traits, DefaultOdds(), DefaultBaseEggs, DefaultBasePopCap)
	if err != nil {
		panic(err)
	}
	return r
}

// RecipeFor returns the recipe for a 1-based level. Levels past the end of
// the table reuse the last recipe.
func (r *Rules) RecipeFor(level int) Recipe {
	if level < 1 {
		level = 1
	}
	if level > len(r.Recipes) {
		level = len(r.Recipes)
	}
	return r.Recipes[level-1]
}

// Ratios returns the odds for a key, falling back to the standard split.
func (r *Rules) Ratios(key string) deal.Ratios {
	if ratios, ok := r.Odds[key]; ok {
		return ratios
	}
	return deal.StandardRatios
}

// Modifiers combines purchased nodes and equipped traits.
func (r *Rules) Modifiers(p Progress, eq evolution.Equipped) evolution.Modifiers {
	return r.Traits.Apply(r.Catalog.Aggregate(p.PurchasedNodes), eq)
}

// Traits is the derived view of what a player's brood can do right now.
type Traits struct {
	EggsPerClutch         int `json:"eggs_per_clutch"`
	PicksPerRound         int `json:"picks_per_round"`
	PredatorMitigationPct int `json:"predator_mitigation_pct"`
	ExtraFoodTiles        int `json:"extra_food_tiles"`
	PopulationCap         int `json:"population_cap"` // 0 means uncapped
	EvolutionTier         int `json:"evolution_tier"`
}

// Derive computes Traits for a state.
func (r *Rules) Derive(s State) Traits {
	m := r.Modifiers(s.Progress, s.Equipped)
	recipe := r.RecipeFor(s.Progress.CurrentLevel)
	return Traits{
		EggsPerClutch:         evolution.EggsPerClutch(r.BaseEggs, m),
		PicksPerRound:         recipe.PicksPerRound + m.GroupsIncrease,
		PredatorMitigationPct: m.PredatorMitigationPct,
		ExtraFoodTiles:        m.ExtraFoodTiles,
		PopulationCap:         r.popCap(m),
		EvolutionTier:         r.Catalog.Tier(s.Progress.LifetimeEP),
	}
}

func (r *Rules) popCap(m evolution.Modifiers) int {
	if r.BasePopCap == 0 {
		return 0
	}
	return r.BasePopCap + m.PopCapIncrease
}
