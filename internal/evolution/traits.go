package evolution

import (
	"errors"
	"fmt"
	"sort"
)

// Trait slots.
const (
	SlotClutch = "clutch"
	SlotForage = "forage"
	SlotHide   = "hide"
)

var (
	ErrUnknownTrait = errors.New("unknown trait")
	ErrWrongSlot    = errors.New("trait does not fit slot")
	ErrTraitLocked  = errors.New("trait not unlocked")
)

// Trait is an equippable bonus unlocked by population.
type Trait struct {
	ID               string  `json:"id" yaml:"id"`
	Name             string  `json:"name" yaml:"name"`
	Slot             string  `json:"slot" yaml:"slot"`
	UnlockPopulation int     `json:"unlock_population" yaml:"unlock_population"`
	EggBonus         int     `json:"egg_bonus,omitempty" yaml:"egg_bonus"`
	Effects          Effects `json:"effects" yaml:"effects"`
}

// Equipped maps slot to trait id.
type Equipped map[string]string

// Clone returns an independent copy.
func (e Equipped) Clone() Equipped {
	out := make(Equipped, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// DefaultTraits returns the standard trait list.
func DefaultTraits() []Trait {
	return []Trait{
		{ID: "wide-nest", Name: "Wide Nest", Slot: SlotClutch, EggBonus: 1},
		{ID: "deep-nest", Name: "Deep Nest", Slot: SlotClutch, UnlockPopulation: 100, EggBonus: 2},
		{ID: "keen-nose", Name: "Keen Nose", Slot: SlotForage, UnlockPopulation: 50,
			Effects: Effects{ExtraFoodTiles: 1}},
		{ID: "bark-hide", Name: "Bark Hide", Slot: SlotHide, UnlockPopulation: 200,
			Effects: Effects{PredatorMitigationPct: 10}},
	}
}

// TraitSet indexes traits by id.
type TraitSet struct {
	traits []Trait
	index  map[string]int
}

// NewTraitSet validates and indexes traits.
func NewTraitSet(traits []Trait) (*TraitSet, error) {
	ts := &TraitSet{traits: append([]Trait(nil), traits...), index: make(map[string]int, len(traits))}
	for i, t := range ts.traits {
		if t.ID == "" || t.Slot == "" {
			return nil, fmt.Errorf("trait %d needs id and slot", i)
		}
		if _, dup := ts.index[t.ID]; dup {
			return nil, fmt.Errorf("duplicate trait id %q", t.ID)
		}
		ts.index[t.ID] = i
	}
	return ts, nil
}

// Traits returns every trait in table order.
func (ts *TraitSet) Traits() []Trait {
	return append([]Trait(nil), ts.traits...)
}

// Trait looks a trait up by id.
func (ts *TraitSet) Trait(id string) (Trait, bool) {
	i, ok := ts.index[id]
	if !ok {
		return Trait{}, false
	}
	return ts.traits[i], true
}

// Slots lists the distinct slots in sorted order.
func (ts *TraitSet) Slots() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range ts.traits {
		if !seen[t.Slot] {
			seen[t.Slot] = true
			out = append(out, t.Slot)
		}
	}
	sort.Strings(out)
	return out
}

// CheckEquip reports why a trait cannot go into slot at a population.
func (ts *TraitSet) CheckEquip(slot, id string, population int) error {
	t, ok := ts.Trait(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrait, id)
	}
	if t.Slot != slot {
		return fmt.Errorf("%w: %s goes in %s", ErrWrongSlot, id, t.Slot)
	}
	if population < t.UnlockPopulation {
		return fmt.Errorf("%w: %s needs population %d", ErrTraitLocked, id, t.UnlockPopulation)
	}
	return nil
}

// Apply folds equipped traits into m. Traits in the wrong slot are skipped.
func (ts *TraitSet) Apply(m Modifiers, eq Equipped) Modifiers {
	slots := make([]string, 0, len(eq))
	for s := range eq {
		slots = append(slots, s)
	}
	sort.Strings(slots)
	for _, s := range slots {
		t, ok := ts.Trait(eq[s])
		if !ok || t.Slot != s {
			continue
		}
		m.EggBonus += t.EggBonus
		m = m.Add(t.Effects)
	}
	return m
}
