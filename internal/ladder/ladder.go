// Package ladder generates the population-gated level ladder that decides
// board size across repeating difficulty eras.
package ladder

import (
	"fmt"
	"math"
)

// DefaultLabels name the six steps of a cycle.
var DefaultLabels = []string{"nest", "grove", "glade", "valley", "region", "province"}

// FallbackLabel is used when a step has no label.
const FallbackLabel = "territory"

// StandardOddsKey is the odds table for the first cycle.
const StandardOddsKey = "standard"

// OddsKey names the odds table for a cycle.
func OddsKey(cycle int) string {
	if cycle == 0 {
		return StandardOddsKey
	}
	return fmt.Sprintf("era-%d", cycle)
}

// LevelDef is one rung of the ladder.
type LevelDef struct {
	LevelIndex    int    `json:"level_index"`
	CycleIndex    int    `json:"cycle_index"`
	StepIndex     int    `json:"step_index"`
	PopulationMin int    `json:"population_min"`
	CardCount     int    `json:"card_count"`
	Layout        Layout `json:"layout"`
	OddsKey       string `json:"odds_key"`
	ScaleLabel    string `json:"scale_label"`
}

// DisplayLabel is the scale label with an era numeral after the first cycle.
func (l LevelDef) DisplayLabel() string {
	if l.CycleIndex == 0 {
		return l.ScaleLabel
	}
	return l.ScaleLabel + " " + roman(l.CycleIndex+1)
}

// Options control ladder generation.
type Options struct {
	Thresholds []int    `json:"thresholds" yaml:"thresholds"`
	CardCounts []int    `json:"card_counts" yaml:"card_counts"`
	Cycles     int      `json:"cycles" yaml:"cycles"`
	CycleScale int      `json:"cycle_scale" yaml:"cycle_scale"` // threshold multiplier per cycle
	Labels     []string `json:"labels" yaml:"labels"`
}

// DefaultOptions returns the standard six-step ladder over four eras.
func DefaultOptions() Options {
	return Options{
		Thresholds: []int{1, 10, 50, 100, 200, 400},
		CardCounts: []int{5, 10, 15, 20, 40, 80},
		Cycles:     4,
		CycleScale: 1000,
		Labels:     append([]string(nil), DefaultLabels...),
	}
}

// Validate checks that options describe a usable ladder.
func (o Options) Validate() error {
	if len(o.Thresholds) == 0 {
		return fmt.Errorf("ladder needs at least one threshold")
	}
	if len(o.Thresholds) != len(o.CardCounts) {
		return fmt.Errorf("ladder has %d thresholds but %d card counts", len(o.Thresholds), len(o.CardCounts))
	}
	for i := 1; i < len(o.Thresholds); i++ {
		if o.Thresholds[i] < o.Thresholds[i-1] {
			return fmt.Errorf("ladder thresholds must be non-decreasing (step %d)", i)
		}
	}
	for i, n := range o.CardCounts {
		if n <= 0 {
			return fmt.Errorf("ladder card count at step %d must be positive", i)
		}
	}
	if o.Cycles < 1 {
		return fmt.Errorf("ladder cycles must be >= 1")
	}
	if o.CycleScale < 1 {
		return fmt.Errorf("ladder cycle_scale must be >= 1")
	}
	return nil
}

// Generate expands options into the full ladder. Level indices are global
// and increase monotonically across cycles.
func Generate(opts Options) []LevelDef {
	steps := len(opts.Thresholds)
	if len(opts.CardCounts) < steps {
		steps = len(opts.CardCounts)
	}
	cycles := opts.Cycles
	if cycles < 1 {
		cycles = 1
	}
	scale := opts.CycleScale
	if scale < 1 {
		scale = 1
	}

	levels := make([]LevelDef, 0, steps*cycles)
	mult := 1
	for c := 0; c < cycles; c++ {
		for s := 0; s < steps; s++ {
			label := FallbackLabel
			if len(opts.Labels) > 0 {
				label = opts.Labels[s%len(opts.Labels)]
			}
			levels = append(levels, LevelDef{
				LevelIndex:    len(levels),
				CycleIndex:    c,
				StepIndex:     s,
				PopulationMin: saturatingMul(opts.Thresholds[s], mult),
				CardCount:     opts.CardCounts[s],
				Layout:        LayoutForCardCount(opts.CardCounts[s]),
				OddsKey:       OddsKey(c),
				ScaleLabel:    label,
			})
		}
		mult = saturatingMul(mult, scale)
	}
	return levels
}

// Ladder is a generated ladder. Build one at startup and pass it down.
type Ladder struct {
	levels []LevelDef
	steps  int
}

// New generates a ladder from options.
func New(opts Options) *Ladder {
	levels := Generate(opts)
	steps := len(opts.Thresholds)
	if len(opts.CardCounts) < steps {
		steps = len(opts.CardCounts)
	}
	return &Ladder{levels: levels, steps: steps}
}

// Levels returns a copy of every level.
func (l *Ladder) Levels() []LevelDef {
	return append([]LevelDef(nil), l.levels...)
}

// Cycles is the number of generated eras.
func (l *Ladder) Cycles() int {
	if l.steps == 0 {
		return 0
	}
	return len(l.levels) / l.steps
}

// Level returns the level at a global index.
func (l *Ladder) Level(index int) (LevelDef, bool) {
	if index < 0 || index >= len(l.levels) {
		return LevelDef{}, false
	}
	return l.levels[index], true
}

// Current returns the highest level whose population minimum is met and
// whose cycle is unlocked. ok is false below the first threshold.
func (l *Ladder) Current(population, cycle int) (LevelDef, bool) {
	best, ok := LevelDef{}, false
	for _, lv := range l.levels {
		if lv.PopulationMin <= population && lv.CycleIndex <= cycle {
			if !ok || lv.LevelIndex > best.LevelIndex {
				best, ok = lv, true
			}
		}
	}
	return best, ok
}

// IsLastStep reports whether a level is the final step of its cycle.
func (l *Ladder) IsLastStep(lv LevelDef) bool {
	return lv.StepIndex == l.steps-1
}

// CycleEntry returns the first level of a cycle.
func (l *Ladder) CycleEntry(cycle int) (LevelDef, bool) {
	return l.Level(cycle * l.steps)
}

func saturatingMul(a, b int) int {
	if a != 0 && b > math.MaxInt/a {
		return math.MaxInt
	}
	return a * b
}

func roman(n int) string {
	numerals := []struct {
		v int
		s string
	}{{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"}}
	out := ""
	for _, r := range numerals {
		for n >= r.v {
			out += r.s
			n -= r.v
		}
	}
	return out
}
