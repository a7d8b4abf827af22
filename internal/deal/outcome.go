// Package deal builds shuffled boards of tile outcomes from a composition.
package deal

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Outcome is the hidden content of one tile.
type Outcome string

const (
	Fruit    Outcome = "fruit"
	Barren   Outcome = "barren"
	Predator Outcome = "predator"
)

// Outcomes lists every outcome in canonical order.
var Outcomes = []Outcome{Fruit, Barren, Predator}

// ParseOutcome accepts canonical names and the tutorial alias "food".
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "fruit", "food":
		return Fruit, nil
	case "barren":
		return Barren, nil
	case "predator":
		return Predator, nil
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOutcome(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ErrNegativeCount is returned for a composition with a count below zero.
var ErrNegativeCount = errors.New("composition count must not be negative")

// Composition is the exact number of tiles of each outcome on a board.
type Composition struct {
	Fruit    int `json:"fruit" yaml:"fruit"`
	Barren   int `json:"barren" yaml:"barren"`
	Predator int `json:"predator" yaml:"predator"`
}

// Total is the board size the composition produces.
func (c Composition) Total() int {
	return c.Fruit + c.Barren + c.Predator
}

// Of returns the count for one outcome.
func (c Composition) Of(o Outcome) int {
	switch o {
	case Fruit:
		return c.Fruit
	case Barren:
		return c.Barren
	case Predator:
		return c.Predator
	}
	return 0
}

// Validate rejects negative counts.
func (c Composition) Validate() error {
	if c.Fruit < 0 || c.Barren < 0 || c.Predator < 0 {
		return fmt.Errorf("%w: %+v", ErrNegativeCount, c)
	}
	return nil
}

// WithExtraFruit widens the fruit count by n. Negative n is ignored.
func (c Composition) WithExtraFruit(n int) Composition {
	if n > 0 {
		c.Fruit += n
	}
	return c
}

// Count builds the composition of an outcome sequence.
func Count(outcomes []Outcome) Composition {
	var c Composition
	for _, o := range outcomes {
		switch o {
		case Fruit:
			c.Fruit++
		case Barren:
			c.Barren++
		case Predator:
			c.Predator++
		}
	}
	return c
}

// Ratios splits a board between outcomes. The three parts should sum to 1.
type Ratios struct {
	Fruit    float64 `json:"fruit" yaml:"fruit"`
	Barren   float64 `json:"barren" yaml:"barren"`
	Predator float64 `json:"predator" yaml:"predator"`
}

// StandardRatios is the 60/30/10 split used once static recipes run out.
var StandardRatios = Ratios{Fruit: 0.6, Barren: 0.3, Predator: 0.1}

// FromRatios derives a composition of exactly total tiles. Fruit and barren
// are rounded; predator takes the remainder and is never negative.
func FromRatios(total int, r Ratios) Composition {
	if total <= 0 {
		return Composition{}
	}
	fruit := clamp(int(math.Round(float64(total)*r.Fruit)), 0, total)
	barren := clamp(int(math.Round(float64(total)*r.Barren)), 0, total-fruit)
	return Composition{Fruit: fruit, Barren: barren, Predator: total - fruit - barren}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
