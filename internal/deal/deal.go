package deal

import (
	"github.com/talgya/brood/internal/rng"
)

// Make deals one board: the composition's multiset shuffled with the stream
// for (seed, round). The result holds exactly the requested counts.
func Make(seed string, round int, c Composition) ([]Outcome, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	tiles := expand(c)
	Shuffle(rng.ForRound(seed, round), tiles)
	return tiles, nil
}

// Shuffle is an in-place Fisher-Yates shuffle driven by src.
func Shuffle[T any](src rng.Source, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := int(src.Float64() * float64(i+1))
		s[i], s[j] = s[j], s[i]
	}
}

func expand(c Composition) []Outcome {
	tiles := make([]Outcome, 0, c.Total())
	for _, o := range Outcomes {
		for n := c.Of(o); n > 0; n-- {
			tiles = append(tiles, o)
		}
	}
	return tiles
}
