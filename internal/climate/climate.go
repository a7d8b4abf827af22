// Package climate derives per-round seasonal flavor from a game seed.
// Conditions are display-only and never feed back into deals or growth.
package climate

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/brood/internal/rng"
)

// Seasons in round order. Round 1 is spring.
var Seasons = []string{"spring", "summer", "autumn", "winter"}

var seasonBaseTemp = []float64{12, 24, 10, -2}

// Conditions is the weather shown for one round.
type Conditions struct {
	Season      string  `json:"season"`
	Temp        float64 `json:"temp"` // Celsius
	Description string  `json:"description"`
	IsStorm     bool    `json:"is_storm"`
	IsSnow      bool    `json:"is_snow"`
	IsRain      bool    `json:"is_rain"`
}

// SeasonIndex maps a 1-based global round to a season index.
func SeasonIndex(round int) int {
	if round < 1 {
		return 0
	}
	return (round - 1) % len(Seasons)
}

// For returns the conditions for one round of one game. Same inputs, same output.
func For(seed string, round int) Conditions {
	season := SeasonIndex(round)
	noiseSeed := int64(rng.SeedFromString(seed))
	tempNoise := opensimplex.NewNormalized(noiseSeed)
	wetNoise := opensimplex.NewNormalized(noiseSeed + 1)

	x := float64(round)
	// Normalized noise is in [0,1]; recentre to [-1,1].
	swing := octaveNoise(tempNoise, x, 0.5, 3, 0.15, 0.5)*2 - 1
	wet := octaveNoise(wetNoise, x, 1.5, 2, 0.3, 0.5)

	c := Conditions{
		Season: Seasons[season],
		Temp:   seasonBaseTemp[season] + swing*8,
	}
	switch {
	case wet > 0.75 && c.Temp < 1:
		c.IsSnow = true
	case wet > 0.8:
		c.IsStorm = true
	case wet > 0.6:
		c.IsRain = true
	}
	c.Description = describe(c, season)
	return c
}

func describe(c Conditions, season int) string {
	switch {
	case c.IsStorm:
		return "a storm rolls over the " + Seasons[season] + " canopy"
	case c.IsSnow:
		return "snow blankets the forest floor"
	case c.IsRain:
		return "steady " + Seasons[season] + " rain"
	case c.Temp > 28:
		return "sweltering heat"
	case c.Temp < -5:
		return "bitter frost"
	}
	return seasonDefault(season)
}

func seasonDefault(season int) string {
	switch season {
	case 0:
		return "mild spring weather"
	case 1:
		return "warm summer sun"
	case 2:
		return "cool autumn breeze"
	case 3:
		return "cold winter chill"
	default:
		return "fair weather"
	}
}

// octaveNoise layers several frequencies of noise.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
