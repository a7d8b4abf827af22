package rng

// LCG is a 32-bit linear congruential generator (Numerical Recipes
// constants). It is cheaper and weaker than Stream and is meant for casual
// simulation such as bot play, never for deals.
type LCG struct {
	state uint32
}

// NewLCG seeds an LCG. Any int64 is accepted; only the low 32 bits matter.
func NewLCG(seed int64) *LCG {
	return &LCG{state: uint32(seed)}
}

// Next advances the generator and returns the raw 32-bit state.
func (l *LCG) Next() uint32 {
	l.state = l.state*1664525 + 1013904223
	return l.state
}

// Float64 returns a float in [0,1).
func (l *LCG) Float64() float64 {
	return float64(l.Next()) / (1 << 32)
}

// Intn returns an int in [0,n). Returns 0 when n <= 0.
func (l *LCG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(l.Float64() * float64(n))
}
