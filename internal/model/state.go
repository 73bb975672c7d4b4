package model

import "math/rand"

// State is per-worker scratch. It is never shared between goroutines.
type State struct {
	Hidden []float32
	Output []float32
	Grad   []float32

	// RNG drives window sizes, label sampling and subsampling.
	RNG *rand.Rand
	// NegPos is the worker's cursor into a negative sampling table.
	NegPos int

	lossValue float64
	nexamples int64
}

// NewState allocates scratch for a model of the given dimension and output size.
func NewState(dim, outputs int, seed int64) *State {
	rng := rand.New(rand.NewSource(seed))
	return &State{
		Hidden: make([]float32, dim),
		Output: make([]float32, outputs),
		Grad:   make([]float32, dim),
		RNG:    rng,
		NegPos: rng.Int(),
	}
}

// Loss returns the mean loss over all examples seen by this state, or 0.
func (s *State) Loss() float64 {
	if s.nexamples == 0 {
		return 0
	}
	return s.lossValue / float64(s.nexamples)
}

// Examples returns the number of updates recorded.
func (s *State) Examples() int64 { return s.nexamples }

func (s *State) addExample(loss float32) {
	s.lossValue += float64(loss)
	s.nexamples++
}
