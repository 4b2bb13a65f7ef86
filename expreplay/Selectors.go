package expreplay

import (
	"golang.org/x/exp/rand"
)

// Selector implements functionality for choosing how data should be
// sampled from an experience replay buffer
type Selector interface {
	// choose selects n indices in [0, capacity) at which data should
	// be sampled from the experience replay buffer
	choose(n, capacity int) []int
}

// uniformSelector is a Selector which selects data from an experience
// replay buffer uniformly randomly, with replacement
type uniformSelector struct {
	rng *rand.Rand
}

// NewUniformSelector returns a new Selector which selects data uniformly
// randomly from an experience replay buffer
func NewUniformSelector(seed uint64) Selector {
	source := rand.NewSource(seed)
	rng := rand.New(source)

	return &uniformSelector{rng: rng}
}

// choose selects a number of indices at which to draw data from the
// buffer
func (u *uniformSelector) choose(n, capacity int) []int {
	selected := make([]int, n)
	for i := range selected {
		selected[i] = u.rng.Intn(capacity)
	}
	return selected
}

// fifoSelector is a Selector which selects cache indices in order. It
// is mostly useful for deterministic tests.
type fifoSelector struct{}

// NewFifoSelector returns a new Selector which selects indices in
// order, starting at index 0 and wrapping around the current capacity
func NewFifoSelector() Selector {
	return fifoSelector{}
}

// choose selects a number of indices at which to draw data from the
// buffer
func (f fifoSelector) choose(n, capacity int) []int {
	selected := make([]int, n)
	for i := range selected {
		selected[i] = i % capacity
	}
	return selected
}
