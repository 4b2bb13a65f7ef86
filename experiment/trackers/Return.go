package trackers

import (
	"fmt"

	ts "github.com/samuelfneumann/memddpg/timestep"
)

// Return accumulates the rewards of each episode and saves the
// episodic returns. Only finished episodes are saved.
type Return struct {
	next     int // Number of the next TimeStep to track
	current  float64
	returns  []float64
	filename string
}

// NewReturn creates and returns a new *Return Tracker which saves to
// filename
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track adds the reward of step to the return of the current episode.
// Track panics if step does not directly follow the last tracked
// TimeStep of the episode.
func (r *Return) Track(step ts.TimeStep) {
	if step.Number != r.next {
		panic(fmt.Sprintf("track: want timestep %v have(%v)", r.next,
			step.Number))
	}
	r.current += step.Reward
	r.next++

	if step.Last() {
		r.returns = append(r.returns, r.current)
		r.current, r.next = 0, 0
	}
}

// Returns returns the returns of all finished episodes
func (r *Return) Returns() []float64 {
	return append([]float64(nil), r.returns...)
}

// Save implements the Tracker interface
func (r *Return) Save() error {
	return save(r.filename, r.returns)
}
