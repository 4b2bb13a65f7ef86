package environment

import (
	"fmt"

	"github.com/samuelfneumann/memddpg/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// StepLimit ends episodes once they reach a fixed number of steps.
// Episodes ended this way are timeouts, not terminal.
type StepLimit struct {
	episodeSteps int
}

// NewStepLimit creates and returns a new step limit
func NewStepLimit(episodeSteps int) StepLimit {
	return StepLimit{episodeSteps}
}

// End sets the end type of t to timestep.Timeout once t.Number reaches
// the step limit
func (s StepLimit) End(t *timestep.TimeStep) bool {
	if t.Number >= s.episodeSteps {
		t.SetEnd(timestep.Timeout)
		return true
	}
	return false
}

// IntervalLimit ends episodes whenever one of a number of observation
// features leaves its interval
type IntervalLimit struct {
	intervals []r1.Interval
	indices   []int
	endType   timestep.EndType
}

// NewIntervalLimit returns an IntervalLimit which ends an episode with
// endType when feature indices[i] leaves limits[i]
func NewIntervalLimit(limits []r1.Interval, indices []int,
	endType timestep.EndType) IntervalLimit {
	if len(limits) != len(indices) {
		panic(fmt.Sprintf("newIntervalLimit: %v limits given for %v "+
			"features", len(limits), len(indices)))
	}
	return IntervalLimit{limits, indices, endType}
}

// End implements the Ender interface
func (i IntervalLimit) End(t *timestep.TimeStep) bool {
	for j, feature := range i.indices {
		v := t.Observation.AtVec(feature)
		if v < i.intervals[j].Min || v > i.intervals[j].Max {
			t.SetEnd(i.endType)
			return true
		}
	}
	return false
}

// FunctionEnder ends episodes when a predicate on the observation holds
type FunctionEnder struct {
	f       func(*mat.VecDense) bool
	endType timestep.EndType
}

// NewFunctionEnder returns a FunctionEnder which ends an episode with
// endType when f returns true
func NewFunctionEnder(f func(*mat.VecDense) bool,
	endType timestep.EndType) FunctionEnder {
	return FunctionEnder{f, endType}
}

// End implements the Ender interface
func (f FunctionEnder) End(t *timestep.TimeStep) bool {
	if f.f(t.Observation) {
		t.SetEnd(f.endType)
		return true
	}
	return false
}

// Enders ends an episode as soon as any of its Enders does. Earlier
// Enders take precedence, so the end type is that of the first Ender
// which ends the episode.
type Enders []Ender

// End implements the Ender interface
func (e Enders) End(t *timestep.TimeStep) bool {
	for _, ender := range e {
		if ender.End(t) {
			return true
		}
	}
	return false
}
