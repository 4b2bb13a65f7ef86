// Package classiccontrol implements the episode bookkeeping shared by
// the classic control environments. Each environment supplies its
// Dynamics, and Env turns them into an environment.Environment.
package classiccontrol

import (
	"fmt"

	"github.com/samuelfneumann/memddpg/environment"
	"github.com/samuelfneumann/memddpg/timestep"
	"github.com/samuelfneumann/memddpg/utils/floatutils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// Dynamics simulates the physics of a classic control system
type Dynamics interface {
	// ObservationBounds returns the legal interval of each state feature
	ObservationBounds() []r1.Interval

	// ActionBounds returns the legal interval of each action dimension
	ActionBounds() []r1.Interval

	// NextState returns the state reached by applying action in state.
	// The action has already been clipped to the action bounds.
	NextState(state, action *mat.VecDense) *mat.VecDense
}

// Env is an environment with continuous actions whose transitions are
// given by some Dynamics and whose rewards and episode ends are given
// by a Task
type Env struct {
	environment.Task
	dynamics Dynamics
	discount float64
	lastStep timestep.TimeStep
}

// New returns a new Env together with its first timestep. An error is
// returned if the Task starts outside the observation bounds.
func New(d Dynamics, t environment.Task, discount float64) (*Env,
	timestep.TimeStep, error) {
	e := &Env{Task: t, dynamics: d, discount: discount}

	state := t.Start()
	if err := e.ObservationSpec().Contains(state); err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: illegal "+
			"starting state: %v", err)
	}
	e.lastStep = timestep.New(timestep.First, 0, discount, state, 0)

	return e, e.lastStep, nil
}

// LastTimeStep returns the last TimeStep that occurred in the
// environment
func (e *Env) LastTimeStep() timestep.TimeStep {
	return e.lastStep
}

// Reset resets the environment and returns a starting state drawn from
// the Task
func (e *Env) Reset() timestep.TimeStep {
	state := e.Start()
	if err := e.ObservationSpec().Contains(state); err != nil {
		panic(fmt.Sprintf("reset: illegal starting state: %v", err))
	}
	e.lastStep = timestep.New(timestep.First, 0, e.discount, state, 0)

	return e.lastStep
}

// Step clips action to the action bounds, takes one environmental step,
// and returns the next timestep and whether the episode has ended
func (e *Env) Step(action *mat.VecDense) (timestep.TimeStep, bool) {
	bounds := e.dynamics.ActionBounds()
	if action.Len() != len(bounds) {
		panic(fmt.Sprintf("step: actions should be %v-dimensional, "+
			"have(%v)", len(bounds), action.Len()))
	}

	clipped := mat.NewVecDense(action.Len(), nil)
	for i, b := range bounds {
		clipped.SetVec(i, floatutils.ClipInterval(action.AtVec(i), b))
	}

	state := e.lastStep.Observation
	nextState := e.dynamics.NextState(state, clipped)

	reward := e.GetReward(state, clipped, nextState)
	nextStep := timestep.New(timestep.Mid, reward, e.discount, nextState,
		e.lastStep.Number+1)
	e.End(&nextStep)

	e.lastStep = nextStep
	return nextStep, nextStep.Last()
}

// DiscountSpec returns the discount specification of the environment
func (e *Env) DiscountSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Discount,
		r1.Interval{Min: e.discount, Max: e.discount})
}

// ObservationSpec returns the observation specification of the
// environment
func (e *Env) ObservationSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Observation,
		e.dynamics.ObservationBounds()...)
}

// ActionSpec returns the action specification of the environment
func (e *Env) ActionSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Action,
		e.dynamics.ActionBounds()...)
}
