// Package mountaincar implements the mountain car classic control
// environment with continuous actions
package mountaincar

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/memddpg/environment"
	"github.com/samuelfneumann/memddpg/environment/classiccontrol"
	"github.com/samuelfneumann/memddpg/timestep"
	"github.com/samuelfneumann/memddpg/utils/floatutils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// Physical constants
const (
	MinPosition float64 = -1.2
	MaxPosition float64 = 0.6
	MaxSpeed    float64 = 0.07
	Power       float64 = 0.0015
	Gravity     float64 = 0.0025

	ObservationDims     int     = 2
	ActionDims          int     = 1
	MaxContinuousAction float64 = 1.0
	MinContinuousAction float64 = -MaxContinuousAction
)

// MountainCar implements the classic control environment Mountain Car.
// An underpowered car sits in a valley and must rock back and forth to
// build the momentum needed to drive up the right hill.
//
// State features are the position of the car in
// [MinPosition, MaxPosition] and its velocity in [-MaxSpeed, MaxSpeed].
// The car stops when it hits the left wall.
//
// Actions are 1-dimensional in [-1, 1] and are scaled by Power to give
// the force of the engine.
type MountainCar struct {
	*classiccontrol.Env
}

// New creates and returns a new MountainCar environment together with
// its first timestep
func New(t environment.Task, discount float64) (*MountainCar,
	timestep.TimeStep, error) {
	env, first, err := classiccontrol.New(physics{}, t, discount)
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: %v", err)
	}
	return &MountainCar{env}, first, nil
}

// String converts the environment to a string representation
func (m *MountainCar) String() string {
	obs := m.LastTimeStep().Observation
	return fmt.Sprintf("MountainCar  |  x: %v  |  ẋ: %v", obs.AtVec(0),
		obs.AtVec(1))
}

type physics struct{}

func (physics) ObservationBounds() []r1.Interval {
	return []r1.Interval{
		{Min: MinPosition, Max: MaxPosition},
		{Min: -MaxSpeed, Max: MaxSpeed},
	}
}

func (physics) ActionBounds() []r1.Interval {
	return []r1.Interval{{Min: MinContinuousAction, Max: MaxContinuousAction}}
}

func (physics) NextState(state, action *mat.VecDense) *mat.VecDense {
	position, velocity := state.AtVec(0), state.AtVec(1)

	velocity += action.AtVec(0)*Power - Gravity*math.Cos(3*position)
	velocity = floatutils.Clip(velocity, -MaxSpeed, MaxSpeed)

	position += velocity
	position = floatutils.Clip(position, MinPosition, MaxPosition)
	if position == MinPosition && velocity < 0 {
		velocity = 0
	}

	return mat.NewVecDense(ObservationDims, []float64{position, velocity})
}
