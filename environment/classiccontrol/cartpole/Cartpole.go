// Package cartpole implements the cartpole classic control environment
// with continuous actions
package cartpole

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
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	TotalMass      float64 = CartMass + PoleMass
	HalfPoleLength float64 = 0.5
	ForceMag       float64 = 10.0
	Dt             float64 = 0.02

	PositionBound float64 = 4.8
	AngleBound    float64 = math.Pi

	ObservationDims     int     = 4
	ActionDims          int     = 1
	MaxContinuousAction float64 = 1.0
	MinContinuousAction float64 = -MaxContinuousAction
)

// Cartpole implements the classic control environment Cartpole. A pole
// is attached by an unactuated joint to a cart moving along a
// frictionless track. The agent pushes the cart left or right to keep
// the pole upright.
//
// State features are the cart position, cart velocity, pole angle from
// vertical, and pole angular velocity. The position is clipped to
// [-PositionBound, PositionBound] and the angle is wrapped to [-π, π).
//
// Actions are 1-dimensional in [-1, 1] and are scaled by ForceMag to
// give the force applied to the cart.
type Cartpole struct {
	*classiccontrol.Env
}

// New creates and returns a new Cartpole environment together with its
// first timestep
func New(t environment.Task, discount float64) (*Cartpole,
	timestep.TimeStep, error) {
	env, first, err := classiccontrol.New(physics{}, t, discount)
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: %v", err)
	}
	return &Cartpole{env}, first, nil
}

// String converts the environment to a string representation
func (c *Cartpole) String() string {
	obs := c.LastTimeStep().Observation
	return fmt.Sprintf("Cartpole  |  x: %v  |  ẋ: %v  |  θ: %v  |  θ̇: %v",
		obs.AtVec(0), obs.AtVec(1), obs.AtVec(2), obs.AtVec(3))
}

type physics struct{}

func (physics) ObservationBounds() []r1.Interval {
	return []r1.Interval{
		{Min: -PositionBound, Max: PositionBound},
		{Min: -math.MaxFloat64, Max: math.MaxFloat64},
		{Min: -AngleBound, Max: AngleBound},
		{Min: -math.MaxFloat64, Max: math.MaxFloat64},
	}
}

func (physics) ActionBounds() []r1.Interval {
	return []r1.Interval{{Min: MinContinuousAction, Max: MaxContinuousAction}}
}

// NextState integrates the cart and pole with one Euler step
func (physics) NextState(state, action *mat.VecDense) *mat.VecDense {
	x, xDot := state.AtVec(0), state.AtVec(1)
	theta, thetaDot := state.AtVec(2), state.AtVec(3)
	force := action.AtVec(0) * ForceMag

	cos, sin := math.Cos(theta), math.Sin(theta)
	poleMassLength := PoleMass * HalfPoleLength

	temp := (force + poleMassLength*thetaDot*thetaDot*sin) / TotalMass
	thetaAcc := (Gravity*sin - cos*temp) /
		(HalfPoleLength * (4.0/3.0 - PoleMass*cos*cos/TotalMass))
	xAcc := temp - poleMassLength*thetaAcc*cos/TotalMass

	x += Dt * xDot
	xDot += Dt * xAcc
	theta += Dt * thetaDot
	thetaDot += Dt * thetaAcc

	return mat.NewVecDense(ObservationDims, []float64{
		floatutils.Clip(x, -PositionBound, PositionBound),
		xDot,
		floatutils.Wrap(theta, -AngleBound, AngleBound),
		thetaDot,
	})
}
