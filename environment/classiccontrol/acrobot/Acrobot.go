// Package acrobot implements the acrobot classic control environment
// with continuous actions
package acrobot

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/memddpg/environment"
	"github.com/samuelfneumann/memddpg/environment/classiccontrol"
	"github.com/samuelfneumann/memddpg/timestep"
	"github.com/samuelfneumann/memddpg/utils/floatutils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// Physical constants. Both links share the same length, mass, centre
// of mass, and moment of inertia.
const (
	Dt          float64 = 0.2
	LinkLength  float64 = 1.0
	LinkMass    float64 = 1.0
	LinkCOMPos  float64 = 0.5
	LinkMOI     float64 = 1.0
	MaxVel1     float64 = 4 * math.Pi
	MaxVel2     float64 = 9 * math.Pi
	Gravity     float64 = 9.8
	AngleBound  float64 = math.Pi
	TorqueBound float64 = 1.0

	ObservationDims     int     = 4
	ActionDims          int     = 1
	MaxContinuousAction float64 = TorqueBound
	MinContinuousAction float64 = -MaxContinuousAction
)

// Acrobot implements the classic control environment Acrobot. Two links
// hang from a fixed joint, and torque can only be applied at the joint
// between them. The agent must swing the tip of the lower link above
// a goal height.
//
// State features are the angle of the first link from the downward
// vertical, the angle of the second link relative to the first, and
// their angular velocities. Angles are wrapped to [-π, π) and the
// velocities are clipped to [-MaxVel1, MaxVel1] and [-MaxVel2, MaxVel2].
//
// Actions are 1-dimensional torques in [-1, 1]. Dynamics follow the
// book formulation of Sutton and Barto and are integrated with a single
// fourth order Runge-Kutta step.
type Acrobot struct {
	*classiccontrol.Env
}

// New creates and returns a new Acrobot environment together with its
// first timestep
func New(t environment.Task, discount float64) (*Acrobot,
	timestep.TimeStep, error) {
	env, first, err := classiccontrol.New(physics{}, t, discount)
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: %v", err)
	}
	return &Acrobot{env}, first, nil
}

// String converts the environment to a string representation
func (a *Acrobot) String() string {
	obs := a.LastTimeStep().Observation
	return fmt.Sprintf("Acrobot  |  θ1: %v  |  θ2: %v  |  θ̇1: %v  |  θ̇2: %v",
		obs.AtVec(0), obs.AtVec(1), obs.AtVec(2), obs.AtVec(3))
}

// TipHeight returns the height of the tip of the second link above the
// fixed joint
func TipHeight(obs mat.Vector) float64 {
	theta1, theta2 := obs.AtVec(0), obs.AtVec(1)
	return -LinkLength*math.Cos(theta1) - LinkLength*math.Cos(theta1+theta2)
}

type physics struct{}

func (physics) ObservationBounds() []r1.Interval {
	return []r1.Interval{
		{Min: -AngleBound, Max: AngleBound},
		{Min: -AngleBound, Max: AngleBound},
		{Min: -MaxVel1, Max: MaxVel1},
		{Min: -MaxVel2, Max: MaxVel2},
	}
}

func (physics) ActionBounds() []r1.Interval {
	return []r1.Interval{{Min: MinContinuousAction, Max: MaxContinuousAction}}
}

func (physics) NextState(state, action *mat.VecDense) *mat.VecDense {
	torque := action.AtVec(0)
	derivs := func(s []float64) []float64 { return dsdt(s, torque) }

	s := rk4(derivs, state.RawVector().Data, Dt)

	s[0] = floatutils.Wrap(s[0], -AngleBound, AngleBound)
	s[1] = floatutils.Wrap(s[1], -AngleBound, AngleBound)
	s[2] = floatutils.Clip(s[2], -MaxVel1, MaxVel1)
	s[3] = floatutils.Clip(s[3], -MaxVel2, MaxVel2)

	return mat.NewVecDense(ObservationDims, s)
}

// dsdt returns the time derivative of state s under torque a
func dsdt(s []float64, a float64) []float64 {
	const (
		m, l, lc, i, g = LinkMass, LinkLength, LinkCOMPos, LinkMOI, Gravity
	)
	theta1, theta2, dtheta1, dtheta2 := s[0], s[1], s[2], s[3]

	d1 := m*lc*lc + m*(l*l+lc*lc+2*l*lc*math.Cos(theta2)) + 2*i
	d2 := m*(lc*lc+l*lc*math.Cos(theta2)) + i

	phi2 := m * lc * g * math.Cos(theta1+theta2-math.Pi/2)
	phi1 := -m*l*lc*dtheta2*dtheta2*math.Sin(theta2) -
		2*m*l*lc*dtheta2*dtheta1*math.Sin(theta2) +
		(m*lc+m*l)*g*math.Cos(theta1-math.Pi/2) + phi2

	ddtheta2 := (a + d2/d1*phi1 - m*l*lc*dtheta1*dtheta1*math.Sin(theta2) -
		phi2) / (m*lc*lc + i - d2*d2/d1)
	ddtheta1 := -(d2*ddtheta2 + phi1) / d1

	return []float64{dtheta1, dtheta2, ddtheta1, ddtheta2}
}

// rk4 integrates y over a single step of length h
func rk4(f func([]float64) []float64, y []float64, h float64) []float64 {
	at := func(k []float64, scale float64) []float64 {
		out := make([]float64, len(y))
		return floats.AddScaledTo(out, y, scale, k)
	}

	k1 := f(y)
	k2 := f(at(k1, h/2))
	k3 := f(at(k2, h/2))
	k4 := f(at(k3, h))

	out := append([]float64(nil), y...)
	floats.AddScaled(out, h/6, k1)
	floats.AddScaled(out, h/3, k2)
	floats.AddScaled(out, h/3, k3)
	floats.AddScaled(out, h/6, k4)
	return out
}
