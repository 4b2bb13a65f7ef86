// Package pendulum implements the pendulum classic control environment
package pendulum

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

// default physical constants
const (
	AngleBound  float64 = math.Pi // +/- Angle bounds
	SpeedBound  float64 = 8.0     // +/- Speed bounds
	TorqueBound float64 = 2.0     // +/- Torque bounds

	MaxContinuousAction float64 = TorqueBound
	MinContinuousAction float64 = -MaxContinuousAction

	dt              float64 = 0.05
	Gravity         float64 = 9.8
	Mass            float64 = 1.0
	Length          float64 = 1.0
	ActionDims      int     = 1
	ObservationDims int     = 2
)

// Pendulum implements the classic control environment Pendulum. In this
// environment, a pendulum is attached to a fixed base. An agent can
// swing the pendulum back and forth, but the swinging force/torque is
// underpowered. In order to be able to swing the pendulum straight up,
// it must first be rocked back and forth, using the momentum to
// gradually climb higher until the pendulum can point straight up or
// rotate fully around its fixed base.
//
// State features consist of the angle of the pendulum from the positive
// y-axis and the angular velocity of the pendulum. Both state features
// are bounded by the AngleBound and SpeedBound constants in this
// package. The angular velocity is clipped between
// [-SpeedBound, SpeedBound]. Angles are normalized to stay within
// [-AngleBound, AngleBound] = [-π, π].
//
// Actions are continuous and 1-dimensional. Actions determine the
// torque to apply to the pendulum at its fixed base and are clipped to
// [-2, 2] = [MinContinuousAction, MaxContinuousAction].
//
// Pendulum implements the environment.Environment interface
type Pendulum struct {
	*classiccontrol.Env
}

// New creates and returns a new Pendulum environment together with its
// first timestep
func New(t environment.Task, discount float64) (*Pendulum,
	timestep.TimeStep, error) {
	env, first, err := classiccontrol.New(physics{}, t, discount)
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: %v", err)
	}
	return &Pendulum{env}, first, nil
}

// String converts the environment to a string representation
func (p *Pendulum) String() string {
	obs := p.LastTimeStep().Observation
	return fmt.Sprintf("Pendulum  |  theta: %v  |  theta dot: %v",
		obs.AtVec(0), obs.AtVec(1))
}

// physics implements the pendulum dynamics
type physics struct{}

func (physics) ObservationBounds() []r1.Interval {
	return []r1.Interval{
		{Min: -AngleBound, Max: AngleBound},
		{Min: -SpeedBound, Max: SpeedBound},
	}
}

func (physics) ActionBounds() []r1.Interval {
	return []r1.Interval{{Min: MinContinuousAction, Max: MaxContinuousAction}}
}

// NextState applies torque to the fixed base of the pendulum
func (physics) NextState(state, action *mat.VecDense) *mat.VecDense {
	th, thdot := state.AtVec(0), state.AtVec(1)
	torque := action.AtVec(0)

	newthdot := thdot + (-3*Gravity/(2*Length)*math.Sin(th+math.Pi)+
		3.0/(Mass*math.Pow(Length, 2))*torque)*dt
	newth := th + newthdot*dt

	newthdot = floatutils.Clip(newthdot, -SpeedBound, SpeedBound)
	newth = normalizeAngle(newth)

	return mat.NewVecDense(ObservationDims, []float64{newth, newthdot})
}

// normalizeAngle wraps an angle into [-π, π)
func normalizeAngle(th float64) float64 {
	return floatutils.Wrap(th, -math.Pi, math.Pi)
}
