package cartpole

import (
	"math"

	"github.com/samuelfneumann/memddpg/environment"
	"github.com/samuelfneumann/memddpg/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// Failure thresholds of the Balance task
const (
	FailAngle    float64 = 12 * 2 * math.Pi / 360
	FailPosition float64 = 2.4
)

// Balance implements the task of keeping the pole upright. The agent
// gets a reward of +1 on each step the pole stays within FailAngle of
// vertical and the cart within FailPosition of the centre, and -1 on
// the step which ends the episode by leaving either.
type Balance struct {
	environment.Starter
	environment.Enders
	failAngle float64
}

// NewBalance creates and returns a new Balance task
func NewBalance(s environment.Starter, episodeSteps int,
	failAngle float64) *Balance {
	limits := []r1.Interval{
		{Min: -FailPosition, Max: FailPosition},
		{Min: -failAngle, Max: failAngle},
	}
	failure := environment.NewIntervalLimit(limits, []int{0, 2},
		timestep.TerminalStateReached)

	enders := environment.Enders{
		failure,
		environment.NewStepLimit(episodeSteps),
	}
	return &Balance{s, enders, failAngle}
}

// GetReward returns the reward for a transition into nextState
func (b *Balance) GetReward(_, _, nextState mat.Vector) float64 {
	x, theta := nextState.AtVec(0), nextState.AtVec(2)
	if math.Abs(theta) > b.failAngle || math.Abs(x) > FailPosition {
		return -1.0
	}
	return 1.0
}

// RewardSpec returns the reward specification of the Task
func (b *Balance) RewardSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Reward,
		r1.Interval{Min: -1, Max: 1})
}
