package pendulum

import (
	"math"

	"github.com/samuelfneumann/memddpg/environment"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// SwingUp implements the task of swinging the pendulum up and holding
// it vertically. The reward on each step is the cosine of the angle of
// the pendulum from the positive y-axis, so holding the pendulum
// upright earns 1 per step. Episodes only end at the step limit.
type SwingUp struct {
	environment.Starter
	environment.StepLimit
}

// NewSwingUp creates and returns a new SwingUp task
func NewSwingUp(s environment.Starter, episodeSteps int) *SwingUp {
	return &SwingUp{s, environment.NewStepLimit(episodeSteps)}
}

// GetReward returns the reward for a transition into nextState
func (s *SwingUp) GetReward(_, _, nextState mat.Vector) float64 {
	return math.Cos(nextState.AtVec(0))
}

// RewardSpec returns the reward specification of the Task
func (s *SwingUp) RewardSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Reward,
		r1.Interval{Min: -1, Max: 1})
}
