package acrobot

import (
	"github.com/samuelfneumann/memddpg/environment"
	"github.com/samuelfneumann/memddpg/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// GoalHeight is the default height the tip must be swung above
const GoalHeight float64 = LinkLength

// SwingUp implements the task of swinging the tip of the acrobot above
// a goal height. The agent gets a reward of -1 on each step until the
// tip is above the goal, which gives a reward of 0 and ends the episode.
type SwingUp struct {
	environment.Starter
	environment.Enders
	goalHeight float64
}

// NewSwingUp creates and returns a new SwingUp task
func NewSwingUp(s environment.Starter, episodeSteps int,
	goalHeight float64) *SwingUp {
	aboveGoal := func(obs *mat.VecDense) bool {
		return TipHeight(obs) > goalHeight
	}
	enders := environment.Enders{
		environment.NewFunctionEnder(aboveGoal, timestep.TerminalStateReached),
		environment.NewStepLimit(episodeSteps),
	}
	return &SwingUp{s, enders, goalHeight}
}

// GetReward returns the reward for a transition into nextState
func (s *SwingUp) GetReward(_, _, nextState mat.Vector) float64 {
	if TipHeight(nextState) > s.goalHeight {
		return 0.0
	}
	return -1.0
}

// RewardSpec returns the reward specification of the Task
func (s *SwingUp) RewardSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Reward,
		r1.Interval{Min: -1, Max: 0})
}
