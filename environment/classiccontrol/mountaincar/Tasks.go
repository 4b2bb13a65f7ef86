package mountaincar

import (
	"github.com/samuelfneumann/memddpg/environment"
	"github.com/samuelfneumann/memddpg/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// GoalPosition is the position of the flag on the right hill
const GoalPosition float64 = 0.45

// Goal implements the task of driving the car to a goal position. The
// agent gets a reward of -1 on each step until the car reaches the
// goal, which gives a reward of 0 and ends the episode.
type Goal struct {
	environment.Starter
	environment.Enders
	goalX float64
}

// NewGoal creates and returns a new Goal task
func NewGoal(s environment.Starter, episodeSteps int, goalX float64) *Goal {
	atGoal := func(obs *mat.VecDense) bool {
		return obs.AtVec(0) >= goalX
	}
	enders := environment.Enders{
		environment.NewFunctionEnder(atGoal, timestep.TerminalStateReached),
		environment.NewStepLimit(episodeSteps),
	}
	return &Goal{s, enders, goalX}
}

// GetReward returns the reward for a transition into nextState
func (g *Goal) GetReward(_, _, nextState mat.Vector) float64 {
	if nextState.AtVec(0) >= g.goalX {
		return 0.0
	}
	return -1.0
}

// RewardSpec returns the reward specification of the Task
func (g *Goal) RewardSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Reward,
		r1.Interval{Min: -1, Max: 0})
}
