package lunarlander

import (
	"math"

	"github.com/samuelfneumann/memddpg/environment"
	"github.com/samuelfneumann/memddpg/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// Rewards for the end of an episode
const (
	CrashReward float64 = -100
	RestReward  float64 = 100
)

// Land implements the task of landing on the helipad. Rewards are
// shaped by the distance to the pad, the speed, and the tilt of the
// lander, plus 10 for each leg touching the ground. Firing the main
// engine costs 0.3 per frame at full power and the side engines 0.03.
// The episode ends with a reward of -100 if the lander crashes or
// leaves the viewport, and with +100 if it comes to rest.
//
// A Land task may only be used by a single LunarLander.
type Land struct {
	environment.Starter
	stepLimit environment.StepLimit

	env         *LunarLander
	prevShaping float64
}

// NewLand creates and returns a new Land task. The Starter must sample
// the x and y position of the lander and the magnitude of the random
// force applied to it at the start of each episode.
func NewLand(s environment.Starter, episodeSteps int) *Land {
	return &Land{Starter: s, stepLimit: environment.NewStepLimit(episodeSteps)}
}

// NewStarter returns the default Starter, which drops the lander from
// the centre of the top of the viewport with a push of at most
// InitialRandom along each axis
func NewStarter(seed uint64) environment.Starter {
	return environment.NewUniformStarter([]r1.Interval{
		{Min: InitialX, Max: InitialX},
		{Min: InitialY, Max: InitialY},
		{Min: InitialRandom, Max: InitialRandom},
	}, seed)
}

func shaping(state mat.Vector) float64 {
	return -100*math.Hypot(state.AtVec(0), state.AtVec(1)) -
		100*math.Hypot(state.AtVec(2), state.AtVec(3)) -
		100*math.Abs(state.AtVec(4)) +
		10*state.AtVec(6) + 10*state.AtVec(7)
}

// startShaping sets the shaping baseline of a new episode
func (l *Land) startShaping(state mat.Vector) {
	l.prevShaping = shaping(state)
}

// GetReward returns the reward for a transition into nextState
func (l *Land) GetReward(_, _, nextState mat.Vector) float64 {
	s := shaping(nextState)
	reward := s - l.prevShaping
	l.prevShaping = s

	reward -= 0.3 * l.env.mainPower
	reward -= 0.03 * l.env.sidePower

	switch {
	case l.crashed(nextState):
		return CrashReward
	case !l.env.lander.IsAwake():
		return RestReward
	}
	return reward
}

func (l *Land) crashed(state mat.Vector) bool {
	return l.env.gameOver || math.Abs(state.AtVec(0)) >= 1
}

// End ends the episode in a terminal state when the lander crashes,
// leaves the viewport, or comes to rest, and otherwise at the step
// limit
func (l *Land) End(t *timestep.TimeStep) bool {
	if l.crashed(t.Observation) || !l.env.lander.IsAwake() {
		t.SetEnd(timestep.TerminalStateReached)
		return true
	}
	return l.stepLimit.End(t)
}

// RewardSpec returns the reward specification of the Task
func (l *Land) RewardSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Reward,
		r1.Interval{Min: CrashReward, Max: RestReward})
}
