// Package agent defines an agent interface
package agent

import (
	"github.com/samuelfneumann/memddpg/timestep"
	"gonum.org/v1/gonum/mat"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses these actions to update the Policy.
type Agent interface {
	Learner
	Policy
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Step performs a single update to the learner
	Step() error

	// Observe records that an action lead to some timestep
	Observe(action mat.Vector, nextObs timestep.TimeStep) error

	// ObserveFirst records the first timestep in an episode
	ObserveFirst(timestep.TimeStep) error

	// EndEpisode performs cleanup at the end of an episode
	EndEpisode()
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. Agents usually have a
// target and behaviour policy. For a given agent, the Policy and Learner
// should have pointers to the same weights so that any changes the learner
// makes to the weights are reflected in the actions the Policy chooses
type Policy interface {
	SelectAction(t timestep.TimeStep) *mat.VecDense
	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// Saver is an agent whose learned parameters can be saved to and
// loaded from files sharing a common prefix
type Saver interface {
	Save(prefix string) error
	Load(prefix string) error
}

// ReplayBuffer is a source of batches of transitions. Batches are
// returned as row-major []float64 of batchSize rows: states, actions,
// next states, rewards, and not-done flags, where a not-done flag is 0
// if the next state is terminal and 1 otherwise.
type ReplayBuffer interface {
	Sample(batchSize int) (state, action, nextState, reward, notDone []float64,
		err error)
}
