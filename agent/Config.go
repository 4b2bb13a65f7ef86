package agent

import (
	"github.com/samuelfneumann/memddpg/environment"
)

// Config describes an agent and creates it for a given environment.
// The dimensions of the agent are taken from the environment's
// observation and action specifications.
type Config interface {
	CreateAgent(env environment.Environment, seed uint64) (Agent, error)

	// ValidAgent returns whether the argument agent was created from a
	// Config of this type
	ValidAgent(Agent) bool

	Validate() error
}
