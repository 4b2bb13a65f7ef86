// Package experiment implements functionality for running an experiment
package experiment

import (
	"context"
	"fmt"

	"github.com/samuelfneumann/memddpg/agent"
	"github.com/samuelfneumann/memddpg/agent/memddpg"
	"github.com/samuelfneumann/memddpg/environment"
	"github.com/samuelfneumann/memddpg/environment/classiccontrol/pendulum"
	"github.com/samuelfneumann/memddpg/environment/envconfig"
	"github.com/samuelfneumann/memddpg/experiment/checkpointer"
	"github.com/samuelfneumann/memddpg/experiment/store"
	"github.com/samuelfneumann/memddpg/experiment/trackers"
)

// Experiment outlines structs that can run experiments. Experiments
// track environment TimeSteps with Trackers, which cache the data they
// need in RAM to be later saved to disk by Save(). The Run() method
// runs all episodes until the maximum timestep limit is reached, and
// RunEpisode() runs a single episode.
type Experiment interface {
	Run(ctx context.Context) error

	// RunEpisode runs a single episode, returning whether the
	// experiment's step limit has been reached
	RunEpisode(ctx context.Context) (bool, error)

	// Save all tracked data to disk
	Save() error

	// Adds a new Tracker to the (possibly already running) experiment
	Register(t trackers.Tracker)
}

// EpisodeRecorder records finished episodes
type EpisodeRecorder interface {
	RecordEpisode(ctx context.Context, e store.Episode) error
}

// Type describes the kind of an experiment
type Type string

const (
	OnlineExp Type = "OnlineExperiment"
)

// Config represents a configuration of an experiment. The state and
// action dimensions and the action bounds of the Agent are taken from
// the environment when the experiment is created.
type Config struct {
	Type
	MaxSteps uint
	Env      envconfig.Config
	Agent    memddpg.Config
}

// DefaultConfig returns the default experiment configuration
func DefaultConfig() Config {
	return Config{
		Type:     OnlineExp,
		MaxSteps: 100_000,
		Env: envconfig.NewConfig(envconfig.Pendulum, envconfig.SwingUp,
			200, 0.99),
		Agent: memddpg.DefaultConfig(pendulum.ObservationDims,
			pendulum.ActionDims, pendulum.MaxContinuousAction),
	}
}

// CreateEnv creates the environment of the experiment
func (c Config) CreateEnv(seed uint64) (environment.Environment, error) {
	env, _, err := c.Env.Create(seed)
	if err != nil {
		return nil, fmt.Errorf("createEnv: %v", err)
	}
	return env, nil
}

// CreateExp creates the experiment, together with its environment and
// agent
func (c Config) CreateExp(seed uint64, t []trackers.Tracker,
	check []checkpointer.Checkpointer,
	recorder EpisodeRecorder) (Experiment, agent.Agent, error) {
	env, err := c.CreateEnv(seed)
	if err != nil {
		return nil, nil, fmt.Errorf("createExp: %v", err)
	}

	a, err := createAgent(c.Agent, env, seed)
	if err != nil {
		return nil, nil, fmt.Errorf("createExp: could not create agent: %v",
			err)
	}

	switch c.Type {
	case OnlineExp, "":
		return NewOnline(env, a, c.MaxSteps, t, check, recorder), a, nil
	}

	return nil, nil, fmt.Errorf("createExp: no such experiment type %v",
		c.Type)
}

// createAgent creates the agent described by c for env
func createAgent(c agent.Config, env environment.Environment,
	seed uint64) (agent.Agent, error) {
	a, err := c.CreateAgent(env, seed)
	if err != nil {
		return nil, err
	}
	if !c.ValidAgent(a) {
		return nil, fmt.Errorf("createAgent: %T created an invalid agent %T",
			c, a)
	}
	return a, nil
}
