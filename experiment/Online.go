package experiment

import (
	"context"
	"fmt"

	"github.com/samuelfneumann/memddpg/agent"
	env "github.com/samuelfneumann/memddpg/environment"
	"github.com/samuelfneumann/memddpg/experiment/checkpointer"
	"github.com/samuelfneumann/memddpg/experiment/store"
	"github.com/samuelfneumann/memddpg/experiment/trackers"
	ts "github.com/samuelfneumann/memddpg/timestep"
)

// Online is an Experiment that runs an agent online only. No offline
// evaluation is performed.
type Online struct {
	env.Environment
	agent.Agent
	maxSteps     uint
	currentSteps uint
	episodes     int

	trackers      []trackers.Tracker
	checkpointers []checkpointer.Checkpointer
	recorder      EpisodeRecorder
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The steps parameter determines how
// many timesteps the experiment is run for. The Trackers determine
// what data is saved, the Checkpointers when the agent is saved, and
// recorder, if not nil, receives every finished episode.
func NewOnline(e env.Environment, a agent.Agent, steps uint,
	t []trackers.Tracker, c []checkpointer.Checkpointer,
	recorder EpisodeRecorder) *Online {
	return &Online{
		Environment:   e,
		Agent:         a,
		maxSteps:      steps,
		trackers:      t,
		checkpointers: c,
		recorder:      recorder,
	}
}

// Register registers a Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t trackers.Tracker) {
	o.trackers = append(o.trackers, t)
}

// AddCheckpointer adds a Checkpointer to the experiment
func (o *Online) AddCheckpointer(c checkpointer.Checkpointer) {
	o.checkpointers = append(o.checkpointers, c)
}

// RunEpisode runs a single episode of the experiment
func (o *Online) RunEpisode(ctx context.Context) (bool, error) {
	step := o.Environment.Reset()
	if err := o.Agent.ObserveFirst(step); err != nil {
		return false, fmt.Errorf("runEpisode: %v", err)
	}
	o.track(step)

	episodeReturn := 0.0
	for !step.Last() && o.currentSteps < o.maxSteps {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		o.currentSteps++

		// Select action, step in environment
		action := o.Agent.SelectAction(step)
		step, _ = o.Environment.Step(action)
		episodeReturn += step.Reward

		o.track(step)

		// Observe the timestep and step the agent
		if err := o.Agent.Observe(action, step); err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}
		if err := o.Agent.Step(); err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}

		if err := o.checkpoint(); err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}
	}

	if step.Last() {
		o.Agent.EndEpisode()
		if o.recorder != nil {
			e := store.Episode{
				Episode: o.episodes,
				Return:  episodeReturn,
				Length:  step.Number,
			}
			if err := o.recorder.RecordEpisode(ctx, e); err != nil {
				return false, fmt.Errorf("runEpisode: %v", err)
			}
		}
		o.episodes++
	}

	// Return whether or not the max timestep limit has been reached
	return o.currentSteps >= o.maxSteps, nil
}

// Run runs the entire experiment for all timesteps
func (o *Online) Run(ctx context.Context) error {
	for {
		ended, err := o.RunEpisode(ctx)
		if err != nil {
			return fmt.Errorf("run: %v", err)
		}
		if ended {
			return nil
		}
	}
}

// Steps returns the number of steps taken in the experiment
func (o *Online) Steps() uint {
	return o.currentSteps
}

// Episodes returns the number of finished episodes
func (o *Online) Episodes() int {
	return o.episodes
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, tracker := range o.trackers {
		if err := tracker.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

// track tracks the current timestep by caching its data in each
// Tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tracker := range o.trackers {
		tracker.Track(t)
	}
}

// checkpoint runs each checkpointer on the current step count
func (o *Online) checkpoint() error {
	for _, c := range o.checkpointers {
		if err := c.Checkpoint(int(o.currentSteps)); err != nil {
			return fmt.Errorf("checkpoint: %v", err)
		}
	}
	return nil
}
