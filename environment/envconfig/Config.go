// Package envconfig provides JSON serializable configurations of the
// continuous action environments, each with default physical
// parameters and a default task
package envconfig

import (
	"fmt"

	"github.com/samuelfneumann/memddpg/environment"
	"github.com/samuelfneumann/memddpg/environment/box2d/lunarlander"
	"github.com/samuelfneumann/memddpg/environment/classiccontrol/acrobot"
	"github.com/samuelfneumann/memddpg/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/memddpg/environment/classiccontrol/mountaincar"
	"github.com/samuelfneumann/memddpg/environment/classiccontrol/pendulum"
	ts "github.com/samuelfneumann/memddpg/timestep"
	"gonum.org/v1/gonum/spatial/r1"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	Pendulum    EnvName = "Pendulum"
	Cartpole    EnvName = "Cartpole"
	MountainCar EnvName = "MountainCar"
	Acrobot     EnvName = "Acrobot"
	LunarLander EnvName = "LunarLander"
)

// TaskName stores the tasks that can be configured with this package.
// Each environment has a single task:
//
//	Environment		Task
//	Pendulum		SwingUp
//	Cartpole		Balance
//	MountainCar		Goal
//	Acrobot			SwingUp
//	LunarLander		Land
//
// An empty TaskName selects the task of the environment.
type TaskName string

// Tasks available for configuration
const (
	SwingUp TaskName = "SwingUp"
	Balance TaskName = "Balance"
	Goal    TaskName = "Goal"
	Land    TaskName = "Land"
)

type factory func(cutoff int, seed uint64, discount float64) (
	environment.Environment, ts.TimeStep, error)

type entry struct {
	task   TaskName
	create factory
}

var environments = map[EnvName]entry{
	Pendulum:    {SwingUp, createPendulum},
	Cartpole:    {Balance, createCartpole},
	MountainCar: {Goal, createMountainCar},
	Acrobot:     {SwingUp, createAcrobot},
	LunarLander: {Land, createLunarLander},
}

// Config implements a specific configuration of a specific environment
// and its task
type Config struct {
	Environment   EnvName
	Task          TaskName
	EpisodeCutoff int
	Discount      float64
}

// NewConfig returns a new environment Config
func NewConfig(envName EnvName, taskName TaskName, episodeCutoff int,
	discount float64) Config {
	return Config{
		Environment:   envName,
		Task:          taskName,
		EpisodeCutoff: episodeCutoff,
		Discount:      discount,
	}
}

// Validate returns an error if the Config describes no environment
func (c Config) Validate() error {
	e, ok := environments[c.Environment]
	if !ok {
		return fmt.Errorf("validate: no such environment %q", c.Environment)
	}
	if c.Task != "" && c.Task != e.task {
		return fmt.Errorf("validate: %v environment has no task %q, "+
			"only %q", c.Environment, c.Task, e.task)
	}
	if c.EpisodeCutoff <= 0 {
		return fmt.Errorf("validate: episode cutoff must be > 0, have(%v)",
			c.EpisodeCutoff)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1], have(%v)",
			c.Discount)
	}
	return nil
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment
func (c Config) Create(seed uint64) (environment.Environment, ts.TimeStep,
	error) {
	if err := c.Validate(); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %v", err)
	}
	env, step, err := environments[c.Environment].create(c.EpisodeCutoff,
		seed, c.Discount)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %v", err)
	}
	return env, step, nil
}

// created converts the result of an environment constructor, keeping
// the returned Environment nil on error
func created(env environment.Environment, step ts.TimeStep, err error) (
	environment.Environment, ts.TimeStep, error) {
	if err != nil {
		return nil, ts.TimeStep{}, err
	}
	return env, step, nil
}

func createPendulum(cutoff int, seed uint64, discount float64) (
	environment.Environment, ts.TimeStep, error) {
	s := environment.NewUniformStarter([]r1.Interval{
		{Min: -pendulum.AngleBound, Max: pendulum.AngleBound},
		{Min: -1, Max: 1},
	}, seed)
	return created(pendulum.New(pendulum.NewSwingUp(s, cutoff), discount))
}

func createCartpole(cutoff int, seed uint64, discount float64) (
	environment.Environment, ts.TimeStep, error) {
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	s := environment.NewUniformStarter([]r1.Interval{
		bounds, bounds, bounds, bounds,
	}, seed)
	task := cartpole.NewBalance(s, cutoff, cartpole.FailAngle)
	return created(cartpole.New(task, discount))
}

func createMountainCar(cutoff int, seed uint64, discount float64) (
	environment.Environment, ts.TimeStep, error) {
	s := environment.NewUniformStarter([]r1.Interval{
		{Min: -0.6, Max: -0.4},
		{Min: 0, Max: 0},
	}, seed)
	task := mountaincar.NewGoal(s, cutoff, mountaincar.GoalPosition)
	return created(mountaincar.New(task, discount))
}

func createAcrobot(cutoff int, seed uint64, discount float64) (
	environment.Environment, ts.TimeStep, error) {
	bounds := r1.Interval{Min: -0.1, Max: 0.1}
	s := environment.NewUniformStarter([]r1.Interval{
		bounds, bounds, bounds, bounds,
	}, seed)
	task := acrobot.NewSwingUp(s, cutoff, acrobot.GoalHeight)
	return created(acrobot.New(task, discount))
}

func createLunarLander(cutoff int, seed uint64, discount float64) (
	environment.Environment, ts.TimeStep, error) {
	task := lunarlander.NewLand(lunarlander.NewStarter(seed), cutoff)
	return created(lunarlander.New(task, discount, seed))
}
