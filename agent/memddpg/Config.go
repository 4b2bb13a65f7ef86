package memddpg

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/memddpg/agent"
	"github.com/samuelfneumann/memddpg/environment"
	"github.com/samuelfneumann/memddpg/expreplay"
	"github.com/samuelfneumann/memddpg/initwfn"
	"github.com/samuelfneumann/memddpg/memory"
	"github.com/samuelfneumann/memddpg/solver"
)

// Config implements a configuration for a MemDDPG agent
type Config struct {
	StateDim  int
	ActionDim int
	MaxAction float64 // Actions are in [-MaxAction, MaxAction]

	// Reserved. MinAction and NAction describe the action space and
	// are only used by the Online adapter to clip noisy actions.
	MinAction float64
	NAction   int

	Discount float64
	Tau      float64 // Polyak averaging constant for target networks

	// Reserved for target policy smoothing and delayed policy updates,
	// which are not performed
	PolicyNoise float64
	NoiseClip   float64
	PolicyFreq  int

	// Memory parameters
	AENoise       float64 // Scale of the noise corrupting decoder inputs
	HypoFreq      int     // Steps between memory updates
	HiddenDim     int     // Width of memory hidden layers
	HypoDim       int     // Size of context vectors
	MiniBatchSize int     // Window size of per-transition contexts
	Eps           float64 // Norm floor of context normalization

	BatchSize int
	Device    string // Only "" and "cpu" are supported
	Seed      uint64

	// Initialization algorithm for weights of all networks
	InitWFn *initwfn.InitWFn

	// Solvers for each set of learned parameters. Solvers are copied,
	// so the same Solver may be given more than once.
	MemorySolver  *solver.Solver
	ActorSolver   *solver.Solver
	CriticSolver  *solver.Solver
	InitialSolver *solver.Solver

	// Online adapter parameters
	ExplorationNoise float64 // Std of Gaussian noise, relative to MaxAction
	ExpReplay        expreplay.Config
}

// DefaultConfig returns the default configuration of a MemDDPG agent
func DefaultConfig(stateDim, actionDim int, maxAction float64) Config {
	// Weights in U[-1/sqrt(fan in), 1/sqrt(fan in)]
	init, err := initwfn.NewHeU(1/math.Sqrt(3), 0)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}
	adam, err := solver.NewDefaultAdam(3e-4, 1)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}

	return Config{
		StateDim:  stateDim,
		ActionDim: actionDim,
		MaxAction: maxAction,
		MinAction: -maxAction,
		NAction:   1,

		Discount:    0.99,
		Tau:         0.005,
		PolicyNoise: 0.2,
		NoiseClip:   0.5,
		PolicyFreq:  2,

		AENoise:       0.2,
		HypoFreq:      10,
		HiddenDim:     64,
		HypoDim:       64,
		MiniBatchSize: 0,
		Eps:           0.03,

		BatchSize: 256,
		Device:    "cpu",

		InitWFn:       init,
		MemorySolver:  adam,
		ActorSolver:   adam,
		CriticSolver:  adam,
		InitialSolver: adam,

		ExplorationNoise: 0.1,
		ExpReplay: expreplay.Config{
			MaxReplayCapacity: 1_000_000,
			MinReplayCapacity: 256,
		},
	}
}

// memoryConfig returns the configuration of the agent's memory
func (c Config) memoryConfig() memory.Config {
	return memory.Config{
		StateDim:  c.StateDim,
		ActionDim: c.ActionDim,
		HiddenDim: c.HiddenDim,
		HypoDim:   c.HypoDim,
		Eps:       c.Eps,
		AENoise:   c.AENoise,
		BatchSize: c.BatchSize,
		Seed:      c.Seed,
	}
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if c.StateDim <= 0 || c.ActionDim <= 0 {
		return fmt.Errorf("validate: state and action dimensions must be > 0")
	}
	if c.HiddenDim <= 0 || c.HypoDim <= 0 {
		return fmt.Errorf("validate: hidden and hypothesis dimensions " +
			"must be > 0")
	}
	if c.MaxAction <= 0 {
		return fmt.Errorf("validate: max action must be > 0")
	}
	if c.BatchSize < 3 {
		return fmt.Errorf("validate: batch size must be >= 3, have(%v)",
			c.BatchSize)
	}
	if c.Tau < 0 || c.Tau > 1 {
		return fmt.Errorf("validate: tau must be in [0, 1], have(%v)", c.Tau)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1], have(%v)",
			c.Discount)
	}
	if c.HypoFreq < 1 {
		return fmt.Errorf("validate: hypo frequency must be >= 1, have(%v)",
			c.HypoFreq)
	}
	if c.Eps <= 0 {
		return fmt.Errorf("validate: eps must be > 0")
	}
	if c.AENoise < 0 || c.ExplorationNoise < 0 {
		return fmt.Errorf("validate: noise scales must be >= 0")
	}
	if c.Device != "" && c.Device != "cpu" {
		return fmt.Errorf("validate: unsupported device %q", c.Device)
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer given")
	}
	if c.MemorySolver == nil || c.ActorSolver == nil ||
		c.CriticSolver == nil || c.InitialSolver == nil {
		return fmt.Errorf("validate: all solvers must be given")
	}
	return nil
}

// CreateAgent creates an Online MemDDPG agent for the environment env.
// The state and action dimensions and the action bounds are taken from
// env, and seed replaces the seed of the Config.
func (c Config) CreateAgent(env environment.Environment,
	seed uint64) (agent.Agent, error) {
	actionSpec := env.ActionSpec()
	if actionSpec.Cardinality != environment.Continuous {
		return nil, fmt.Errorf("createAgent: actions must be continuous")
	}

	// The actor scales all action dimensions by a single bound
	bounds := actionSpec.Bounds()
	for i, b := range bounds[1:] {
		if b != bounds[0] {
			return nil, fmt.Errorf("createAgent: action dimension %v has "+
				"bounds %v, want %v as in dimension 0", i+1, b, bounds[0])
		}
	}

	c.StateDim = env.ObservationSpec().Shape.Len()
	c.ActionDim = actionSpec.Shape.Len()
	c.MaxAction = bounds[0].Max
	c.MinAction = bounds[0].Min
	c.Seed = seed

	return NewOnline(c)
}

// ValidAgent returns whether the argument Agent is valid for the Config
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*Online)
	return ok
}
