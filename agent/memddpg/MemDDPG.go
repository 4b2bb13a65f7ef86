// Package memddpg implements the deep deterministic policy gradient
// algorithm with a memory. The actor and critic are conditioned on a
// context vector summarizing the transitions observed so far, produced
// by a self-supervised feed-forward memory.
package memddpg

import (
	"fmt"

	"github.com/samuelfneumann/memddpg/agent"
	"github.com/samuelfneumann/memddpg/memory"
	"github.com/samuelfneumann/memddpg/network"
	"github.com/samuelfneumann/memddpg/solver"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// MemoryMetrics are the losses of a single memory training step
type MemoryMetrics struct {
	memory.Metrics
	InitialLoss float64 // Reconstruction loss under the initial context
}

// Metrics are the losses of a single training step
type Metrics struct {
	Step       int
	CriticLoss float64
	ActorLoss  float64

	// Memory is nil if the memory was not trained on this step
	Memory *MemoryMetrics
}

// MemDDPG implements DDPG with a feed-forward memory. MemDDPG owns the
// memory, the initial context, the actor and critic, and their target
// networks. Each set of parameters is trained in its own graph with its
// own solver.
//
// Rollout contexts are held in Sessions owned by the caller, so that a
// single MemDDPG can act in several independent rollouts.
type MemDDPG struct {
	config Config
	rng    *rand.Rand

	memory  *memory.FFW
	initial *memory.InitialContext

	critic       *criticGraph
	actor        *actorGraph
	target       *targetGraph
	actorVersion int
	policies     map[int]*policyGraph

	memorySolver *solver.Solver
	actorSolver  *solver.Solver
	criticSolver *solver.Solver

	steps int
}

// New creates and returns a new MemDDPG agent
func New(c Config) (*MemDDPG, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	init := c.InitWFn.InitWFn()

	memorySolver := c.MemorySolver.Copy()
	mem, err := memory.New(c.memoryConfig(), init, memorySolver)
	if err != nil {
		return nil, fmt.Errorf("new: could not create memory: %v", err)
	}
	initial, err := memory.NewInitialContext(mem, c.InitialSolver.Copy())
	if err != nil {
		return nil, fmt.Errorf("new: could not create initial context: %v",
			err)
	}

	critic, err := newCriticGraph(c, init)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	actor, err := newActorGraph(c, init, critic.critic)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	target, err := newTargetGraph(c, actor.actor, critic.critic)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	return &MemDDPG{
		config:       c,
		rng:          rand.New(rand.NewSource(c.Seed)),
		memory:       mem,
		initial:      initial,
		critic:       critic,
		actor:        actor,
		target:       target,
		policies:     make(map[int]*policyGraph),
		memorySolver: memorySolver,
		actorSolver:  c.ActorSolver.Copy(),
		criticSolver: c.CriticSolver.Copy(),
	}, nil
}

// Config returns the configuration of the agent
func (m *MemDDPG) Config() Config {
	return m.config
}

// Memory returns the memory of the agent
func (m *MemDDPG) Memory() *memory.FFW {
	return m.memory
}

// TrainMemory takes one training step of the memory on a batch of
// transitions, followed by one step of the initial context under the
// updated decoder. The batch is split at a point drawn uniformly at
// random from [1, BatchSize-2].
func (m *MemDDPG) TrainMemory(state, action,
	reward []float64) (MemoryMetrics, error) {
	split := 1 + m.rng.Intn(m.config.BatchSize-2)

	metrics, err := m.memory.TrainStep(state, action, reward, split,
		m.initial.Value())
	if err != nil {
		return MemoryMetrics{}, fmt.Errorf("trainMemory: %v", err)
	}

	initialLoss, err := m.initial.Step(state, action, reward)
	if err != nil {
		return MemoryMetrics{}, fmt.Errorf("trainMemory: %v", err)
	}

	return MemoryMetrics{Metrics: metrics, InitialLoss: initialLoss}, nil
}

// Watch encodes a chunk of transitions (observations, actions, and
// rewards, each row-major) on top of the context of s and stores the
// new context in s
func (m *MemDDPG) Watch(s *Session, obs, act, rew []float64) error {
	ctx, err := m.memory.Encode(obs, act, rew, s.Context())
	if err != nil {
		return fmt.Errorf("watch: %v", err)
	}
	s.ctx = ctx
	return nil
}

// SelectAction returns the flattened actions selected by the actor in
// the row-major observations obs under the context of s
func (m *MemDDPG) SelectAction(s *Session, obs []float64) (*mat.VecDense,
	error) {
	actions, err := m.selectActions(s, obs)
	if err != nil {
		return nil, fmt.Errorf("selectAction: %v", err)
	}
	return mat.NewVecDense(len(actions), actions), nil
}

// SelectActionBatch returns the actions selected by the actor in the
// row-major observations obs under the context of s, one row per
// observation
func (m *MemDDPG) SelectActionBatch(s *Session, obs []float64) (*mat.Dense,
	error) {
	actions, err := m.selectActions(s, obs)
	if err != nil {
		return nil, fmt.Errorf("selectActionBatch: %v", err)
	}
	rows := len(actions) / m.config.ActionDim
	return mat.NewDense(rows, m.config.ActionDim, actions), nil
}

func (m *MemDDPG) selectActions(s *Session, obs []float64) ([]float64,
	error) {
	sd := m.config.StateDim
	if len(obs) == 0 || len(obs)%sd != 0 {
		return nil, fmt.Errorf("observations of size %v cannot be reshaped "+
			"to rows of %v features", len(obs), sd)
	}
	rows := len(obs) / sd

	policy, ok := m.policies[rows]
	if !ok {
		var err error
		policy, err = newPolicyGraph(m.config, m.actor.actor, rows,
			m.actorVersion)
		if err != nil {
			return nil, err
		}
		m.policies[rows] = policy
	}
	err := policy.Sync(policy.actor, m.actor.actor, m.actorVersion)
	if err != nil {
		return nil, err
	}

	return policy.run(obs, s.Context())
}

// Train takes one training step of the agent on a batch sampled from
// replay. Every HypoFreq steps, the memory is first trained on the
// batch. Each transition then gets its own context, pooled from a
// random window of the batch, and the critic and actor are trained
// under these contexts. Finally, the target networks are moved toward
// the online networks by Polyak averaging.
//
// The batchSize must equal the BatchSize of the Config.
func (m *MemDDPG) Train(replay agent.ReplayBuffer,
	batchSize int) (Metrics, error) {
	if batchSize != m.config.BatchSize {
		return Metrics{}, fmt.Errorf("train: invalid batch size\n\t"+
			"want(%v)\n\thave(%v)", m.config.BatchSize, batchSize)
	}
	state, action, nextState, reward, notDone, err := replay.Sample(batchSize)
	if err != nil {
		return Metrics{}, fmt.Errorf("train: could not sample batch: %w",
			err)
	}

	m.steps++
	metrics := Metrics{Step: m.steps}

	if m.steps%m.config.HypoFreq == 0 {
		memoryMetrics, err := m.TrainMemory(state, action, reward)
		if err != nil {
			return metrics, fmt.Errorf("train: %v", err)
		}
		metrics.Memory = &memoryMetrics
	}

	contexts, err := m.memory.SampleEncode(state, action, reward,
		m.config.MiniBatchSize, nil)
	if err != nil {
		return metrics, fmt.Errorf("train: %v", err)
	}
	ctx := contexts.RawMatrix().Data

	// Bellman target r + γ * (1 - done) * Q'(s', μ'(s', h), h)
	nextValues, err := m.target.run(nextState, ctx)
	if err != nil {
		return metrics, fmt.Errorf("train: could not compute target: %v",
			err)
	}
	target := make([]float64, batchSize)
	for i := range target {
		target[i] = reward[i] + m.config.Discount*notDone[i]*nextValues[i]
	}

	metrics.CriticLoss, err = m.critic.step(state, action, ctx, target,
		m.criticSolver)
	if err != nil {
		return metrics, fmt.Errorf("train: critic: %v", err)
	}

	// The actor is trained under the updated critic
	if err := network.Set(m.actor.critic, m.critic.critic); err != nil {
		return metrics, fmt.Errorf("train: %v", err)
	}
	metrics.ActorLoss, err = m.actor.step(state, ctx, m.actorSolver)
	if err != nil {
		return metrics, fmt.Errorf("train: actor: %v", err)
	}
	m.actorVersion++

	tau := m.config.Tau
	if err := network.Polyak(m.target.critic, m.critic.critic, tau); err != nil {
		return metrics, fmt.Errorf("train: %v", err)
	}
	if err := network.Polyak(m.target.actor, m.actor.actor, tau); err != nil {
		return metrics, fmt.Errorf("train: %v", err)
	}

	return metrics, nil
}

// Steps returns the number of training steps taken
func (m *MemDDPG) Steps() int {
	return m.steps
}

// ActorParams returns a copy of the online actor parameters
func (m *MemDDPG) ActorParams() [][]float64 {
	return network.Params(m.actor.actor)
}

// TargetActorParams returns a copy of the target actor parameters
func (m *MemDDPG) TargetActorParams() [][]float64 {
	return network.Params(m.target.actor)
}

// CriticParams returns a copy of the online critic parameters
func (m *MemDDPG) CriticParams() [][]float64 {
	return network.Params(m.critic.critic)
}

// TargetCriticParams returns a copy of the target critic parameters
func (m *MemDDPG) TargetCriticParams() [][]float64 {
	return network.Params(m.target.critic)
}

// MemoryParams returns a copy of the encoder and decoder parameters
func (m *MemDDPG) MemoryParams() [][]float64 {
	return network.Params(m.memory)
}

// InitialContext returns a copy of the initial context
func (m *MemDDPG) InitialContext() []float64 {
	return m.initial.Value()
}
