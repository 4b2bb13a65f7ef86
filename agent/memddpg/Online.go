package memddpg

import (
	"fmt"
	"os"

	"github.com/samuelfneumann/memddpg/expreplay"
	ts "github.com/samuelfneumann/memddpg/timestep"
	"github.com/samuelfneumann/memddpg/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Recorder records the metrics of each training step
type Recorder interface {
	RecordTrain(Metrics) error
}

// Online adapts a MemDDPG agent to the agent.Agent interface so that it
// can be run online in an environment. Online keeps a single Session
// which is reset at the start of each episode, stores transitions in an
// experience replay buffer, and explores with Gaussian action noise.
type Online struct {
	agent   *MemDDPG
	session *Session
	replay  *expreplay.Buffer

	noise                distuv.Normal
	minAction, maxAction float64

	prevStep ts.TimeStep
	eval     bool

	recorder Recorder
}

// NewOnline creates and returns a new Online MemDDPG agent
func NewOnline(c Config) (*Online, error) {
	agent, err := New(c)
	if err != nil {
		return nil, fmt.Errorf("newOnline: %v", err)
	}

	replay, err := c.ExpReplay.Create(c.StateDim, c.ActionDim, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("newOnline: could not create experience "+
			"replay buffer: %v", err)
	}

	minAction := c.MinAction
	if minAction >= c.MaxAction {
		minAction = -c.MaxAction
	}

	return &Online{
		agent:   agent,
		session: agent.NewSession(),
		replay:  replay,
		noise: distuv.Normal{
			Mu:    0,
			Sigma: c.ExplorationNoise * c.MaxAction,
			Src:   rand.NewSource(c.Seed + 1),
		},
		minAction: minAction,
		maxAction: c.MaxAction,
	}, nil
}

// Agent returns the wrapped MemDDPG agent
func (o *Online) Agent() *MemDDPG {
	return o.agent
}

// Session returns the rollout Session of the agent
func (o *Online) Session() *Session {
	return o.session
}

// SetRecorder sets the Recorder that receives training metrics
func (o *Online) SetRecorder(r Recorder) {
	o.recorder = r
}

// SelectAction selects an action in the observation of t under the
// current rollout context. In training mode, Gaussian noise is added
// to the action, which is then clipped to the action bounds.
func (o *Online) SelectAction(t ts.TimeStep) *mat.VecDense {
	action, err := o.agent.SelectAction(o.session, t.Observation.RawVector().Data)
	if err != nil {
		panic(fmt.Sprintf("selectAction: %v", err))
	}
	if o.eval || o.noise.Sigma == 0 {
		return action
	}

	data := action.RawVector().Data
	for i := range data {
		data[i] += o.noise.Rand()
	}
	floatutils.ClipSlice(data, o.minAction, o.maxAction)
	return action
}

// ObserveFirst observes the first timestep of an episode and clears
// the rollout context
func (o *Online) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		fmt.Fprintf(os.Stderr, "Warning: ObserveFirst() should only be "+
			"called on the first timestep (current timestep = %d)", t.Number)
	}
	o.session.Forget()
	o.prevStep = t
	return nil
}

// Observe observes the timestep resulting from taking action in the
// previous timestep. The transition is added to the replay buffer in
// training mode, and is always added to the rollout context.
func (o *Online) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	a := mat.VecDenseCopyOf(action)

	if !o.eval {
		transition := ts.NewTransition(o.prevStep, a, nextStep)
		if err := o.replay.Add(transition); err != nil {
			return fmt.Errorf("observe: %v", err)
		}
	}

	obs := o.prevStep.Observation.RawVector().Data
	err := o.agent.Watch(o.session, obs, a.RawVector().Data,
		[]float64{nextStep.Reward})
	if err != nil {
		return fmt.Errorf("observe: %v", err)
	}

	o.prevStep = nextStep
	return nil
}

// Step takes one training step once the replay buffer holds enough
// transitions. No training is done in evaluation mode.
func (o *Online) Step() error {
	if o.eval {
		return nil
	}
	batchSize := o.agent.config.BatchSize
	if o.replay.Capacity() < o.replay.MinCapacity() ||
		o.replay.Capacity() < batchSize {
		return nil
	}

	metrics, err := o.agent.Train(o.replay, batchSize)
	if err != nil {
		return fmt.Errorf("step: %v", err)
	}

	if o.recorder != nil {
		if err := o.recorder.RecordTrain(metrics); err != nil {
			return fmt.Errorf("step: could not record metrics: %v", err)
		}
	}
	return nil
}

// EndEpisode performs cleanup at the end of an episode
func (o *Online) EndEpisode() {}

// Eval sets the agent to evaluation mode
func (o *Online) Eval() {
	o.eval = true
}

// Train sets the agent to training mode
func (o *Online) Train() {
	o.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (o *Online) IsEval() bool {
	return o.eval
}

// Save saves the agent to files starting with prefix
func (o *Online) Save(prefix string) error {
	return o.agent.Save(prefix)
}

// Load loads the agent from files starting with prefix
func (o *Online) Load(prefix string) error {
	return o.agent.Load(prefix)
}
