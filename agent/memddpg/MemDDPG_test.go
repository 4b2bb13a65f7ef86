package memddpg

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/memddpg/expreplay"
	"github.com/samuelfneumann/memddpg/initwfn"
	"github.com/samuelfneumann/memddpg/network"
	"github.com/samuelfneumann/memddpg/solver"
	"gonum.org/v1/gonum/floats"
)

const (
	testStateDim  = 3
	testActionDim = 2
	testBatch     = 8
)

// fixedReplay returns the same batch on every call to Sample
type fixedReplay struct {
	state, action, nextState, reward, notDone []float64
}

func newFixedReplay(n int) fixedReplay {
	var f fixedReplay
	for i := 0; i < n; i++ {
		x := float64(i)
		f.state = append(f.state, math.Sin(x), math.Cos(x), 0.5*math.Sin(2*x))
		f.action = append(f.action, 0.8*math.Cos(3*x), -0.6*math.Sin(x))
		f.nextState = append(f.nextState, math.Sin(x+1), math.Cos(x+1),
			0.5*math.Sin(2*x+2))
		f.reward = append(f.reward, math.Cos(x/2))

		notDone := 1.0
		if i%5 == 4 {
			notDone = 0
		}
		f.notDone = append(f.notDone, notDone)
	}
	return f
}

func (f fixedReplay) Sample(batchSize int) (state, action, nextState, reward,
	notDone []float64, err error) {
	c := func(x []float64) []float64 { return append([]float64(nil), x...) }
	return c(f.state), c(f.action), c(f.nextState), c(f.reward),
		c(f.notDone), nil
}

func newTestConfig(t *testing.T) Config {
	t.Helper()

	c := DefaultConfig(testStateDim, testActionDim, 1.0)
	c.HiddenDim = 16
	c.HypoDim = 8
	c.BatchSize = testBatch
	c.HypoFreq = 3
	c.Tau = 0.1
	c.Seed = 5
	c.ExpReplay = expreplay.Config{
		MaxReplayCapacity: 100,
		MinReplayCapacity: testBatch,
	}

	init, err := initwfn.NewGlorotU(1.0, 7)
	if err != nil {
		t.Fatal(err)
	}
	c.InitWFn = init
	return c
}

func newTestAgent(t *testing.T, c Config) *MemDDPG {
	t.Helper()
	m, err := New(c)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func flatten(params [][]float64) []float64 {
	var flat []float64
	for _, p := range params {
		flat = append(flat, p...)
	}
	return flat
}

func TestSessionForget(t *testing.T) {
	m := newTestAgent(t, newTestConfig(t))
	replay := newFixedReplay(testBatch)

	// Train until the initial context has moved away from zero
	for i := 0; i < 3; i++ {
		if _, err := m.Train(replay, testBatch); err != nil {
			t.Fatal(err)
		}
	}

	s := m.NewSession()
	if !floats.Equal(s.Context(), m.InitialContext()) {
		t.Errorf("new session: want initial context %v, have %v",
			m.InitialContext(), s.Context())
	}

	err := m.Watch(s, replay.state[:6], replay.action[:4], replay.reward[:2])
	if err != nil {
		t.Fatal(err)
	}
	if floats.Equal(s.Context(), m.InitialContext()) {
		t.Errorf("watch did not change the context")
	}

	s.Forget()
	if !floats.Equal(s.Context(), m.InitialContext()) {
		t.Errorf("forget: want initial context %v, have %v",
			m.InitialContext(), s.Context())
	}

	if err := s.SetContext(make([]float64, 3)); err == nil {
		t.Errorf("setContext: expected error for invalid context size")
	}
}

func TestWatch(t *testing.T) {
	m := newTestAgent(t, newTestConfig(t))
	s := m.NewSession()

	prev := s.Context()
	for chunk := 0; chunk < 5; chunk++ {
		var obs, act, rew []float64
		for i := 0; i < 4; i++ {
			x := float64(chunk*4 + i)
			obs = append(obs, 2*math.Sin(x), math.Cos(3*x), x/10)
			act = append(act, math.Tanh(x-8), math.Sin(x/3))
			rew = append(rew, math.Cos(x))
		}

		if err := m.Watch(s, obs, act, rew); err != nil {
			t.Fatal(err)
		}
		ctx := s.Context()

		if norm := floats.Norm(ctx, 2); math.Abs(norm-1) > 1e-9 {
			t.Errorf("chunk %v: context norm: want(1) have(%v)", chunk, norm)
		}
		if floats.Distance(ctx, prev, 2) < 1e-10 {
			t.Errorf("chunk %v: context did not change", chunk)
		}
		prev = ctx

		action, err := m.SelectAction(s, obs[:testStateDim])
		if err != nil {
			t.Fatal(err)
		}
		if action.Len() != testActionDim {
			t.Errorf("action size: want(%v) have(%v)", testActionDim,
				action.Len())
		}
		for i := 0; i < action.Len(); i++ {
			if math.Abs(action.AtVec(i)) > 1.0 {
				t.Errorf("action %v out of bounds", action.AtVec(i))
			}
		}

		batch, err := m.SelectActionBatch(s, obs)
		if err != nil {
			t.Fatal(err)
		}
		if r, c := batch.Dims(); r != 4 || c != testActionDim {
			t.Errorf("batch actions shape: want(4, %v) have(%v, %v)",
				testActionDim, r, c)
		}
	}

	if err := m.Watch(s, make([]float64, 4), make([]float64, 2),
		[]float64{0}); err == nil {
		t.Errorf("watch: expected error for invalid observation size")
	}
	if _, err := m.SelectAction(s, make([]float64, 4)); err == nil {
		t.Errorf("selectAction: expected error for invalid observation size")
	}
}

func TestTrainPolyak(t *testing.T) {
	c := newTestConfig(t)
	m := newTestAgent(t, c)

	if !floats.Equal(flatten(m.ActorParams()), flatten(m.TargetActorParams())) {
		t.Errorf("target actor should start as a copy of the actor")
	}
	if !floats.Equal(flatten(m.CriticParams()),
		flatten(m.TargetCriticParams())) {
		t.Errorf("target critic should start as a copy of the critic")
	}

	oldActor := flatten(m.TargetActorParams())
	oldCritic := flatten(m.TargetCriticParams())

	if _, err := m.Train(newFixedReplay(testBatch), testBatch); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name          string
		old, on, targ []float64
	}{
		{"actor", oldActor, flatten(m.ActorParams()),
			flatten(m.TargetActorParams())},
		{"critic", oldCritic, flatten(m.CriticParams()),
			flatten(m.TargetCriticParams())},
	}
	for _, test := range tests {
		if floats.Equal(test.old, test.on) {
			t.Errorf("%v: online parameters did not change", test.name)
		}
		for i := range test.targ {
			want := c.Tau*test.on[i] + (1-c.Tau)*test.old[i]
			if math.Abs(want-test.targ[i]) > 1e-12 {
				t.Errorf("%v: target parameter %v: want(%v) have(%v)",
					test.name, i, want, test.targ[i])
				break
			}
		}
	}
}

func TestHypoFreqSchedule(t *testing.T) {
	m := newTestAgent(t, newTestConfig(t))
	replay := newFixedReplay(testBatch)

	memoryParams := flatten(m.MemoryParams())
	initial := m.InitialContext()
	actor := flatten(m.ActorParams())
	critic := flatten(m.CriticParams())

	for step := 1; step <= 6; step++ {
		metrics, err := m.Train(replay, testBatch)
		if err != nil {
			t.Fatal(err)
		}
		if metrics.Step != step || m.Steps() != step {
			t.Errorf("step: want(%v) have(%v, %v)", step, metrics.Step,
				m.Steps())
		}

		trained := step%3 == 0
		if (metrics.Memory != nil) != trained {
			t.Errorf("step %v: memory metrics: want trained(%v)", step,
				trained)
		}

		newMemory := flatten(m.MemoryParams())
		if changed := !floats.Equal(newMemory, memoryParams); changed != trained {
			t.Errorf("step %v: memory changed: want(%v) have(%v)", step,
				trained, changed)
		}
		memoryParams = newMemory

		newInitial := m.InitialContext()
		if changed := !floats.Equal(newInitial, initial); changed != trained {
			t.Errorf("step %v: initial context changed: want(%v) have(%v)",
				step, trained, changed)
		}
		initial = newInitial

		newActor := flatten(m.ActorParams())
		if floats.Equal(newActor, actor) {
			t.Errorf("step %v: actor did not change", step)
		}
		actor = newActor

		newCritic := flatten(m.CriticParams())
		if floats.Equal(newCritic, critic) {
			t.Errorf("step %v: critic did not change", step)
		}
		critic = newCritic
	}
}

func TestTrainBatchSizeMismatch(t *testing.T) {
	m := newTestAgent(t, newTestConfig(t))

	if _, err := m.Train(newFixedReplay(5), 5); err == nil {
		t.Errorf("train: expected error for batch size mismatch")
	}
	if m.Steps() != 0 {
		t.Errorf("steps: want(0) have(%v)", m.Steps())
	}
}

func TestTrainEmptyReplay(t *testing.T) {
	c := newTestConfig(t)
	m := newTestAgent(t, c)
	replay, err := c.ExpReplay.Create(c.StateDim, c.ActionDim, c.Seed)
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Train(replay, c.BatchSize)
	if !expreplay.IsEmptyBuffer(err) {
		t.Errorf("train: want empty buffer error, have(%v)", err)
	}
	if m.Steps() != 0 {
		t.Errorf("failed training should not count: steps want(0) "+
			"have(%v)", m.Steps())
	}
}

func TestSaveLoad(t *testing.T) {
	c := newTestConfig(t)
	c.HypoFreq = 100
	replay := newFixedReplay(testBatch)

	m1 := newTestAgent(t, c)
	for i := 0; i < 2; i++ {
		if _, err := m1.Train(replay, testBatch); err != nil {
			t.Fatal(err)
		}
	}
	prefix := filepath.Join(t.TempDir(), "agent")
	if err := m1.Save(prefix); err != nil {
		t.Fatal(err)
	}

	m2 := newTestAgent(t, c)
	if floats.Equal(flatten(m1.ActorParams()), flatten(m2.ActorParams())) {
		t.Fatalf("agents should start with different parameters")
	}
	if err := m2.Load(prefix); err != nil {
		t.Fatal(err)
	}

	if !floats.Equal(flatten(m1.ActorParams()), flatten(m2.ActorParams())) {
		t.Errorf("actor parameters not restored")
	}
	if !floats.Equal(flatten(m1.CriticParams()), flatten(m2.CriticParams())) {
		t.Errorf("critic parameters not restored")
	}
	if !floats.Equal(flatten(m2.ActorParams()),
		flatten(m2.TargetActorParams())) {
		t.Errorf("target actor not reset to the loaded actor")
	}
	if !floats.Equal(flatten(m2.CriticParams()),
		flatten(m2.TargetCriticParams())) {
		t.Errorf("target critic not reset to the loaded critic")
	}

	ctx := make([]float64, c.HypoDim)
	ctx[0] = 1
	s1, s2 := m1.NewSession(), m2.NewSession()
	if err := s1.SetContext(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s2.SetContext(ctx); err != nil {
		t.Fatal(err)
	}
	obs := replay.state[:2*testStateDim]
	a1, err := m1.SelectAction(s1, obs)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := m2.SelectAction(s2, obs)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(a1.RawVector().Data, a2.RawVector().Data) {
		t.Errorf("actions: want(%v) have(%v)", a1.RawVector().Data,
			a2.RawVector().Data)
	}

	if _, err := m2.Train(replay, testBatch); err != nil {
		t.Errorf("train after load: %v", err)
	}

	if err := m2.Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("load: expected error for missing files")
	}
}

func TestLoadPartialFailure(t *testing.T) {
	c := newTestConfig(t)
	replay := newFixedReplay(testBatch)

	m1 := newTestAgent(t, c)
	prefix := filepath.Join(t.TempDir(), "agent")
	if err := m1.Save(prefix); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(prefix + actorFile); err != nil {
		t.Fatal(err)
	}

	m2 := newTestAgent(t, c)
	if _, err := m2.Train(replay, testBatch); err != nil {
		t.Fatal(err)
	}
	params := [][][]float64{
		m2.CriticParams(), m2.TargetCriticParams(),
		m2.ActorParams(), m2.TargetActorParams(),
		network.Params(m2.actor.critic),
	}

	if err := m2.Load(prefix); err == nil {
		t.Fatal("load: expected error for a missing actor file")
	}

	// The critic file was readable, but nothing may have been loaded
	after := [][][]float64{
		m2.CriticParams(), m2.TargetCriticParams(),
		m2.ActorParams(), m2.TargetActorParams(),
		network.Params(m2.actor.critic),
	}
	for i := range params {
		if !floats.Equal(flatten(params[i]), flatten(after[i])) {
			t.Errorf("parameter set %v changed by a failed load", i)
		}
	}
}

func TestConfigJSON(t *testing.T) {
	c := newTestConfig(t)
	init, err := initwfn.NewGaussian(0, 0.05, 3)
	if err != nil {
		t.Fatal(err)
	}
	rmsprop, err := solver.NewDefaultRMSProp(1e-3, 1)
	if err != nil {
		t.Fatal(err)
	}
	vanilla, err := solver.NewVanilla(1e-2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	c.InitWFn = init
	c.ActorSolver = rmsprop
	c.CriticSolver = rmsprop
	c.InitialSolver = vanilla

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Config
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.InitWFn.Type != initwfn.Gaussian {
		t.Errorf("initializer: want(%v) have(%v)", initwfn.Gaussian,
			decoded.InitWFn.Type)
	}
	if decoded.ActorSolver.Type != solver.RMSProp ||
		decoded.InitialSolver.Type != solver.Vanilla {
		t.Errorf("solvers: want(%v, %v) have(%v, %v)", solver.RMSProp,
			solver.Vanilla, decoded.ActorSolver.Type,
			decoded.InitialSolver.Type)
	}

	m := newTestAgent(t, decoded)
	for _, p := range flatten(m.ActorParams()) {
		if math.Abs(p) > 0.05*6 {
			t.Fatalf("actor weight %v is not from N(0, 0.05²)", p)
		}
	}

	replay := newFixedReplay(testBatch)
	before := flatten(m.ActorParams())
	if _, err := m.Train(replay, testBatch); err != nil {
		t.Fatal(err)
	}
	if floats.Equal(before, flatten(m.ActorParams())) {
		t.Error("actor not trained with the configured solver")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := newTestConfig(t)
	if err := valid.Validate(); err != nil {
		t.Fatalf("validate: unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"small batch", func(c *Config) { c.BatchSize = 2 }},
		{"tau", func(c *Config) { c.Tau = 1.5 }},
		{"hypo freq", func(c *Config) { c.HypoFreq = 0 }},
		{"device", func(c *Config) { c.Device = "cuda" }},
		{"state dim", func(c *Config) { c.StateDim = 0 }},
		{"solver", func(c *Config) { c.ActorSolver = nil }},
	}
	for _, test := range tests {
		c := newTestConfig(t)
		test.modify(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%v: expected validation error", test.name)
		}
	}
}
