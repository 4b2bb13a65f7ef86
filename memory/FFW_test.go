package memory

import (
	"math"
	"testing"

	"github.com/samuelfneumann/memddpg/initwfn"
	"github.com/samuelfneumann/memddpg/solver"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	stateDim  = 3
	actionDim = 2
)

// newTestMemory returns a memory with deterministic initial weights
func newTestMemory(t *testing.T, batch int, aeNoise float64,
	stepSize float64) *FFW {
	t.Helper()

	config := Config{
		StateDim:  stateDim,
		ActionDim: actionDim,
		HiddenDim: 32,
		HypoDim:   8,
		Eps:       0.03,
		AENoise:   aeNoise,
		BatchSize: batch,
		Seed:      1,
	}

	init, err := initwfn.NewGlorotU(1.0, 11)
	if err != nil {
		t.Fatal(err)
	}
	s, err := solver.NewDefaultAdam(stepSize, 1)
	if err != nil {
		t.Fatal(err)
	}

	f, err := New(config, init.InitWFn(), s)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// records returns n deterministic records. Records are spread by
// spread around a fixed base record.
func records(n int, spread, offset float64) (obs, act, rew []float64) {
	for i := 0; i < n; i++ {
		x := float64(i) + offset
		obs = append(obs,
			0.5+spread*math.Sin(x),
			-0.3+spread*math.Cos(x),
			0.1+spread*math.Sin(2*x),
		)
		act = append(act, 0.2+spread*math.Cos(3*x), -0.4+spread*math.Sin(x/2))
		rew = append(rew, 1.0+spread*math.Cos(x/3))
	}
	return
}

func TestEncodeUnitNorm(t *testing.T) {
	f := newTestMemory(t, 8, 0.2, 3e-4)

	obs, act, rew := records(5, 1.0, 0)
	ctx, err := f.Encode(obs, act, rew, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx) != 8 {
		t.Fatalf("context size: want(8) have(%v)", len(ctx))
	}
	if norm := floats.Norm(ctx, 2); math.Abs(norm-1) > 1e-6 {
		t.Errorf("context norm: want(1) have(%v)", norm)
	}

	// Carrying a previous context keeps the result unit-norm
	obs, act, rew = records(1, 1.0, 9)
	next, err := f.Encode(obs, act, rew, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if norm := floats.Norm(next, 2); math.Abs(norm-1) > 1e-6 {
		t.Errorf("context norm with prev: want(1) have(%v)", norm)
	}

	if _, err := f.Encode(obs, act, rew, []float64{1, 2}); err == nil {
		t.Error("expected an error for a prev of the wrong size")
	}
}

func TestEncodeIncremental(t *testing.T) {
	f := newTestMemory(t, 8, 0.2, 3e-4)

	obs, act, rew := records(8, 1.0, 0)
	whole, err := f.Encode(obs, act, rew, nil)
	if err != nil {
		t.Fatal(err)
	}

	first, err := f.Encode(obs[:4*stateDim], act[:4*actionDim], rew[:4], nil)
	if err != nil {
		t.Fatal(err)
	}
	chunked, err := f.Encode(obs[4*stateDim:], act[4*actionDim:], rew[4:],
		first)
	if err != nil {
		t.Fatal(err)
	}

	cos := floats.Dot(whole, chunked)
	angle := math.Acos(math.Min(cos, 1))
	if angle > 0.05 {
		t.Errorf("angle between one-shot and incremental contexts: "+
			"want(<= 0.05) have(%v)", angle)
	}
}

func TestEncodeFoldsMeanIntoPrev(t *testing.T) {
	f := newTestMemory(t, 8, 0.2, 3e-4)
	obs, act, rew := records(4, 1.0, 0)
	prev := []float64{0.6, -0.8, 0, 0, 0, 0, 0, 0}

	have, err := f.Encode(obs, act, rew, prev)
	if err != nil {
		t.Fatal(err)
	}

	// The raw mean embedding is added to prev and normalized once
	x, n, err := f.Records(obs, act, rew)
	if err != nil {
		t.Fatal(err)
	}
	emb, err := f.embed(x, n)
	if err != nil {
		t.Fatal(err)
	}
	want := make([]float64, len(prev))
	for i := 0; i < n; i++ {
		floats.Add(want, emb[i*len(prev):(i+1)*len(prev)])
	}
	floats.Scale(1/float64(n), want)
	floats.Add(want, prev)
	floats.Scale(1/floats.Norm(want, 2), want)

	if !floats.EqualApprox(want, have, 1e-12) {
		t.Errorf("context: want(%v) have(%v)", want, have)
	}
}

func TestSampleEncodeOrderInvariant(t *testing.T) {
	const batch = 6
	f := newTestMemory(t, batch, 0.2, 3e-4)

	obs, act, rew := records(batch, 1.0, 0)
	contexts, err := f.SampleEncode(obs, act, rew, batch, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Reverse the order of the records
	var rObs, rAct, rRew []float64
	for i := batch - 1; i >= 0; i-- {
		rObs = append(rObs, obs[i*stateDim:(i+1)*stateDim]...)
		rAct = append(rAct, act[i*actionDim:(i+1)*actionDim]...)
		rRew = append(rRew, rew[i])
	}
	reversed, err := f.SampleEncode(rObs, rAct, rRew, batch, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := mat.Row(nil, 0, contexts)
	for i := 0; i < batch; i++ {
		for _, have := range [][]float64{
			mat.Row(nil, i, contexts),
			mat.Row(nil, i, reversed),
		} {
			if !floats.EqualApprox(want, have, 1e-9) {
				t.Errorf("row %v: want(%v) have(%v)", i, want, have)
			}
		}
	}
}

func TestSampleEncodeShapes(t *testing.T) {
	const batch = 10
	f := newTestMemory(t, batch, 0.2, 3e-4)
	obs, act, rew := records(batch, 1.0, 0)

	contexts, err := f.SampleEncode(obs, act, rew, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := contexts.Dims(); r != batch || c != 8 {
		t.Fatalf("dims: want(%v, 8) have(%v, %v)", batch, r, c)
	}
	for i := 0; i < batch; i++ {
		norm := floats.Norm(mat.Row(nil, i, contexts), 2)
		if math.Abs(norm-1) > 1e-6 {
			t.Errorf("row %v norm: want(1) have(%v)", i, norm)
		}
	}

	single := make([]float64, 8)
	single[0] = 1
	if _, err := f.SampleEncode(obs, act, rew, 3, single); err != nil {
		t.Errorf("single prev context: %v", err)
	}
	if _, err := f.SampleEncode(obs, act, rew, 3,
		make([]float64, batch*8)); err != nil {
		t.Errorf("per-record prev contexts: %v", err)
	}
	if _, err := f.SampleEncode(obs, act, rew, 3,
		make([]float64, 5)); err == nil {
		t.Error("expected an error for prev contexts of the wrong shape")
	}
}

func TestWindowContainsRecord(t *testing.T) {
	f := newTestMemory(t, 8, 0.2, 3e-4)

	for i := 0; i < 20; i++ {
		n := 8
		window := f.window(i%n, n, 3)
		if len(window) != 3 {
			t.Fatalf("window size: want(3) have(%v)", len(window))
		}

		found := false
		for _, index := range window {
			if index < 0 || index >= n {
				t.Fatalf("index %v outside [0, %v)", index, n)
			}
			found = found || index == i%n
		}
		if !found {
			t.Errorf("window %v of record %v does not contain it", window,
				i%n)
		}
	}
}

func TestDecodeMatchingContext(t *testing.T) {
	const batch = 16
	f := newTestMemory(t, batch, 0, 1e-2)
	obs, act, rew := records(batch, 1.0, 0)

	ctx, err := f.Encode(obs, act, rew, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, before, err := f.Decode(obs, act, rew, ctx)
	if err != nil {
		t.Fatal(err)
	}

	initial := make([]float64, 8)
	for i := 0; i < 300; i++ {
		split := 1 + i%(batch-2)
		if _, err := f.TrainStep(obs, act, rew, split, initial); err != nil {
			t.Fatal(err)
		}
	}

	ctx, err = f.Encode(obs, act, rew, nil)
	if err != nil {
		t.Fatal(err)
	}
	recon, matching, err := f.Decode(obs, act, rew, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := recon.Dims(); r != batch || c != stateDim+actionDim+1 {
		t.Errorf("reconstruction dims: want(%v, %v) have(%v, %v)", batch,
			stateDim+actionDim+1, r, c)
	}

	if matching >= before {
		t.Errorf("training did not reduce the reconstruction error: "+
			"before(%v) after(%v)", before, matching)
	}

	// Context of records the memory was never trained on
	otherObs, otherAct, otherRew := records(batch, 1.0, 100)
	for i := range otherObs {
		otherObs[i] += 2
	}
	other, err := f.Encode(otherObs, otherAct, otherRew, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, unrelated, err := f.Decode(obs, act, rew, other)
	if err != nil {
		t.Fatal(err)
	}
	if matching >= unrelated {
		t.Errorf("reconstruction error under the data's own context "+
			"(%v) is not lower than under the context of unrelated "+
			"records (%v)", matching, unrelated)
	}
}

func TestDecodeContextShapes(t *testing.T) {
	const batch = 5
	f := newTestMemory(t, batch, 0, 3e-4)
	obs, act, rew := records(batch, 1.0, 0)

	ctx, err := f.Encode(obs, act, rew, nil)
	if err != nil {
		t.Fatal(err)
	}
	single, singleLoss, err := f.Decode(obs, act, rew, ctx)
	if err != nil {
		t.Fatal(err)
	}

	perRecord := make([]float64, 0, batch*len(ctx))
	for i := 0; i < batch; i++ {
		perRecord = append(perRecord, ctx...)
	}
	tiled, tiledLoss, err := f.Decode(obs, act, rew, perRecord)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(single, tiled, 1e-12) || singleLoss != tiledLoss {
		t.Errorf("one context per record differs from a broadcast "+
			"context: loss want(%v) have(%v)", singleLoss, tiledLoss)
	}

	// Distinct contexts per record change only their own rows
	contexts, err := f.SampleEncode(obs, act, rew, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	recon, _, err := f.Decode(obs, act, rew, contexts.RawMatrix().Data)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < batch; i++ {
		rowCtx := mat.Row(nil, i, contexts)
		row, _, err := f.Decode(obs[i*stateDim:(i+1)*stateDim],
			act[i*actionDim:(i+1)*actionDim], rew[i:i+1], rowCtx)
		if err != nil {
			t.Fatal(err)
		}
		if !floats.EqualApprox(mat.Row(nil, i, recon), mat.Row(nil, 0, row),
			1e-9) {
			t.Errorf("row %v: want(%v) have(%v)", i, mat.Row(nil, 0, row),
				mat.Row(nil, i, recon))
		}
	}

	if _, _, err := f.Decode(obs, act, rew, make([]float64, 3)); err == nil {
		t.Error("expected an error for contexts of the wrong shape")
	}
}

func TestTrainStep(t *testing.T) {
	const batch = 8
	f := newTestMemory(t, batch, 0.2, 1e-2)
	obs, act, rew := records(batch, 1.0, 0)

	before := f.Version()
	params := make([][]float64, 0)
	for _, node := range f.Learnables() {
		params = append(params,
			append([]float64(nil), node.Value().Data().([]float64)...))
	}

	metrics, err := f.TrainStep(obs, act, rew, 3, make([]float64, 8))
	if err != nil {
		t.Fatal(err)
	}
	if f.Version() != before+1 {
		t.Errorf("version: want(%v) have(%v)", before+1, f.Version())
	}

	sum := metrics.PrefixLoss + metrics.FullLoss + metrics.Diversity
	if math.Abs(metrics.Loss-sum) > 1e-9 {
		t.Errorf("loss: want(%v) have(%v)", sum, metrics.Loss)
	}
	if metrics.Diversity > 0 {
		t.Errorf("diversity term must be <= 0, have(%v)", metrics.Diversity)
	}

	changed := false
	for i, node := range f.Learnables() {
		if !floats.Equal(params[i], node.Value().Data().([]float64)) {
			changed = true
		}
	}
	if !changed {
		t.Error("training step did not change any parameter")
	}

	if _, err := f.TrainStep(obs, act, rew, 0, make([]float64, 8)); err == nil {
		t.Error("expected an error for an empty prefix")
	}
	if _, err := f.TrainStep(obs[:3*stateDim], act[:3*actionDim], rew[:3], 1,
		make([]float64, 8)); err == nil {
		t.Error("expected an error for a batch of the wrong size")
	}
}

// newGradientTestMemory returns a small memory without input noise,
// trained by plain gradient descent
func newGradientTestMemory(t *testing.T, batch int, stepSize float64) *FFW {
	t.Helper()

	config := Config{
		StateDim:  stateDim,
		ActionDim: actionDim,
		HiddenDim: 8,
		HypoDim:   4,
		Eps:       0.03,
		BatchSize: batch,
		Seed:      3,
	}

	init, err := initwfn.NewGlorotU(1.0, 5)
	if err != nil {
		t.Fatal(err)
	}
	s, err := solver.NewVanilla(stepSize, 1, -1)
	if err != nil {
		t.Fatal(err)
	}

	f, err := New(config, init.InitWFn(), s)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestTrainStepContexts(t *testing.T) {
	const (
		batch = 6
		split = 2
	)
	obs, act, rew := records(batch, 1.0, 0)
	initial := []float64{0.1, 0, -0.2, 0}

	trained := newGradientTestMemory(t, batch, 1e-3)
	metrics, err := trained.TrainStep(obs, act, rew, split, initial)
	if err != nil {
		t.Fatal(err)
	}

	// An identical, untrained memory gives the losses of the same
	// contexts computed outside the training graph
	f := newGradientTestMemory(t, batch, 1e-3)
	prefixObs, prefixAct, prefixRew := obs[:split*stateDim],
		act[:split*actionDim], rew[:split]
	prefixCtx, err := f.Encode(prefixObs, prefixAct, prefixRew, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, prefixLoss, err := f.Decode(prefixObs, prefixAct, prefixRew, prefixCtx)
	if err != nil {
		t.Fatal(err)
	}
	fullCtx, err := f.Encode(obs[split*stateDim:], act[split*actionDim:],
		rew[split:], prefixCtx)
	if err != nil {
		t.Fatal(err)
	}
	_, fullLoss, err := f.Decode(obs, act, rew, fullCtx)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(metrics.PrefixLoss-prefixLoss) > 1e-9 {
		t.Errorf("prefix loss: want(%v) have(%v)", prefixLoss,
			metrics.PrefixLoss)
	}
	if math.Abs(metrics.FullLoss-fullLoss) > 1e-9 {
		t.Errorf("full loss: want(%v) have(%v)", fullLoss, metrics.FullLoss)
	}
}

func TestTrainStepPrefixContextConstant(t *testing.T) {
	const (
		batch    = 6
		split    = 2
		stepSize = 1e-3
		h        = 1e-6
	)
	obs, act, rew := records(batch, 1.0, 0)
	initial := []float64{0.1, 0, -0.2, 0}

	// Gradient of the training step, recovered from a plain gradient
	// descent update
	trained := newGradientTestMemory(t, batch, stepSize)
	weights := trained.train.encoder.Learnables()[0]
	before := append([]float64(nil), weights.Value().Data().([]float64)...)
	if _, err := trained.TrainStep(obs, act, rew, split, initial); err != nil {
		t.Fatal(err)
	}
	after := weights.Value().Data().([]float64)

	// Finite differences of the loss of an identical memory, with the
	// prefix context fed in as a constant
	f := newGradientTestMemory(t, batch, stepSize)
	if err := f.feed(obs, act, rew, split, initial); err != nil {
		t.Fatal(err)
	}
	loss := func() float64 {
		if err := f.train.vm.RunAll(); err != nil {
			t.Fatal(err)
		}
		defer f.train.vm.Reset()
		return f.train.loss.Data().(float64)
	}

	data := f.train.encoder.Learnables()[0].Value().Data().([]float64)
	for j := 0; j < 6 && j < len(data); j++ {
		w := data[j]
		data[j] = w + h
		plus := loss()
		data[j] = w - h
		minus := loss()
		data[j] = w

		numeric := (plus - minus) / (2 * h)
		analytic := (before[j] - after[j]) / stepSize
		if math.Abs(numeric-analytic) > 1e-6+1e-4*math.Abs(numeric) {
			t.Errorf("gradient of encoder weight %v: want(%v) have(%v)", j,
				numeric, analytic)
		}
	}
}

func TestInitialContext(t *testing.T) {
	const batch = 8
	f := newTestMemory(t, batch, 0.2, 1e-2)
	s, err := solver.NewDefaultAdam(1e-2, 1)
	if err != nil {
		t.Fatal(err)
	}

	initial, err := NewInitialContext(f, s)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range initial.Value() {
		if v != 0 {
			t.Fatalf("initial context is not zero-initialized: %v",
				initial.Value())
		}
	}

	decoder := make([][]float64, 0)
	for _, node := range f.Decoder().Learnables() {
		decoder = append(decoder,
			append([]float64(nil), node.Value().Data().([]float64)...))
	}

	obs, act, rew := records(batch, 1.0, 0)
	loss, err := initial.Step(obs, act, rew)
	if err != nil {
		t.Fatal(err)
	}
	if loss < 0 || math.IsNaN(loss) {
		t.Errorf("invalid loss %v", loss)
	}

	if floats.Norm(initial.Value(), 2) == 0 {
		t.Error("initial context did not change")
	}
	for i, node := range f.Decoder().Learnables() {
		if !floats.Equal(decoder[i], node.Value().Data().([]float64)) {
			t.Errorf("decoder learnable %v changed", i)
		}
	}
}
