// Package memory implements a feed-forward autoencoding memory. The
// memory summarizes a set of (observation, action, reward) records
// into a single unit-norm context vector, and learns to do so by
// reconstructing corrupted records from their context.
package memory

import (
	"fmt"

	"github.com/samuelfneumann/memddpg/network"
	"github.com/samuelfneumann/memddpg/solver"
	"github.com/samuelfneumann/memddpg/utils/floatutils"
	"github.com/samuelfneumann/memddpg/utils/tensorutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
)

// Metrics are the losses of a single memory training step
type Metrics struct {
	Loss       float64 // PrefixLoss + FullLoss + Diversity
	PrefixLoss float64
	FullLoss   float64
	Diversity  float64
}

// FFW is a feed-forward memory. Each record is embedded by an MLP
// encoder, embeddings are mean-pooled into a context vector, and an
// MLP decoder reconstructs records given the context.
//
// Forward-only computations run on per-size graphs holding copies of
// the parameters, which are refreshed after each training step.
type FFW struct {
	config Config
	rng    *rand.Rand
	noise  distuv.Normal

	train   *trainGraph
	solver  *solver.Solver
	version int

	encoders map[int]*encodeGraph
	decoders map[int]*decodeGraph
}

// New returns a new FFW memory. Weights are initialized with init and
// trained with s, which must not be shared with any other set of
// parameters.
func New(c Config, init G.InitWFn, s *solver.Solver) (*FFW, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	train, err := newTrainGraph(c, init)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	src := rand.NewSource(c.Seed)
	return &FFW{
		config:   c,
		rng:      rand.New(src),
		noise:    distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		train:    train,
		solver:   s,
		encoders: make(map[int]*encodeGraph),
		decoders: make(map[int]*decodeGraph),
	}, nil
}

// Config returns the configuration of the memory
func (f *FFW) Config() Config {
	return f.config
}

// Learnables returns the encoder and decoder parameters of the memory
func (f *FFW) Learnables() G.Nodes {
	return f.train.Learnables()
}

// Decoder returns the decoder network holding the memory's decoder
// parameters
func (f *FFW) Decoder() *network.MLP {
	return f.train.decoder
}

// Version returns the number of training steps taken by the memory
func (f *FFW) Version() int {
	return f.version
}

// Records concatenates n observations, actions, and rewards into the
// row-major n x Features() matrix of records and returns it with n.
func (f *FFW) Records(obs, act, rew []float64) ([]float64, int, error) {
	n := len(rew)
	if n == 0 {
		return nil, 0, fmt.Errorf("records: no records given")
	}
	if len(obs) != n*f.config.StateDim {
		return nil, 0, fmt.Errorf("records: invalid observations size for "+
			"%v records\n\twant(%v)\n\thave(%v)", n, n*f.config.StateDim,
			len(obs))
	}
	if len(act) != n*f.config.ActionDim {
		return nil, 0, fmt.Errorf("records: invalid actions size for "+
			"%v records\n\twant(%v)\n\thave(%v)", n, n*f.config.ActionDim,
			len(act))
	}

	sd, ad := f.config.StateDim, f.config.ActionDim
	features := f.config.Features()
	x := make([]float64, 0, n*features)
	for i := 0; i < n; i++ {
		x = append(x, obs[i*sd:(i+1)*sd]...)
		x = append(x, act[i*ad:(i+1)*ad]...)
		x = append(x, rew[i])
	}
	return x, n, nil
}

// Encode summarizes n records into a unit-norm context vector. If prev
// is not nil, the mean embedding is added to prev before normalizing,
// so that Encode(b2, Encode(b1, nil)) approximates Encode(b1 ++ b2, nil).
// No gradient information flows into prev.
func (f *FFW) Encode(obs, act, rew, prev []float64) ([]float64, error) {
	if prev != nil && len(prev) != f.config.HypoDim {
		return nil, fmt.Errorf("encode: prev shape does not match: "+
			"want(%v) have(%v)", f.config.HypoDim, len(prev))
	}

	x, n, err := f.Records(obs, act, rew)
	if err != nil {
		return nil, fmt.Errorf("encode: %v", err)
	}

	emb, err := f.embed(x, n)
	if err != nil {
		return nil, fmt.Errorf("encode: %v", err)
	}

	window := make([]int, n)
	for i := range window {
		window[i] = i
	}
	return f.pool(emb, window, prev), nil
}

// SampleEncode computes one context per record of a batch of B
// records, each pooling a window of miniBatch records that contains
// the record itself. Windows are drawn uniformly at random and shifted
// so that their smallest index is the record's own index, modulo B.
// If miniBatch <= 0, B / 2 is used. If miniBatch >= B, every window is
// the whole batch and every context is the summary of the batch.
//
// The prev argument may be nil, a single context added to every
// window's summary, or B row-major contexts, one per record.
// The returned matrix is B x HypoDim.
func (f *FFW) SampleEncode(obs, act, rew []float64, miniBatch int,
	prev []float64) (*mat.Dense, error) {
	x, n, err := f.Records(obs, act, rew)
	if err != nil {
		return nil, fmt.Errorf("sampleEncode: %v", err)
	}

	hypo := f.config.HypoDim
	if prev != nil && len(prev) != hypo && len(prev) != n*hypo {
		return nil, fmt.Errorf("sampleEncode: prev shape does not match: "+
			"want(%v or %v) have(%v)", hypo, n*hypo, len(prev))
	}

	if miniBatch <= 0 {
		miniBatch = n / 2
		if miniBatch < 1 {
			miniBatch = 1
		}
	}

	emb, err := f.embed(x, n)
	if err != nil {
		return nil, fmt.Errorf("sampleEncode: %v", err)
	}

	contexts := mat.NewDense(n, hypo, nil)
	for i := 0; i < n; i++ {
		var rowPrev []float64
		if len(prev) == hypo {
			rowPrev = prev
		} else if prev != nil {
			rowPrev = prev[i*hypo : (i+1)*hypo]
		}

		ctx := f.pool(emb, f.window(i, n, miniBatch), rowPrev)
		contexts.SetRow(i, ctx)
	}
	return contexts, nil
}

// window returns the indices of the records pooled into the context
// of record i of a batch of n records
func (f *FFW) window(i, n, size int) []int {
	indices := make([]int, 0, size)
	if size >= n {
		for j := 0; j < n; j++ {
			indices = append(indices, (i+j)%n)
		}
		return indices
	}

	min := n
	for j := 0; j < size; j++ {
		index := f.rng.Intn(n)
		indices = append(indices, index)
		if index < min {
			min = index
		}
	}
	for j := range indices {
		indices[j] = (indices[j] - min + i) % n
	}
	return indices
}

// Decode reconstructs n records given either a single context vector,
// used for every record, or n row-major contexts, one per record. Each
// feature of the records is first corrupted by Gaussian noise scaled
// by the feature's range over the records and by AENoise. Decode
// returns the n x Features() reconstruction and the mean squared error
// between the reconstruction and the uncorrupted records.
func (f *FFW) Decode(obs, act, rew, ctx []float64) (*mat.Dense, float64,
	error) {
	x, n, err := f.Records(obs, act, rew)
	if err != nil {
		return nil, 0, fmt.Errorf("decode: %v", err)
	}

	hypo := f.config.HypoDim
	switch len(ctx) {
	case n * hypo:
	case hypo:
		tiled := make([]float64, 0, n*hypo)
		for i := 0; i < n; i++ {
			tiled = append(tiled, ctx...)
		}
		ctx = tiled
	default:
		return nil, 0, fmt.Errorf("decode: context shape does not match: "+
			"want(%v or %v) have(%v)", hypo, n*hypo, len(ctx))
	}

	graph, ok := f.decoders[n]
	if !ok {
		graph, err = newDecodeGraph(f.config, f.train.decoder, n, f.version)
		if err != nil {
			return nil, 0, fmt.Errorf("decode: %v", err)
		}
		f.decoders[n] = graph
	}
	if err := graph.Sync(graph.decoder, f.train.decoder, f.version); err != nil {
		return nil, 0, fmt.Errorf("decode: %v", err)
	}

	recon, loss, err := graph.run(f.Corrupt(x, n), x, ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("decode: %v", err)
	}
	return mat.NewDense(n, f.config.Features(), recon), loss, nil
}

// TrainStep takes one optimization step of the memory on a batch of
// BatchSize records split after the first split records.
//
// The prefix is encoded and reconstructed from its own context. The
// suffix is then encoded on top of the prefix's context, with no
// gradient flowing through the prefix's context along that path, and
// the whole batch is reconstructed from the result. Both contexts are
// pushed away from initial, which is treated as a constant.
func (f *FFW) TrainStep(obs, act, rew []float64, split int,
	initial []float64) (Metrics, error) {
	if err := f.feed(obs, act, rew, split, initial); err != nil {
		return Metrics{}, fmt.Errorf("trainStep: %v", err)
	}

	t := f.train
	if err := t.vm.RunAll(); err != nil {
		return Metrics{}, fmt.Errorf("trainStep: %v", err)
	}
	if err := f.solver.Step(t.model); err != nil {
		return Metrics{}, fmt.Errorf("trainStep: could not step solver: %v",
			err)
	}
	t.vm.Reset()
	f.version++

	return Metrics{
		Loss:       t.loss.Data().(float64),
		PrefixLoss: t.prefixLoss.Data().(float64),
		FullLoss:   t.fullLoss.Data().(float64),
		Diversity:  t.diversity.Data().(float64),
	}, nil
}

// feed sets the inputs of the training graph for a batch split after
// the first split records
func (f *FFW) feed(obs, act, rew []float64, split int,
	initial []float64) error {
	x, n, err := f.Records(obs, act, rew)
	if err != nil {
		return err
	}
	if n != f.config.BatchSize {
		return fmt.Errorf("invalid batch size\n\twant(%v)\n\thave(%v)",
			f.config.BatchSize, n)
	}
	if split < 1 || split >= n {
		return fmt.Errorf("split %v must be in [1, %v)", split, n)
	}
	if len(initial) != f.config.HypoDim {
		return fmt.Errorf("initial context shape does not match: "+
			"want(%v) have(%v)", f.config.HypoDim, len(initial))
	}

	// The prefix context enters the suffix's context as a constant.
	// Records are embedded independently, so the prefix embeddings are
	// the first rows of the batch embeddings.
	features := f.config.Features()
	emb, err := f.embed(x, n)
	if err != nil {
		return err
	}
	window := make([]int, split)
	for i := range window {
		window[i] = i
	}
	prefixCtx := f.pool(emb, window, nil)

	prefix := x[:split*features]

	// Prefix records are corrupted based on the prefix alone
	prefixNoisy := append(f.Corrupt(prefix, split), x[split*features:]...)
	fullNoisy := f.Corrupt(x, n)

	t := f.train
	inputs := []struct {
		node *G.Node
		data []float64
	}{
		{t.records, x},
		{t.prefixNoisy, prefixNoisy},
		{t.fullNoisy, fullNoisy},
		{t.prefixContext, prefixCtx},
		{t.initial, append([]float64(nil), initial...)},
	}
	for _, input := range inputs {
		if err := tensorutils.Let(input.node, input.data); err != nil {
			return fmt.Errorf("could not set %v: %v", input.node.Name(), err)
		}
	}
	return t.setSplit(split, features)
}

// Corrupt returns a copy of the n row-major records x with Gaussian
// noise added. The noise of each feature is scaled by the range of the
// feature over the n records and by AENoise.
func (f *FFW) Corrupt(x []float64, n int) []float64 {
	noisy := append([]float64(nil), x...)
	if f.config.AENoise == 0 {
		return noisy
	}

	features := f.config.Features()
	column := make([]float64, n)
	scale := make([]float64, features)
	for j := 0; j < features; j++ {
		for i := 0; i < n; i++ {
			column[i] = x[i*features+j]
		}
		scale[j] = (floatutils.Max(column...) - floatutils.Min(column...)) *
			f.config.AENoise
	}

	for i := range noisy {
		noisy[i] += f.noise.Rand() * scale[i%features]
	}
	return noisy
}

// embed returns the n x HypoDim normalized embeddings of n records
func (f *FFW) embed(x []float64, n int) ([]float64, error) {
	graph, ok := f.encoders[n]
	if !ok {
		var err error
		graph, err = newEncodeGraph(f.config, f.train.encoder, n, f.version)
		if err != nil {
			return nil, err
		}
		f.encoders[n] = graph
	}
	if err := graph.Sync(graph.encoder, f.train.encoder, f.version); err != nil {
		return nil, err
	}

	return graph.run(x)
}

// pool mean-pools the embeddings at the given row indices. If prev is
// not nil, the mean is added to prev before the result is normalized.
func (f *FFW) pool(emb []float64, indices []int, prev []float64) []float64 {
	hypo := f.config.HypoDim
	ctx := make([]float64, hypo)
	for _, i := range indices {
		floats.Add(ctx, emb[i*hypo:(i+1)*hypo])
	}
	floats.Scale(1/float64(len(indices)), ctx)

	if prev != nil {
		floats.Add(ctx, prev)
	}
	normalize(ctx, f.config.Eps)
	return ctx
}

// normalize scales v in place to v / max(‖v‖, eps)
func normalize(v []float64, eps float64) {
	norm := floats.Norm(v, 2)
	if norm < eps {
		norm = eps
	}
	floats.Scale(1/norm, v)
}
