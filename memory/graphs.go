package memory

import (
	"fmt"

	"github.com/samuelfneumann/memddpg/network"
	"github.com/samuelfneumann/memddpg/utils/op"
	"github.com/samuelfneumann/memddpg/utils/tensorutils"
	G "gorgonia.org/gorgonia"
)

// Layer layout shared by the encoder and decoder
func layers(c Config, outputs int) ([]int, []bool, []*network.Activation) {
	hiddenSizes := []int{c.HiddenDim, c.HiddenDim, outputs}
	biases := []bool{true, true, true}
	activations := []*network.Activation{
		network.Sigmoid(),
		network.Sigmoid(),
		network.Identity(),
	}
	return hiddenSizes, biases, activations
}

// encodeGraph computes the normalized row embeddings of a fixed number
// of records
type encodeGraph struct {
	network.Mirror
	g       *G.ExprGraph
	vm      G.VM
	input   *G.Node
	encoder *network.MLP

	embeddings G.Value
}

// newEncodeGraph returns an encodeGraph for rows records with the
// current weights of encoder
func newEncodeGraph(c Config, encoder *network.MLP, rows,
	version int) (*encodeGraph, error) {
	g := G.NewGraph()
	input := tensorutils.NewInput(g, rows, c.Features(), "records")

	clone, err := encoder.CloneTo("encoder", input)
	if err != nil {
		return nil, fmt.Errorf("newEncodeGraph: %v", err)
	}

	emb, err := op.Normalize(clone.Prediction(), c.Eps)
	if err != nil {
		return nil, fmt.Errorf("newEncodeGraph: %v", err)
	}

	graph := &encodeGraph{
		Mirror:  network.NewMirror(version),
		g:       g,
		input:   input,
		encoder: clone,
	}
	G.Read(emb, &graph.embeddings)
	graph.vm = G.NewTapeMachine(g)

	return graph, nil
}

// run returns the rows x HypoDim normalized embeddings of the records x
func (e *encodeGraph) run(x []float64) ([]float64, error) {
	if err := tensorutils.Let(e.input, x); err != nil {
		return nil, fmt.Errorf("run: could not set records: %v", err)
	}
	if err := e.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("run: %v", err)
	}
	defer e.vm.Reset()

	return tensorutils.Data(e.embeddings), nil
}

// decodeGraph reconstructs a fixed number of corrupted records, each
// under its own context vector
type decodeGraph struct {
	network.Mirror
	g       *G.ExprGraph
	vm      G.VM
	noisy   *G.Node
	clean   *G.Node
	context *G.Node
	decoder *network.MLP

	reconstruction G.Value
	loss           G.Value
}

// newDecodeGraph returns a decodeGraph for rows records with the
// current weights of decoder
func newDecodeGraph(c Config, decoder *network.MLP, rows,
	version int) (*decodeGraph, error) {
	g := G.NewGraph()
	noisy := tensorutils.NewInput(g, rows, c.Features(), "noisy")
	clean := tensorutils.NewInput(g, rows, c.Features(), "clean")
	context := tensorutils.NewInput(g, rows, c.HypoDim, "context")

	clone, err := decoder.CloneTo("decoder", noisy, context)
	if err != nil {
		return nil, fmt.Errorf("newDecodeGraph: %v", err)
	}

	loss, err := op.MSE(clone.Prediction(), clean)
	if err != nil {
		return nil, fmt.Errorf("newDecodeGraph: %v", err)
	}

	graph := &decodeGraph{
		Mirror:  network.NewMirror(version),
		g:       g,
		noisy:   noisy,
		clean:   clean,
		context: context,
		decoder: clone,
	}
	G.Read(clone.Prediction(), &graph.reconstruction)
	G.Read(loss, &graph.loss)
	graph.vm = G.NewTapeMachine(g)

	return graph, nil
}

// run returns the reconstruction of the clean records from the noisy
// records under the per-record contexts ctx, and the mean squared
// reconstruction error
func (d *decodeGraph) run(noisy, clean, ctx []float64) ([]float64, float64,
	error) {
	if err := tensorutils.Let(d.noisy, noisy); err != nil {
		return nil, 0, fmt.Errorf("run: could not set noisy records: %v", err)
	}
	if err := tensorutils.Let(d.clean, clean); err != nil {
		return nil, 0, fmt.Errorf("run: could not set records: %v", err)
	}
	if err := tensorutils.Let(d.context, ctx); err != nil {
		return nil, 0, fmt.Errorf("run: could not set context: %v", err)
	}

	if err := d.vm.RunAll(); err != nil {
		return nil, 0, fmt.Errorf("run: %v", err)
	}
	defer d.vm.Reset()

	return tensorutils.Data(d.reconstruction), d.loss.Data().(float64), nil
}

// trainGraph computes the self-supervised memory objective over a full
// batch of records. The encoder and decoder of the trainGraph hold the
// parameters of the memory.
//
// Splitting the batch at a variable point is done with pooling rows
// and per-row loss weights, so that a single graph serves every split.
type trainGraph struct {
	g  *G.ExprGraph
	vm G.VM

	encoder *network.MLP
	decoder *network.MLP

	records       *G.Node // B x F
	prefixNoisy   *G.Node // B x F, rows past the split are ignored
	fullNoisy     *G.Node // B x F
	prefixPool    *G.Node // 1 x B
	suffixPool    *G.Node // 1 x B
	prefixWeights *G.Node // B x 1
	prefixContext *G.Node // 1 x H, gradients are not propagated
	initial       *G.Node // 1 x H

	learnables G.Nodes
	model      []G.ValueGrad

	loss, prefixLoss, fullLoss, diversity G.Value
}

// newTrainGraph creates the memory parameters and the graph that
// trains them
func newTrainGraph(c Config, init G.InitWFn) (*trainGraph, error) {
	batch, features, hypo := c.BatchSize, c.Features(), c.HypoDim
	g := G.NewGraph()

	t := &trainGraph{
		g:             g,
		records:       tensorutils.NewInput(g, batch, features, "records"),
		prefixNoisy:   tensorutils.NewInput(g, batch, features, "prefixNoisy"),
		fullNoisy:     tensorutils.NewInput(g, batch, features, "fullNoisy"),
		prefixPool:    tensorutils.NewInput(g, 1, batch, "prefixPool"),
		suffixPool:    tensorutils.NewInput(g, 1, batch, "suffixPool"),
		prefixWeights: tensorutils.NewInput(g, batch, 1, "prefixWeights"),
		prefixContext: tensorutils.NewInput(g, 1, hypo, "prefixContext"),
		initial:       tensorutils.NewInput(g, 1, hypo, "initialContext"),
	}

	// Encoder
	hiddenSizes, biases, activations := layers(c, hypo)
	encoder, err := network.NewMLP([]*G.Node{t.records}, hiddenSizes,
		biases, init, activations, "encoder")
	if err != nil {
		return nil, fmt.Errorf("newTrainGraph: could not create encoder: %v",
			err)
	}
	t.encoder = encoder
	emb, err := op.Normalize(encoder.Prediction(), c.Eps)
	if err != nil {
		return nil, fmt.Errorf("newTrainGraph: %v", err)
	}

	// Context of the prefix, and of the suffix given the prefix
	prefixCtx := G.Must(G.Mul(t.prefixPool, emb))
	prefixCtx = G.Must(op.Normalize(prefixCtx, c.Eps))

	fullCtx := G.Must(G.Mul(t.suffixPool, emb))
	fullCtx = G.Must(G.Add(fullCtx, t.prefixContext))
	fullCtx = G.Must(op.Normalize(fullCtx, c.Eps))

	// Decoder, applied to the prefix and the full batch
	hiddenSizes, biases, activations = layers(c, features)
	decoder, err := network.NewMLP(
		[]*G.Node{t.prefixNoisy, G.Must(op.Tile(prefixCtx, batch))},
		hiddenSizes, biases, init, activations, "decoder",
	)
	if err != nil {
		return nil, fmt.Errorf("newTrainGraph: could not create decoder: %v",
			err)
	}
	t.decoder = decoder

	fullInput := G.Must(G.Concat(1, t.fullNoisy,
		G.Must(op.Tile(fullCtx, batch))))
	fullRecon, err := decoder.Fwd(fullInput)
	if err != nil {
		return nil, fmt.Errorf("newTrainGraph: %v", err)
	}

	// Losses
	prefixErr := G.Must(G.Sub(decoder.Prediction(), t.records))
	prefixLoss := G.Must(op.RowSquaredNorms(prefixErr))
	prefixLoss = G.Must(G.HadamardProd(prefixLoss, t.prefixWeights))
	prefixLoss = G.Must(G.Sum(prefixLoss))

	fullLoss := G.Must(op.MSE(fullRecon, t.records))

	diversity := G.Must(G.Add(
		G.Must(op.MSE(prefixCtx, t.initial)),
		G.Must(op.MSE(fullCtx, t.initial)),
	))
	diversity = G.Must(G.Neg(diversity))

	loss := G.Must(G.Add(prefixLoss, fullLoss))
	loss = G.Must(G.Add(loss, diversity))

	G.Read(loss, &t.loss)
	G.Read(prefixLoss, &t.prefixLoss)
	G.Read(fullLoss, &t.fullLoss)
	G.Read(diversity, &t.diversity)

	t.learnables = append(G.Nodes{}, encoder.Learnables()...)
	t.learnables = append(t.learnables, decoder.Learnables()...)
	t.model = network.Model(t)

	if _, err := G.Grad(loss, t.learnables...); err != nil {
		return nil, fmt.Errorf("newTrainGraph: could not compute "+
			"gradient: %v", err)
	}
	t.vm = G.NewTapeMachine(g, G.BindDualValues(t.learnables...))

	return t, nil
}

// Learnables returns the encoder and decoder parameters
func (t *trainGraph) Learnables() G.Nodes {
	return t.learnables
}

// setSplit sets the pooling rows and loss weights for a batch whose
// prefix is the first split records
func (t *trainGraph) setSplit(split int, features int) error {
	batch := t.records.Shape()[0]

	prefixPool := make([]float64, batch)
	suffixPool := make([]float64, batch)
	weights := make([]float64, batch)
	for i := 0; i < batch; i++ {
		if i < split {
			prefixPool[i] = 1 / float64(split)
			weights[i] = 1 / float64(split*features)
		} else {
			suffixPool[i] = 1 / float64(batch-split)
		}
	}

	if err := tensorutils.Let(t.prefixPool, prefixPool); err != nil {
		return err
	}
	if err := tensorutils.Let(t.suffixPool, suffixPool); err != nil {
		return err
	}
	return tensorutils.Let(t.prefixWeights, weights)
}
