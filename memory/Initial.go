package memory

import (
	"fmt"

	"github.com/samuelfneumann/memddpg/network"
	"github.com/samuelfneumann/memddpg/solver"
	"github.com/samuelfneumann/memddpg/utils/op"
	"github.com/samuelfneumann/memddpg/utils/tensorutils"
	G "gorgonia.org/gorgonia"
)

// InitialContext is a learned context vector, used as the context of
// an empty history. It is trained to minimize the reconstruction error
// of a memory's decoder on batches of records, so that it summarizes
// what a typical record looks like before anything has been observed.
//
// The initial context is zero-initialized and is not normalized.
type InitialContext struct {
	network.Mirror
	memory *FFW
	solver *solver.Solver

	g       *G.ExprGraph
	vm      G.VM
	context *G.Node // 1 x HypoDim
	noisy   *G.Node
	clean   *G.Node
	decoder *network.MLP

	model []G.ValueGrad
	loss  G.Value
}

// NewInitialContext returns a new InitialContext for the memory f,
// trained on batches of f's batch size with s. The solver s must not
// be shared with any other set of parameters.
func NewInitialContext(f *FFW, s *solver.Solver) (*InitialContext, error) {
	c := f.Config()
	g := G.NewGraph()

	i := &InitialContext{
		Mirror:  network.NewMirror(f.Version()),
		memory:  f,
		solver:  s,
		g:       g,
		context: tensorutils.NewInput(g, 1, c.HypoDim, "initialContext"),
		noisy:   tensorutils.NewInput(g, c.BatchSize, c.Features(), "noisy"),
		clean:   tensorutils.NewInput(g, c.BatchSize, c.Features(), "clean"),
	}

	tiled, err := op.Tile(i.context, c.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("newInitialContext: %v", err)
	}
	i.decoder, err = f.Decoder().CloneTo("decoder", i.noisy, tiled)
	if err != nil {
		return nil, fmt.Errorf("newInitialContext: %v", err)
	}

	loss, err := op.MSE(i.decoder.Prediction(), i.clean)
	if err != nil {
		return nil, fmt.Errorf("newInitialContext: %v", err)
	}
	G.Read(loss, &i.loss)

	if _, err := G.Grad(loss, i.context); err != nil {
		return nil, fmt.Errorf("newInitialContext: could not compute "+
			"gradient: %v", err)
	}
	i.model = network.Model(i)
	i.vm = G.NewTapeMachine(g, G.BindDualValues(i.context))

	return i, nil
}

// Learnables returns the initial context node
func (i *InitialContext) Learnables() G.Nodes {
	return G.Nodes{i.context}
}

// Value returns a copy of the initial context
func (i *InitialContext) Value() []float64 {
	return network.Params(i)[0]
}

// Step takes one optimization step of the initial context on a batch
// of records, using the current decoder of the memory. The decoder's
// parameters are not changed.
func (i *InitialContext) Step(obs, act, rew []float64) (float64, error) {
	x, n, err := i.memory.Records(obs, act, rew)
	if err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if n != i.clean.Shape()[0] {
		return 0, fmt.Errorf("step: invalid batch size\n\twant(%v)\n\t"+
			"have(%v)", i.clean.Shape()[0], n)
	}

	err = i.Sync(i.decoder, i.memory.Decoder(), i.memory.Version())
	if err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}

	if err := tensorutils.Let(i.noisy, i.memory.Corrupt(x, n)); err != nil {
		return 0, fmt.Errorf("step: could not set noisy records: %v", err)
	}
	if err := tensorutils.Let(i.clean, x); err != nil {
		return 0, fmt.Errorf("step: could not set records: %v", err)
	}

	if err := i.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if err := i.solver.Step(i.model); err != nil {
		return 0, fmt.Errorf("step: could not step solver: %v", err)
	}
	i.vm.Reset()

	return i.loss.Data().(float64), nil
}
