package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newfcLayer adds the weights of a new fully connected layer to g
func newfcLayer(g *G.ExprGraph, in, out int, bias bool, act *Activation,
	init G.InitWFn, name string) *fcLayer {
	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithName(name+"W"),
		G.WithInit(init),
	)

	var b *G.Node
	if bias {
		b = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(1, out),
			G.WithName(name+"B"),
			G.WithInit(G.Zeroes()),
		)
	}

	return &fcLayer{
		weights: weights,
		bias:    b,
		act:     act,
	}
}

// addfcLayers creates one fully connected layer per hidden size, where
// the first layer takes features inputs
func addfcLayers(g *G.ExprGraph, features int, hiddenSizes []int,
	biases []bool, activations []*Activation, init G.InitWFn,
	prefix string) []*fcLayer {
	layers := make([]*fcLayer, len(hiddenSizes))

	in := features
	for i, out := range hiddenSizes {
		name := fmt.Sprintf("%vL%d", prefix, i)
		layers[i] = newfcLayer(g, in, out, biases[i], activations[i], init,
			name)
		in = out
	}

	return layers
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not multiply weights: %v", err)
	}

	if f.bias != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0})
		if err != nil {
			return nil, fmt.Errorf("fwd: could not add bias: %v", err)
		}
	}

	return f.act.fwd(x)
}

// cloneTo clones an fcLayer to a computational graph, naming its
// weights with name. The clone holds a copy of the layer's current
// weights.
func (f *fcLayer) cloneTo(g *G.ExprGraph, name string) *fcLayer {
	var newBias *G.Node
	if f.bias != nil {
		newBias = cloneNodeTo(g, f.bias, name+"B")
	}

	return &fcLayer{
		weights: cloneNodeTo(g, f.weights, name+"W"),
		bias:    newBias,
		act:     f.act,
	}
}

// cloneNodeTo creates a new node in g with the same shape and a copy of
// the value of node
func cloneNodeTo(g *G.ExprGraph, node *G.Node, name string) *G.Node {
	value := node.Value().(*tensor.Dense).Clone().(*tensor.Dense)

	return G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(node.Shape()...),
		G.WithName(name),
		G.WithValue(value),
	)
}
