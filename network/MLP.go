package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// MLP implements a multi-layered perceptron whose input node is given
// at construction. The MLP computes its forward pass on the input node
// when created, and can apply its layers to any other node of the same
// graph with Fwd, so that a single set of weights can be used at
// several places in a computational graph.
type MLP struct {
	g         *G.ExprGraph
	layers    []*fcLayer
	input     *G.Node
	numInputs int
	batchSize int
	prefix    string

	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMLP creates and returns a new multi-layered perceptron in the
// graph of the input nodes. If multiple input nodes are given, they are
// first concatenated along the feature (column) dimension. All input
// nodes must be matrices with the same number of rows.
//
// The MLP has len(hiddenSizes) layers: for index i, hiddenSizes[i] is
// the number of nodes in layer i; biases[i] is true if the layer
// contains a bias unit; and activations[i] is the activation function
// for layer i. The last entry of hiddenSizes is therefore the output
// size of the network. The parameter init determines the weight
// initialization scheme and prefix is prepended to the names of all
// weight nodes. Prefixes must be unique within a graph.
func NewMLP(inputs []*G.Node, hiddenSizes []int, biases []bool,
	init G.InitWFn, activations []*Activation, prefix string) (*MLP, error) {
	if len(hiddenSizes) == 0 {
		return nil, fmt.Errorf("newMLP: at least one layer is required")
	}

	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newMLP: invalid number of activations\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(hiddenSizes) != len(biases) {
		msg := "newMLP: invalid number of biases\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	input, err := concatInputs(inputs)
	if err != nil {
		return nil, fmt.Errorf("newMLP: %v", err)
	}

	features := input.Shape()[1]
	layers := addfcLayers(input.Graph(), features, hiddenSizes, biases,
		activations, init, prefix)

	return newMLPFromLayers(input, layers, hiddenSizes, biases, activations,
		prefix)
}

// newMLPFromLayers creates an MLP from existing layers and runs the
// forward pass on the input node
func newMLPFromLayers(input *G.Node, layers []*fcLayer, hiddenSizes []int,
	biases []bool, activations []*Activation, prefix string) (*MLP, error) {
	net := &MLP{
		g:           input.Graph(),
		layers:      layers,
		input:       input,
		numInputs:   input.Shape()[1],
		batchSize:   input.Shape()[0],
		prefix:      prefix,
		hiddenSizes: hiddenSizes,
		biases:      biases,
		activations: activations,
	}

	pred, err := net.Fwd(input)
	if err != nil {
		return nil, fmt.Errorf("newMLP: could not compute forward pass: %v",
			err)
	}
	net.prediction = pred
	G.Read(net.prediction, &net.predVal)

	return net, nil
}

// concatInputs concatenates input nodes along the feature dimension
func concatInputs(inputs []*G.Node) (*G.Node, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no input nodes given")
	}

	for _, input := range inputs {
		if input.Graph() != inputs[0].Graph() {
			return nil, fmt.Errorf("not all inputs have the same graph")
		}
		if !input.IsMatrix() {
			return nil, fmt.Errorf("input %v must be a matrix", input.Name())
		}
	}

	if len(inputs) == 1 {
		return inputs[0], nil
	}
	return G.Concat(1, inputs...)
}

// CloneTo clones the MLP to the graph of the given input nodes. The
// inputs may have a different batch size than the original input, but
// must have the same number of features. The clone holds a copy of the
// current weights of the MLP.
func (m *MLP) CloneTo(prefix string, inputs ...*G.Node) (*MLP, error) {
	input, err := concatInputs(inputs)
	if err != nil {
		return nil, fmt.Errorf("cloneTo: %v", err)
	}

	if input.Shape()[1] != m.numInputs {
		msg := "cloneTo: invalid number of input features\n\twant(%v)" +
			"\n\thave(%v)"
		return nil, fmt.Errorf(msg, m.numInputs, input.Shape()[1])
	}

	layers := make([]*fcLayer, len(m.layers))
	for i := range m.layers {
		name := fmt.Sprintf("%vL%d", prefix, i)
		layers[i] = m.layers[i].cloneTo(input.Graph(), name)
	}

	return newMLPFromLayers(input, layers, m.hiddenSizes, m.biases,
		m.activations, prefix)
}

// Fwd applies the layers of the MLP to a node of the MLP's graph and
// returns the output node. The MLP's own prediction is not changed.
func (m *MLP) Fwd(input *G.Node) (*G.Node, error) {
	if input.Graph() != m.g {
		return nil, fmt.Errorf("fwd: input is not in the network's graph")
	}

	features := input.Shape()[len(input.Shape())-1]
	if features != m.numInputs {
		return nil, fmt.Errorf("fwd: invalid shape for input to neural net:"+
			" \n\twant(%v) \n\thave(%v)", m.numInputs, features)
	}

	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	return pred, nil
}

// Graph returns the computational graph of the MLP.
func (m *MLP) Graph() *G.ExprGraph {
	return m.g
}

// BatchSize returns the number of rows of the input node
func (m *MLP) BatchSize() int {
	return m.batchSize
}

// Features returns the number of features in a single input row
func (m *MLP) Features() int {
	return m.numInputs
}

// Outputs returns the number of outputs from the network
func (m *MLP) Outputs() int {
	return m.hiddenSizes[len(m.hiddenSizes)-1]
}

// Input returns the input node of the MLP
func (m *MLP) Input() *G.Node {
	return m.input
}

// Learnables returns the learnable nodes in an MLP
func (m *MLP) Learnables() G.Nodes {
	// Lazy instantiation
	if m.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(m.layers))
		for i := range m.layers {
			learnables = append(learnables, m.layers[i].weights)
			if bias := m.layers[i].bias; bias != nil {
				learnables = append(learnables, bias)
			}
		}
		m.learnables = G.Nodes(learnables)
	}
	return m.learnables
}

// Model returns the learnables nodes with their gradients.
func (m *MLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if m.model == nil {
		m.model = Model(m)
	}
	return m.model
}

// Output returns the output of the MLP computed in the last run of
// a VM on the MLP's graph
func (m *MLP) Output() G.Value {
	return m.predVal
}

// Prediction returns the node of the computational graph the stores
// the output of the MLP
func (m *MLP) Prediction() *G.Node {
	return m.prediction
}
