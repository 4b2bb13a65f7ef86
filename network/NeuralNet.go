// Package network implements feed forward neural networks on Gorgonia
// computational graphs, together with functions to copy, blend, and
// serialize their parameters.
package network

import (
	"encoding/gob"
	"fmt"
	"io"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Parameterized is any function approximator with learnable nodes.
// Two Parameterized values are compatible if their learnables have the
// same number and shapes, in the same order.
type Parameterized interface {
	Learnables() G.Nodes
}

// Model returns the learnables of p as a Gorgonia model, ready to be
// stepped by a Solver
func Model(p Parameterized) []G.ValueGrad {
	learnables := p.Learnables()
	model := make([]G.ValueGrad, 0, len(learnables))
	for _, node := range learnables {
		model = append(model, node)
	}
	return model
}

// Set sets the weights of dest to be equal to the weights of source
func Set(dest, source Parameterized) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(nodes) != len(sourceNodes) {
		return fmt.Errorf("set: incompatible number of learnables\n\t"+
			"want(%v)\n\thave(%v)", len(nodes), len(sourceNodes))
	}

	for i, destLearnable := range nodes {
		sourceValue := sourceNodes[i].Value().(*tensor.Dense)
		if !sourceValue.Shape().Eq(destLearnable.Shape()) {
			return fmt.Errorf("set: incompatible shapes for learnable %v"+
				"\n\twant(%v)\n\thave(%v)", i, destLearnable.Shape(),
				sourceValue.Shape())
		}

		err := G.Let(destLearnable, sourceValue.Clone().(*tensor.Dense))
		if err != nil {
			return fmt.Errorf("set: %v", err)
		}
	}
	return nil
}

// Polyak sets the weights of dest to be a polyak average between its
// existing weights and the weights of source:
//
//	dest <- tau * source + (1 - tau) * dest
func Polyak(dest, source Parameterized, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(nodes) != len(sourceNodes) {
		return fmt.Errorf("polyak: incompatible number of learnables\n\t"+
			"want(%v)\n\thave(%v)", len(nodes), len(sourceNodes))
	}

	for i := range nodes {
		weights := nodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		newWeights, err := Blend(sourceWeights, weights, tau)
		if err != nil {
			return fmt.Errorf("polyak: learnable %v: %v", i, err)
		}

		if err := G.Let(nodes[i], newWeights); err != nil {
			return fmt.Errorf("polyak: %v", err)
		}
	}
	return nil
}

// Blend returns tau * online + (1 - tau) * target as a new tensor.
// Neither argument is modified.
func Blend(online, target *tensor.Dense, tau float64) (*tensor.Dense,
	error) {
	if tau < 0 || tau > 1 {
		return nil, fmt.Errorf("blend: tau must be in [0, 1], have(%v)", tau)
	}

	weights, err := target.MulScalar(1-tau, true)
	if err != nil {
		return nil, err
	}

	sourceWeights, err := online.MulScalar(tau, true)
	if err != nil {
		return nil, err
	}

	return weights.Add(sourceWeights)
}

// Params returns a copy of the values of the learnables of p
func Params(p Parameterized) [][]float64 {
	learnables := p.Learnables()
	params := make([][]float64, len(learnables))
	for i, node := range learnables {
		data := node.Value().Data().([]float64)
		params[i] = append([]float64(nil), data...)
	}
	return params
}

// SetParams sets the values of the learnables of p. The values are
// copied.
func SetParams(p Parameterized, params [][]float64) error {
	learnables := p.Learnables()
	if len(learnables) != len(params) {
		return fmt.Errorf("setParams: incompatible number of learnables\n\t"+
			"want(%v)\n\thave(%v)", len(learnables), len(params))
	}

	for i, node := range learnables {
		if node.Shape().TotalSize() != len(params[i]) {
			return fmt.Errorf("setParams: incompatible size for learnable %v"+
				"\n\twant(%v)\n\thave(%v)", i, node.Shape().TotalSize(),
				len(params[i]))
		}

		backing := append([]float64(nil), params[i]...)
		value := tensor.New(
			tensor.WithShape(node.Shape()...),
			tensor.WithBacking(backing),
		)
		if err := G.Let(node, value); err != nil {
			return fmt.Errorf("setParams: %v", err)
		}
	}
	return nil
}

// paramsGob is the serialized form of the parameters of a network
type paramsGob struct {
	Shapes [][]int
	Values [][]float64
}

// Encode gob encodes the parameters of p to w
func Encode(w io.Writer, p Parameterized) error {
	learnables := p.Learnables()
	shapes := make([][]int, len(learnables))
	for i, node := range learnables {
		shapes[i] = append([]int(nil), node.Shape()...)
	}

	enc := gob.NewEncoder(w)
	err := enc.Encode(paramsGob{Shapes: shapes, Values: Params(p)})
	if err != nil {
		return fmt.Errorf("encode: could not encode parameters: %v", err)
	}
	return nil
}

// Decode decodes parameters that were gob encoded with Encode from r
// into p. The parameters must have the same shapes as those of p.
func Decode(r io.Reader, p Parameterized) error {
	params, err := ReadParams(r, p)
	if err != nil {
		return err
	}
	return SetParams(p, params)
}

// ReadParams decodes parameters that were gob encoded with Encode from
// r and checks that they fit p, without changing p
func ReadParams(r io.Reader, p Parameterized) ([][]float64, error) {
	var decoded paramsGob
	if err := gob.NewDecoder(r).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode: could not decode parameters: %v", err)
	}

	learnables := p.Learnables()
	if len(decoded.Shapes) != len(learnables) {
		return nil, fmt.Errorf("decode: incompatible number of learnables"+
			"\n\twant(%v)\n\thave(%v)", len(learnables), len(decoded.Shapes))
	}
	for i, node := range learnables {
		if !node.Shape().Eq(tensor.Shape(decoded.Shapes[i])) {
			return nil, fmt.Errorf("decode: incompatible shapes for "+
				"learnable %v\n\twant(%v)\n\thave(%v)", i, node.Shape(),
				decoded.Shapes[i])
		}
	}
	return decoded.Values, nil
}

// Mirror tracks a copy of the parameters of a source network that
// lives in another computational graph. The copy is refreshed lazily,
// only when the source has changed since the last refresh.
type Mirror struct {
	version int
}

// NewMirror returns a Mirror of a source at the given version
func NewMirror(version int) Mirror {
	return Mirror{version: version}
}

// Sync copies the parameters of source into dest if version is newer
// than the last synced version
func (m *Mirror) Sync(dest, source Parameterized, version int) error {
	if m.version == version {
		return nil
	}
	if err := Set(dest, source); err != nil {
		return fmt.Errorf("sync: %v", err)
	}
	m.version = version
	return nil
}
