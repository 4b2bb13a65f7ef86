// Package tensorutils provides helpers for moving row-major []float64
// data in and out of Gorgonia computational graphs.
package tensorutils

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NewInput returns a new rows x cols zero-initialized input matrix in g
func NewInput(g *G.ExprGraph, rows, cols int, name string) *G.Node {
	return G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(rows, cols),
		G.WithName(name),
		G.WithInit(G.Zeroes()),
	)
}

// Let sets the value of node to the row-major data, which must have
// exactly as many elements as node. The data is not copied.
func Let(node *G.Node, data []float64) error {
	if size := node.Shape().TotalSize(); size != len(data) {
		return fmt.Errorf("let: invalid size for node %v\n\twant(%v)"+
			"\n\thave(%v)", node.Name(), size, len(data))
	}

	value := tensor.New(
		tensor.WithShape(node.Shape()...),
		tensor.WithBacking(data),
	)
	return G.Let(node, value)
}

// Data returns a copy of the data of a float64 tensor value
func Data(v G.Value) []float64 {
	return append([]float64(nil), v.Data().([]float64)...)
}
