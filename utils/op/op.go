// Package op provides extended Gorgonia graph operations.
package op

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Ones returns a rows x cols matrix node of ones in graph g.
func Ones(g *G.ExprGraph, rows, cols int) *G.Node {
	return G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(rows, cols),
		G.WithName(fmt.Sprintf("ones%dx%d", rows, cols)),
		G.WithInit(G.Ones()),
	)
}

// RowSquaredNorms returns the n x 1 matrix of squared L2 norms of the
// rows of the n x m matrix x
func RowSquaredNorms(x *G.Node) (*G.Node, error) {
	if !x.IsMatrix() {
		return nil, fmt.Errorf("rowSquaredNorms: input must be a matrix")
	}

	sq, err := G.Square(x)
	if err != nil {
		return nil, fmt.Errorf("rowSquaredNorms: %v", err)
	}

	// Summing over columns as a matrix product keeps the result a
	// matrix, even for a single row
	return G.Mul(sq, Ones(x.Graph(), x.Shape()[1], 1))
}

// Normalize normalizes each row of the matrix x to unit L2 norm. Row
// norms are floored at eps, so that each row v becomes
// v / max(‖v‖, eps).
func Normalize(x *G.Node, eps float64) (*G.Node, error) {
	sqNorms, err := RowSquaredNorms(x)
	if err != nil {
		return nil, fmt.Errorf("normalize: %v", err)
	}
	norms, err := G.Sqrt(sqNorms)
	if err != nil {
		return nil, fmt.Errorf("normalize: %v", err)
	}

	// max(‖v‖, eps) = relu(‖v‖ - eps) + eps
	epsNode := G.NewConstant(eps)
	floored, err := G.Sub(norms, epsNode)
	if err != nil {
		return nil, fmt.Errorf("normalize: %v", err)
	}
	floored, err = G.Rectify(floored)
	if err != nil {
		return nil, fmt.Errorf("normalize: %v", err)
	}
	floored, err = G.Add(floored, epsNode)
	if err != nil {
		return nil, fmt.Errorf("normalize: %v", err)
	}

	denom, err := G.Mul(floored, Ones(x.Graph(), 1, x.Shape()[1]))
	if err != nil {
		return nil, fmt.Errorf("normalize: %v", err)
	}

	return G.HadamardDiv(x, denom)
}

// Tile repeats the single row of the 1 x m matrix x, returning an
// n x m matrix. If x already has n rows, it is returned unchanged.
func Tile(x *G.Node, n int) (*G.Node, error) {
	if !x.IsMatrix() {
		return nil, fmt.Errorf("tile: input must be a matrix")
	}

	rows := x.Shape()[0]
	if rows == n {
		return x, nil
	} else if rows != 1 {
		return nil, fmt.Errorf("tile: cannot tile %v rows to %v rows", rows, n)
	}

	return G.Mul(Ones(x.Graph(), n, 1), x)
}

// MSE returns the scalar node holding the mean squared error between
// a and b
func MSE(a, b *G.Node) (*G.Node, error) {
	diff, err := G.Sub(a, b)
	if err != nil {
		return nil, fmt.Errorf("mse: %v", err)
	}
	sq, err := G.Square(diff)
	if err != nil {
		return nil, fmt.Errorf("mse: %v", err)
	}
	return G.Mean(sq)
}

// Scale multiplies each element of x by the constant c
func Scale(x *G.Node, c float64) (*G.Node, error) {
	return G.HadamardProd(x, G.NewConstant(c))
}
