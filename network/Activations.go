package network

import (
	G "gorgonia.org/gorgonia"
)

// Activation is a named elementwise activation function applied to
// the output of a layer
type Activation struct {
	name string
	f    func(x *G.Node) (*G.Node, error)
}

func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	return a.f(x)
}

// String returns the name of the activation
func (a *Activation) String() string {
	return a.name
}

// Identity returns the activation which leaves its input unchanged
func Identity() *Activation {
	return &Activation{"identity", func(x *G.Node) (*G.Node, error) {
		return x, nil
	}}
}

// ReLU returns a rectified linear activation
func ReLU() *Activation {
	return &Activation{"relu", G.Rectify}
}

// TanH returns a tanh activation
func TanH() *Activation {
	return &Activation{"tanh", G.Tanh}
}

// Sigmoid returns a logistic sigmoid activation
func Sigmoid() *Activation {
	return &Activation{"sigmoid", G.Sigmoid}
}
