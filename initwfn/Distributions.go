package initwfn

import (
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"gonum.org/v1/gonum/stat/distuv"
)

// UniformConfig configures a weight initializer that draws weights
// from U[Low, High), independent of the shape of the weights
type UniformConfig struct {
	Low, High float64
	Seed      uint64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(UniformConfig{Low: low, High: high, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (u UniformConfig) Type() Type {
	return Uniform
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (u UniformConfig) Create() G.InitWFn {
	dist := distuv.Uniform{Min: u.Low, Max: u.High, Src: rand.NewSource(u.Seed)}

	return func(dt tensor.Dtype, shape ...int) interface{} {
		return fill(dt, dist.Rand, shape...)
	}
}

// GaussianConfig configures a weight initializer that draws weights
// from N(Mean, StdDev²), independent of the shape of the weights
type GaussianConfig struct {
	Mean, StdDev float64
	Seed         uint64
}

// NewGaussian returns a new Gaussian weight initializer
func NewGaussian(mean, stddev float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(GaussianConfig{Mean: mean, StdDev: stddev, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (g GaussianConfig) Type() Type {
	return Gaussian
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (g GaussianConfig) Create() G.InitWFn {
	dist := distuv.Normal{Mu: g.Mean, Sigma: g.StdDev, Src: rand.NewSource(g.Seed)}

	return func(dt tensor.Dtype, shape ...int) interface{} {
		return fill(dt, dist.Rand, shape...)
	}
}
