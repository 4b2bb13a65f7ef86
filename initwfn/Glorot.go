package initwfn

import (
	"math"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"gonum.org/v1/gonum/stat/distuv"
)

// GlorotUConfig configures the Glorot uniform initialization
// algorithm, which draws weights from U[-l, l] with
// l = Gain * sqrt(6 / (fanIn + fanOut)).
type GlorotUConfig struct {
	Gain float64
	Seed uint64
}

// NewGlorotU returns a new Glorot uniform weight initializer
func NewGlorotU(gain float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(GlorotUConfig{Gain: gain, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (g GlorotUConfig) Type() Type {
	return GlorotU
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn. Every call to the InitWFn continues the same random stream.
func (g GlorotUConfig) Create() G.InitWFn {
	src := rand.NewSource(g.Seed)

	return func(dt tensor.Dtype, shape ...int) interface{} {
		fanIn, fanOut := fans(shape...)
		limit := g.Gain * math.Sqrt(6.0/float64(fanIn+fanOut))
		dist := distuv.Uniform{Min: -limit, Max: limit, Src: src}

		return fill(dt, dist.Rand, shape...)
	}
}

// GlorotNConfig configures the Glorot normal initialization algorithm,
// which draws weights from N(0, σ²) with
// σ = Gain * sqrt(2 / (fanIn + fanOut)).
type GlorotNConfig struct {
	Gain float64
	Seed uint64
}

// NewGlorotN returns a new Glorot normal weight initializer
func NewGlorotN(gain float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(GlorotNConfig{Gain: gain, Seed: seed})
}

// Type returns the type of initialization algorithm described by the
// configuration.
func (g GlorotNConfig) Type() Type {
	return GlorotN
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (g GlorotNConfig) Create() G.InitWFn {
	src := rand.NewSource(g.Seed)

	return func(dt tensor.Dtype, shape ...int) interface{} {
		fanIn, fanOut := fans(shape...)
		std := g.Gain * math.Sqrt(2.0/float64(fanIn+fanOut))
		dist := distuv.Normal{Mu: 0, Sigma: std, Src: src}

		return fill(dt, dist.Rand, shape...)
	}
}
