package initwfn

import (
	"math"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"gonum.org/v1/gonum/stat/distuv"
)

// HeUConfig configures the He uniform initialization algorithm, which
// draws weights from U[-l, l] with l = Gain * sqrt(3 / fanIn).
//
// A Gain of sqrt(2) suits ReLU layers. A Gain of 1/sqrt(3) gives
// U[-1/sqrt(fanIn), 1/sqrt(fanIn)].
type HeUConfig struct {
	Gain float64
	Seed uint64
}

// NewHeU returns a new He uniform weight initializer
func NewHeU(gain float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(HeUConfig{Gain: gain, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (h HeUConfig) Type() Type {
	return HeU
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (h HeUConfig) Create() G.InitWFn {
	src := rand.NewSource(h.Seed)

	return func(dt tensor.Dtype, shape ...int) interface{} {
		fanIn, _ := fans(shape...)
		limit := h.Gain * math.Sqrt(3.0/float64(fanIn))
		dist := distuv.Uniform{Min: -limit, Max: limit, Src: src}

		return fill(dt, dist.Rand, shape...)
	}
}

// HeNConfig configures the He normal initialization algorithm, which
// draws weights from N(0, σ²) with σ = Gain / sqrt(fanIn).
type HeNConfig struct {
	Gain float64
	Seed uint64
}

// NewHeN returns a new He normal weight initializer
func NewHeN(gain float64, seed uint64) (*InitWFn, error) {
	return newInitWFn(HeNConfig{Gain: gain, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (h HeNConfig) Type() Type {
	return HeN
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (h HeNConfig) Create() G.InitWFn {
	src := rand.NewSource(h.Seed)

	return func(dt tensor.Dtype, shape ...int) interface{} {
		fanIn, _ := fans(shape...)
		dist := distuv.Normal{
			Mu:    0,
			Sigma: h.Gain / math.Sqrt(float64(fanIn)),
			Src:   src,
		}

		return fill(dt, dist.Rand, shape...)
	}
}
