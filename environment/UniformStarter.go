package environment

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// UniformStarter samples starting states uniformly from a box. Features
// whose interval has Min == Max are constant.
type UniformStarter struct {
	bounds []r1.Interval
	dist   *distmv.Uniform
}

// NewUniformStarter returns a UniformStarter which samples each state
// feature i uniformly from bounds[i]
func NewUniformStarter(bounds []r1.Interval, seed uint64) UniformStarter {
	for i, b := range bounds {
		if b.Min > b.Max {
			panic(fmt.Sprintf("newUniformStarter: feature %v has empty "+
				"bounds %v", i, b))
		}
	}
	b := append([]r1.Interval(nil), bounds...)

	return UniformStarter{
		bounds: b,
		dist:   distmv.NewUniform(b, rand.NewSource(seed)),
	}
}

// Start samples a starting state
func (u UniformStarter) Start() *mat.VecDense {
	return mat.NewVecDense(len(u.bounds), u.dist.Rand(nil))
}
