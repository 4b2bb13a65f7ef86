package initwfn

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ConstantConfig configures a weight initializer that sets every
// weight to Value
type ConstantConfig struct {
	Value float64
}

// NewConstant returns a new constant weight initializer
func NewConstant(value float64) (*InitWFn, error) {
	return newInitWFn(ConstantConfig{Value: value})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (c ConstantConfig) Type() Type {
	return Constant
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (c ConstantConfig) Create() G.InitWFn {
	return constant(c.Value)
}

// ZeroesConfig configures a weight initializer that sets every weight
// to 0
type ZeroesConfig struct{}

// NewZeroes returns a new zero weight initializer
func NewZeroes() (*InitWFn, error) {
	return newInitWFn(ZeroesConfig{})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (z ZeroesConfig) Type() Type {
	return Zeroes
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (z ZeroesConfig) Create() G.InitWFn {
	return constant(0)
}

// OnesConfig configures a weight initializer that sets every weight
// to 1
type OnesConfig struct{}

// NewOnes returns a new weight initializer of ones
func NewOnes() (*InitWFn, error) {
	return newInitWFn(OnesConfig{})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (o OnesConfig) Type() Type {
	return Ones
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (o OnesConfig) Create() G.InitWFn {
	return constant(1)
}

func constant(value float64) G.InitWFn {
	return func(dt tensor.Dtype, shape ...int) interface{} {
		return fill(dt, func() float64 { return value }, shape...)
	}
}
