package initwfn

import (
	"gorgonia.org/tensor"
)

// fans returns the fan in and fan out of a weight tensor of the given
// shape. Weights of fully connected layers are in x out.
func fans(shape ...int) (int, int) {
	switch len(shape) {
	case 0:
		return 1, 1
	case 1:
		return shape[0], shape[0]
	default:
		receptive := 1
		for _, dim := range shape[2:] {
			receptive *= dim
		}
		return shape[0] * receptive, shape[1] * receptive
	}
}

// fill returns a backing slice of the given type and shape with each
// element set by calling sample
func fill(dt tensor.Dtype, sample func() float64, shape ...int) interface{} {
	size := tensor.Shape(shape).TotalSize()

	switch dt {
	case tensor.Float32:
		backing := make([]float32, size)
		for i := range backing {
			backing[i] = float32(sample())
		}
		return backing

	case tensor.Float64:
		backing := make([]float64, size)
		for i := range backing {
			backing[i] = sample()
		}
		return backing

	default:
		panic("fill: unsupported Dtype " + dt.String())
	}
}
