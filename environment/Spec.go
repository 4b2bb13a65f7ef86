package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an action, an observation, a discount, or a reward
type SpecType int

const (
	Action SpecType = iota
	Observation
	Discount
	Reward
)

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// shape, and bounds of an action, observation, discount, or reward in
// an environment
type Spec struct {
	Shape      mat.Vector
	Type       SpecType
	LowerBound mat.Vector
	UpperBound mat.Vector
	Cardinality
}

// NewSpec constructs a new environment specification
// The shape argument outlines the shape of the data described by the
// specification. The argument t outlines what the specification is
// describing (e.g. actions, observations, etc.). The cardinality
// arguments describes whether the values that the spec describes are
// continuous or discrete.
func NewSpec(shape mat.Vector, t SpecType, lowerBound,
	upperBound mat.Vector, cardinality Cardinality) Spec {
	if shape.Len() != lowerBound.Len() {
		panic(fmt.Sprintf("shape length %v must match lower bounds length %v",
			shape.Len(), lowerBound.Len()))
	}
	if shape.Len() != upperBound.Len() {
		panic(fmt.Sprintf("shape length %v must match upper bounds length %v",
			shape.Len(), upperBound.Len()))
	}
	return Spec{shape, t, lowerBound, upperBound, cardinality}
}

// NewBoxSpec returns a continuous Spec whose i-th feature lies in
// bounds[i]
func NewBoxSpec(t SpecType, bounds ...r1.Interval) Spec {
	low := make([]float64, len(bounds))
	high := make([]float64, len(bounds))
	for i, b := range bounds {
		if b.Min > b.Max {
			panic(fmt.Sprintf("newBoxSpec: feature %v has empty bounds %v",
				i, b))
		}
		low[i], high[i] = b.Min, b.Max
	}

	n := len(bounds)
	return NewSpec(mat.NewVecDense(n, nil), t, mat.NewVecDense(n, low),
		mat.NewVecDense(n, high), Continuous)
}

// Bounds returns the interval of each feature described by the Spec
func (s Spec) Bounds() []r1.Interval {
	bounds := make([]r1.Interval, s.Shape.Len())
	for i := range bounds {
		bounds[i] = r1.Interval{
			Min: s.LowerBound.AtVec(i),
			Max: s.UpperBound.AtVec(i),
		}
	}
	return bounds
}

// Contains returns an error naming the first feature of v which is
// outside the bounds of the Spec
func (s Spec) Contains(v mat.Vector) error {
	if v.Len() != s.Shape.Len() {
		return fmt.Errorf("contains: want(%v) features have(%v)",
			s.Shape.Len(), v.Len())
	}
	for i, b := range s.Bounds() {
		if x := v.AtVec(i); x < b.Min || x > b.Max {
			return fmt.Errorf("contains: feature %v = %v is outside %v",
				i, x, b)
		}
	}
	return nil
}
