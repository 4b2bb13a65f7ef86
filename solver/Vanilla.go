package solver

import G "gorgonia.org/gorgonia"

// VanillaConfig describes a configuration of stochastic gradient
// descent: w ← w - StepSize * ∇w / Batch
type VanillaConfig struct {
	StepSize float64
	Batch    int
	Clip     float64 // Gradients are clipped to [-Clip, Clip] if Clip > 0
}

// NewVanilla returns a new Vanilla Solver
func NewVanilla(stepSize float64, batchSize int,
	clip float64) (*Solver, error) {
	return newSolver(Vanilla, VanillaConfig{
		StepSize: stepSize,
		Batch:    batchSize,
		Clip:     clip,
	})
}

// Create returns a Gorgonia Vanilla Solver as described by the
// VanillaConfig
func (v VanillaConfig) Create() G.Solver {
	return G.NewVanillaSolver(options(v.StepSize, v.Batch, v.Clip)...)
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (v VanillaConfig) ValidType(t Type) bool {
	return t == Vanilla
}

// Validate checks the VanillaConfig for errors
func (v VanillaConfig) Validate() error {
	return validate(v.StepSize, v.Batch)
}
