package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// RMSPropConfig describes a configuration of the RMSProp solver, which
// scales each step by a running average of squared gradients decayed
// by Rho
type RMSPropConfig struct {
	StepSize float64
	Epsilon  float64
	Rho      float64
	Batch    int
	Clip     float64 // Gradients are clipped to [-Clip, Clip] if Clip > 0
}

// NewDefaultRMSProp returns a new RMSProp Solver with ε = 1e-8,
// ρ = 0.999 and no clipping
func NewDefaultRMSProp(stepSize float64, batchSize int) (*Solver, error) {
	return NewRMSProp(stepSize, 1e-8, 0.999, batchSize, -1.0)
}

// NewRMSProp returns a new RMSProp Solver
func NewRMSProp(stepSize, epsilon, rho float64, batchSize int,
	clip float64) (*Solver, error) {
	return newSolver(RMSProp, RMSPropConfig{
		StepSize: stepSize,
		Epsilon:  epsilon,
		Rho:      rho,
		Batch:    batchSize,
		Clip:     clip,
	})
}

// Create returns a new Gorgonia RMSProp Solver as described by the
// RMSPropConfig
func (r RMSPropConfig) Create() G.Solver {
	opts := append(
		options(r.StepSize, r.Batch, r.Clip),
		G.WithEps(r.Epsilon),
		G.WithRho(r.Rho),
	)
	return G.NewRMSPropSolver(opts...)
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (r RMSPropConfig) ValidType(t Type) bool {
	return t == RMSProp
}

// Validate checks the RMSPropConfig for errors
func (r RMSPropConfig) Validate() error {
	if err := validate(r.StepSize, r.Batch); err != nil {
		return err
	}
	if r.Epsilon <= 0 {
		return fmt.Errorf("validate: ε must be > 0, have(%v)", r.Epsilon)
	}
	if r.Rho < 0 || r.Rho >= 1 {
		return fmt.Errorf("validate: ρ must be in [0, 1), have(%v)", r.Rho)
	}
	return nil
}
