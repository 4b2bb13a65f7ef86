package memory

import "fmt"

// Config describes the shape and hyperparameters of an FFW memory
type Config struct {
	StateDim  int
	ActionDim int
	HiddenDim int // Hidden layer width of the encoder and decoder
	HypoDim   int // Size of context vectors

	// Eps floors vector norms during normalization
	Eps float64

	// AENoise scales the Gaussian noise used to corrupt decoder inputs
	AENoise float64

	// BatchSize is the number of records in a training batch
	BatchSize int

	Seed uint64
}

// DefaultConfig returns the default memory configuration for the given
// state and action dimensions
func DefaultConfig(stateDim, actionDim, batchSize int) Config {
	return Config{
		StateDim:  stateDim,
		ActionDim: actionDim,
		HiddenDim: 64,
		HypoDim:   64,
		Eps:       0.03,
		AENoise:   0.2,
		BatchSize: batchSize,
	}
}

// Features returns the number of features in a single record: the
// observation, action, and reward concatenated
func (c Config) Features() int {
	return c.StateDim + c.ActionDim + 1
}

// Validate returns an error if the Config is not usable
func (c Config) Validate() error {
	if c.StateDim <= 0 || c.ActionDim <= 0 {
		return fmt.Errorf("validate: state and action dimensions must be > 0")
	}
	if c.HiddenDim <= 0 || c.HypoDim <= 0 {
		return fmt.Errorf("validate: hidden and hypothesis dimensions " +
			"must be > 0")
	}
	if c.Eps <= 0 {
		return fmt.Errorf("validate: eps must be > 0")
	}
	if c.AENoise < 0 {
		return fmt.Errorf("validate: noise scale must be >= 0")
	}
	if c.BatchSize < 3 {
		return fmt.Errorf("validate: batch size must be >= 3 to split "+
			"batches into two non-empty parts, have(%v)", c.BatchSize)
	}
	return nil
}
