// Package checkpointer implements functionality for periodically
// saving agents during an experiment
package checkpointer

// Saver is an object that can save itself to files starting with a
// given prefix
type Saver interface {
	Save(prefix string) error
}

// Checkpointer checkpoints/saves objects based on the total number of
// steps taken in an experiment
type Checkpointer interface {
	Checkpoint(step int) error
}
