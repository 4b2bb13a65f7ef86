package expreplay

import "errors"

// Sampling errors. Sample wraps these in an *ExpReplayError.
var (
	ErrEmpty               = errors.New("buffer empty")
	ErrInsufficientSamples = errors.New("minimum capacity not yet reached")
)

// ExpReplayError records the buffer operation which failed
type ExpReplayError struct {
	Op  string
	Err error
}

func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

// IsInsufficientSamples reports whether err was caused by sampling
// before the buffer reached its minimum capacity
func IsInsufficientSamples(err error) bool {
	return errors.Is(err, ErrInsufficientSamples)
}

// IsEmptyBuffer reports whether err was caused by sampling from an
// empty buffer
func IsEmptyBuffer(err error) bool {
	return errors.Is(err, ErrEmpty)
}
