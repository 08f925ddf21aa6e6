package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound           = errors.New("resource not found")
	ErrSimulationNotFound = fmt.Errorf("%w: simulation", ErrNotFound)

	// Configuration errors are detected before any replication is dispatched.
	ErrInvalidConfig = errors.New("invalid configuration")

	// Numeric errors are scoped to a single replication.
	ErrNumeric       = errors.New("numeric error")
	ErrNoConvergence = fmt.Errorf("%w: integration did not converge", ErrNumeric)
	ErrDegenerate    = fmt.Errorf("%w: degenerate sample", ErrNumeric)

	// Analysis errors
	ErrAnalysisRange       = errors.New("analysis outside simulated range")
	ErrAmbiguousHypothesis = errors.New("hypothesis of simulation is not specified")
	ErrTargetNotReached    = errors.New("no candidate sample size reaches the target")
)

// Error constructors with context
func NewConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, reason)
}

func NewRangeError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrAnalysisRange, fmt.Sprintf(format, args...))
}

func NewNumericError(n int, err error) error {
	if errors.Is(err, ErrNumeric) {
		return fmt.Errorf("at n=%d: %w", n, err)
	}
	return fmt.Errorf("%w at n=%d: %v", ErrNumeric, n, err)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

func IsRangeError(err error) bool {
	return errors.Is(err, ErrAnalysisRange)
}

func IsNumericError(err error) bool {
	return errors.Is(err, ErrNumeric)
}
