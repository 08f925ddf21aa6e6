package bfda

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"gobfda/domain/core"
)

// Boundary holds the BF10 thresholds that stop sampling: evidence for H0 at or
// below Lower, evidence for H1 at or above Upper.
type Boundary struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Symmetric returns the boundary [1/b, b].
func Symmetric(b float64) Boundary {
	return Boundary{Lower: 1 / b, Upper: b}
}

// Validate requires 0 < Lower < 1 < Upper.
func (b Boundary) Validate() error {
	if !(b.Lower > 0) || !(b.Lower < 1) {
		return core.NewConfigError("boundary.lower", fmt.Sprintf("must lie in (0, 1), got %g", b.Lower))
	}
	if !(b.Upper > 1) || math.IsInf(b.Upper, 1) {
		return core.NewConfigError("boundary.upper", fmt.Sprintf("must be finite and > 1, got %g", b.Upper))
	}
	return nil
}

// Contains reports whether other lies inside b, so that any trajectory that
// crosses other is observed crossing it before it can cross b.
func (b Boundary) Contains(other Boundary) bool {
	return b.Lower <= other.Lower && other.Upper <= b.Upper
}

// LogBounds returns the natural logs of Lower and Upper.
func (b Boundary) LogBounds() (float64, float64) {
	return math.Log(b.Lower), math.Log(b.Upper)
}

// Classify compares a log Bayes factor with the boundary.
func (b Boundary) Classify(logBF float64) Outcome {
	lo, hi := b.LogBounds()
	switch {
	case logBF >= hi:
		return OutcomeUpper
	case logBF <= lo:
		return OutcomeLower
	default:
		return OutcomeInconclusive
	}
}

func (b Boundary) String() string {
	if math.Abs(b.Lower*b.Upper-1) < 1e-12 {
		return fmt.Sprintf("%g", b.Upper)
	}
	return fmt.Sprintf("[%g, %g]", b.Lower, b.Upper)
}

// UnmarshalJSON accepts a single number b (meaning [1/b, b]), a two-element
// array [lower, upper], or an object with lower and upper.
func (b *Boundary) UnmarshalJSON(data []byte) error {
	var scalar float64
	if err := json.Unmarshal(data, &scalar); err == nil {
		*b = Symmetric(scalar)
		return nil
	}
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		return b.fromPair(pair)
	}
	type plain Boundary
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("boundary must be a number, a [lower, upper] pair or an object: %w", err)
	}
	*b = Boundary(obj)
	return nil
}

// UnmarshalYAML accepts the same shapes as UnmarshalJSON.
func (b *Boundary) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var scalar float64
		if err := node.Decode(&scalar); err != nil {
			return err
		}
		*b = Symmetric(scalar)
		return nil
	case yaml.SequenceNode:
		var pair []float64
		if err := node.Decode(&pair); err != nil {
			return err
		}
		return b.fromPair(pair)
	default:
		type plain Boundary
		var obj plain
		if err := node.Decode(&obj); err != nil {
			return err
		}
		*b = Boundary(obj)
		return nil
	}
}

func (b *Boundary) fromPair(pair []float64) error {
	if len(pair) != 2 {
		return fmt.Errorf("boundary pair must have exactly two values, got %d", len(pair))
	}
	b.Lower, b.Upper = pair[0], pair[1]
	return nil
}
