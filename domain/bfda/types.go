// Package bfda holds the domain model of a Bayes factor design analysis:
// the simulation configuration, the trajectories a simulation produces, and
// the configurations and summaries of analyses run on them.
package bfda

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"

	"gopkg.in/yaml.v3"

	"gobfda/domain/core"
)

// TestType selects one of the three supported statistical designs.
type TestType string

const (
	TestBetween     TestType = "t.between"
	TestPaired      TestType = "t.paired"
	TestCorrelation TestType = "correlation"
)

// IsTTest reports whether the design is analyzed with a t statistic.
func (t TestType) IsTTest() bool {
	return t == TestBetween || t == TestPaired
}

// MinN is the smallest sample size for which the test statistic is defined.
// For t.between it counts observations per group.
func (t TestType) MinN() int {
	if t == TestCorrelation {
		return 3
	}
	return 2
}

// Alternative is the direction of H1.
type Alternative string

const (
	TwoSided Alternative = "two.sided"
	Greater  Alternative = "greater"
	Less     Alternative = "less"
)

// SamplingDesign controls how data accrue across checkpoints.
type SamplingDesign string

const (
	// DesignSequential grows one dataset per replication from n.min to n.max.
	DesignSequential SamplingDesign = "sequential"
	// DesignFixedN draws a fresh independent sample at every checkpoint.
	DesignFixedN SamplingDesign = "fixed.n"
)

// Hypothesis tags which population a simulation represents.
type Hypothesis string

const (
	HypothesisH1          Hypothesis = "H1"
	HypothesisH0          Hypothesis = "H0"
	HypothesisUnspecified Hypothesis = "unspecified"
)

// Normalize maps the empty tag to HypothesisUnspecified.
func (h Hypothesis) Normalize() Hypothesis {
	if h == "" {
		return HypothesisUnspecified
	}
	return h
}

// PriorFamily names a prior distribution on the effect-size parameter.
type PriorFamily string

const (
	PriorCauchy        PriorFamily = "cauchy"
	PriorT             PriorFamily = "t"
	PriorNormal        PriorFamily = "normal"
	PriorStretchedBeta PriorFamily = "stretchedbeta"
)

// Prior is a prior family with its hyperparameters. Only the fields relevant to
// Family are read.
type Prior struct {
	Family   PriorFamily `json:"family" yaml:"family" validate:"required,oneof=cauchy t normal stretchedbeta"`
	Location float64     `json:"location,omitempty" yaml:"location,omitempty"`
	Scale    float64     `json:"scale,omitempty" yaml:"scale,omitempty"`
	DF       float64     `json:"df,omitempty" yaml:"df,omitempty"`
	Mean     float64     `json:"mean,omitempty" yaml:"mean,omitempty"`
	Variance float64     `json:"variance,omitempty" yaml:"variance,omitempty"`
	Kappa    float64     `json:"kappa,omitempty" yaml:"kappa,omitempty"`
}

func CauchyPrior(location, scale float64) Prior {
	return Prior{Family: PriorCauchy, Location: location, Scale: scale}
}

func TPrior(location, scale, df float64) Prior {
	return Prior{Family: PriorT, Location: location, Scale: scale, DF: df}
}

func NormalPrior(mean, variance float64) Prior {
	return Prior{Family: PriorNormal, Mean: mean, Variance: variance}
}

func StretchedBetaPrior(kappa float64) Prior {
	return Prior{Family: PriorStretchedBeta, Kappa: kappa}
}

// DefaultPrior is the default prior of each design: a Cauchy with scale √2/2
// for t-tests and the uniform stretched beta for correlations.
func DefaultPrior(t TestType) Prior {
	if t == TestCorrelation {
		return StretchedBetaPrior(1)
	}
	return CauchyPrior(0, math.Sqrt2/2)
}

// Validate checks the hyperparameters of the family and that the family fits the design.
func (p Prior) Validate(t TestType) error {
	switch p.Family {
	case PriorCauchy:
		if !(p.Scale > 0) {
			return core.NewConfigError("prior.scale", "must be > 0 for a cauchy prior")
		}
	case PriorT:
		if !(p.Scale > 0) {
			return core.NewConfigError("prior.scale", "must be > 0 for a t prior")
		}
		if !(p.DF > 0) {
			return core.NewConfigError("prior.df", "must be > 0 for a t prior")
		}
	case PriorNormal:
		if !(p.Variance > 0) {
			return core.NewConfigError("prior.variance", "must be > 0 for a normal prior")
		}
	case PriorStretchedBeta:
		if !(p.Kappa > 0) {
			return core.NewConfigError("prior.kappa", "must be > 0 for a stretched beta prior")
		}
	default:
		return core.NewConfigError("prior.family", "unknown prior family "+string(p.Family))
	}

	if t.IsTTest() && p.Family == PriorStretchedBeta {
		return core.NewConfigError("prior.family", "stretchedbeta is only defined for correlation")
	}
	if t == TestCorrelation && p.Family != PriorStretchedBeta {
		return core.NewConfigError("prior.family", "correlation requires a stretchedbeta prior")
	}
	return nil
}

// EffectSize is the source of the true effect for each replication: a fixed value
// or an empirical distribution resampled once per replication.
type EffectSize struct {
	Fixed   *float64  `json:"fixed,omitempty" yaml:"fixed,omitempty"`
	Samples []float64 `json:"samples,omitempty" yaml:"samples,omitempty"`
}

// FixedEffect returns a source that always yields d.
func FixedEffect(d float64) EffectSize {
	return EffectSize{Fixed: &d}
}

// EmpiricalEffect returns a source that resamples from samples.
func EmpiricalEffect(samples []float64) EffectSize {
	out := make([]float64, len(samples))
	copy(out, samples)
	return EffectSize{Samples: out}
}

// Draw returns the effect size of one replication.
func (e EffectSize) Draw(r *rand.Rand) float64 {
	if e.Fixed != nil {
		return *e.Fixed
	}
	return e.Samples[r.IntN(len(e.Samples))]
}

// Validate checks that exactly one source is set and that every value is usable
// by the design.
func (e EffectSize) Validate(t TestType) error {
	if e.Fixed == nil && len(e.Samples) == 0 {
		return core.NewConfigError("expected_es", "either a fixed value or samples is required")
	}
	if e.Fixed != nil && len(e.Samples) > 0 {
		return core.NewConfigError("expected_es", "fixed and samples are mutually exclusive")
	}

	values := e.Samples
	if e.Fixed != nil {
		values = []float64{*e.Fixed}
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.NewConfigError("expected_es", "values must be finite")
		}
		if t == TestCorrelation && (v <= -1 || v >= 1) {
			return core.NewConfigError("expected_es", "correlations must lie strictly between -1 and 1")
		}
	}
	return nil
}

// UnmarshalJSON accepts a number (fixed effect), an array of numbers (empirical
// distribution) or an object with fixed or samples.
func (e *EffectSize) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var scalar float64
	if err := json.Unmarshal(data, &scalar); err == nil {
		*e = FixedEffect(scalar)
		return nil
	}
	var samples []float64
	if err := json.Unmarshal(data, &samples); err == nil {
		*e = EffectSize{Samples: samples}
		return nil
	}
	type plain EffectSize
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("expected_es must be a number, an array or an object: %w", err)
	}
	*e = EffectSize(obj)
	return nil
}

// UnmarshalYAML accepts the same shapes as UnmarshalJSON.
func (e *EffectSize) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var scalar float64
		if err := node.Decode(&scalar); err != nil {
			return err
		}
		*e = FixedEffect(scalar)
		return nil
	case yaml.SequenceNode:
		var samples []float64
		if err := node.Decode(&samples); err != nil {
			return err
		}
		*e = EffectSize{Samples: samples}
		return nil
	default:
		type plain EffectSize
		var obj plain
		if err := node.Decode(&obj); err != nil {
			return err
		}
		*e = EffectSize(obj)
		return nil
	}
}
