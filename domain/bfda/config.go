package bfda

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"gobfda/domain/core"
)

var configValidate = validator.New()

// SimulationConfig fully specifies a simulation. It is immutable once handed to
// the simulation driver.
type SimulationConfig struct {
	Type         TestType       `json:"type" yaml:"type" validate:"required,oneof=t.between t.paired correlation"`
	Design       SamplingDesign `json:"design" yaml:"design" validate:"omitempty,oneof=sequential fixed.n"`
	Prior        Prior          `json:"prior" yaml:"prior"`
	EffectSize   EffectSize     `json:"expected_es" yaml:"expected_es"`
	Alternative  Alternative    `json:"alternative" yaml:"alternative" validate:"omitempty,oneof=two.sided greater less"`
	Hypothesis   Hypothesis     `json:"hypothesis" yaml:"hypothesis" validate:"omitempty,oneof=H1 H0 unspecified"`
	NMin         int            `json:"n_min" yaml:"n_min" validate:"gt=0"`
	NMax         int            `json:"n_max" yaml:"n_max" validate:"gtefield=NMin"`
	StepSize     int            `json:"stepsize" yaml:"stepsize" validate:"gt=0"`
	Replications int            `json:"B" yaml:"B" validate:"gt=0"`
	Workers      int            `json:"cores,omitempty" yaml:"cores,omitempty" validate:"gte=0"`
	Seed         *uint64        `json:"seed,omitempty" yaml:"seed,omitempty"`
	StopBoundary *Boundary      `json:"boundary,omitempty" yaml:"boundary,omitempty"`
	Verbose      bool           `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// WithDefaults fills optional fields: sequential design, two-sided alternative,
// unspecified hypothesis and the design's default prior.
func (c SimulationConfig) WithDefaults() SimulationConfig {
	if c.Design == "" {
		c.Design = DesignSequential
	}
	if c.Alternative == "" {
		c.Alternative = TwoSided
	}
	c.Hypothesis = c.Hypothesis.Normalize()
	if c.Prior.Family == "" {
		c.Prior = DefaultPrior(c.Type)
	}
	return c
}

// Validate reports the first configuration error. It never touches random state.
func (c SimulationConfig) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return translateValidationError(err)
	}
	if c.NMin < c.Type.MinN() {
		return core.NewConfigError("n_min", fmt.Sprintf("must be at least %d for %s", c.Type.MinN(), c.Type))
	}
	if err := c.Prior.Validate(c.Type); err != nil {
		return err
	}
	if err := c.EffectSize.Validate(c.Type); err != nil {
		return err
	}
	if c.StopBoundary != nil {
		if c.Design == DesignFixedN {
			return core.NewConfigError("boundary", "early stopping needs a sequential design")
		}
		if err := c.StopBoundary.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Checkpoints lists the sample sizes visited: NMin, NMin+step, ... with the last
// step truncated to land exactly on NMax.
func (c SimulationConfig) Checkpoints() []int {
	if c.StepSize <= 0 || c.NMin > c.NMax {
		return nil
	}
	ns := make([]int, 0, (c.NMax-c.NMin)/c.StepSize+2)
	for n := c.NMin; n < c.NMax; n += c.StepSize {
		ns = append(ns, n)
	}
	return append(ns, c.NMax)
}

func translateValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return core.NewConfigError(field, "is required")
	case "oneof":
		return core.NewConfigError(field, fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value()))
	case "gtefield":
		return core.NewConfigError(field, fmt.Sprintf("must be >= %s, got %v", strings.ToLower(fe.Param()), fe.Value()))
	default:
		return core.NewConfigError(field, fmt.Sprintf("must satisfy %s=%s, got %v", fe.Tag(), fe.Param(), fe.Value()))
	}
}
