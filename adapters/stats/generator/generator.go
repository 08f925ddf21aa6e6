// Package generator draws synthetic datasets observation by observation and
// reduces them to the test statistic of each design.
package generator

import (
	"fmt"
	"math/rand/v2"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/ports"
)

// Generator implements ports.TrajectoryGenerator for one design.
type Generator struct {
	test bfda.TestType
}

// New returns the generator for a design.
func New(test bfda.TestType) (*Generator, error) {
	switch test {
	case bfda.TestBetween, bfda.TestPaired, bfda.TestCorrelation:
		return &Generator{test: test}, nil
	default:
		return nil, core.NewConfigError("type", "no data generator for "+string(test))
	}
}

// NewTrajectoryGenerator adapts New to ports.GeneratorFactory.
func NewTrajectoryGenerator(test bfda.TestType) (ports.TrajectoryGenerator, error) {
	g, err := New(test)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Generator) newSample(effect float64) (sample, error) {
	switch g.test {
	case bfda.TestBetween:
		return &betweenSample{effect: effect}, nil
	case bfda.TestPaired:
		return &pairedSample{effect: effect}, nil
	default:
		if !(effect > -1 && effect < 1) {
			return nil, fmt.Errorf("%w: population correlation %g outside (-1, 1)", core.ErrNumeric, effect)
		}
		return newCorrelationSample(effect), nil
	}
}

// Generate grows one dataset through every n in ns and returns the statistic at
// each. Draws happen one observation at a time, so the statistic at n depends on
// the first n draws only and not on later checkpoints.
func (g *Generator) Generate(rng *rand.Rand, effect float64, ns []int) ([]float64, error) {
	if err := g.checkSizes(ns); err != nil {
		return nil, err
	}
	s, err := g.newSample(effect)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(ns))
	for i, n := range ns {
		for s.size() < n {
			s.draw(rng)
		}
		stat, err := s.statistic()
		if err != nil {
			return nil, core.NewNumericError(n, err)
		}
		out[i] = stat
	}
	return out, nil
}

// GenerateIndependent draws a fresh dataset of size n for every n in ns.
func (g *Generator) GenerateIndependent(rng *rand.Rand, effect float64, ns []int) ([]float64, error) {
	if err := g.checkSizes(ns); err != nil {
		return nil, err
	}

	out := make([]float64, len(ns))
	for i, n := range ns {
		s, err := g.newSample(effect)
		if err != nil {
			return nil, err
		}
		for s.size() < n {
			s.draw(rng)
		}
		stat, err := s.statistic()
		if err != nil {
			return nil, core.NewNumericError(n, err)
		}
		out[i] = stat
	}
	return out, nil
}

func (g *Generator) checkSizes(ns []int) error {
	if len(ns) == 0 {
		return core.NewConfigError("checkpoints", "at least one sample size is required")
	}
	if ns[0] < g.test.MinN() {
		return core.NewConfigError("n_min", fmt.Sprintf("must be at least %d for %s", g.test.MinN(), g.test))
	}
	for i := 1; i < len(ns); i++ {
		if ns[i] <= ns[i-1] {
			return core.NewConfigError("checkpoints", fmt.Sprintf("must increase strictly, got %d after %d", ns[i], ns[i-1]))
		}
	}
	return nil
}
