package ports

import (
	"math/rand/v2"

	"gobfda/domain/bfda"
)

// TrajectoryGenerator draws data for one replication and reduces it to the test
// statistic at each requested sample size.
type TrajectoryGenerator interface {
	// Generate grows a single dataset and returns the statistic at each n in ns,
	// which must be increasing. The statistic at n depends only on the first n draws.
	Generate(rng *rand.Rand, effect float64, ns []int) ([]float64, error)

	// GenerateIndependent draws a fresh sample for every n in ns.
	GenerateIndependent(rng *rand.Rand, effect float64, ns []int) ([]float64, error)
}

// GeneratorFactory returns the generator of a design.
type GeneratorFactory func(test bfda.TestType) (TrajectoryGenerator, error)
