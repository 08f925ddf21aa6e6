package bayesfactor

import (
	"fmt"
	"math"

	"gobfda/adapters/stats/numeric"
	"gobfda/adapters/stats/prior"
	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/ports"
)

// edge keeps the ρ grid off ±1, where the stretched beta density may be infinite.
const edge = 1e-12

// Correlation computes BF10 for Pearson's r from its exact sampling distribution:
//
//	BF10 = ∫ π(ρ) (1-ρ²)^{(n-1)/2} K_n(ρr) dρ / K_n(0)
//
// with K_n the Fisher kernel.
type Correlation struct {
	prior *prior.Density
}

func newCorrelation(_ bfda.TestType, density *prior.Density) ports.BayesFactorEvaluator {
	return &Correlation{prior: density}
}

func (e *Correlation) LogBF10(stat ports.Statistic) (float64, error) {
	n, r := stat.N, stat.Value
	if n < 3 {
		return 0, fmt.Errorf("%w: correlation needs n >= 3, got %d", core.ErrNumeric, n)
	}
	if !(r > -1 && r < 1) {
		return 0, fmt.Errorf("%w: sample correlation is %g", core.ErrDegenerate, r)
	}

	k := float64(n - 1)
	logZero := numeric.LogFisherKernelZero(n)

	var kernelErr error
	logf := func(rho float64) float64 {
		lp := e.prior.LogDensity(rho)
		if math.IsInf(lp, -1) {
			return lp
		}
		kernel, err := numeric.LogFisherKernel(n, rho*r)
		if err != nil {
			if kernelErr == nil {
				kernelErr = err
			}
			return math.NaN()
		}
		return lp + 0.5*k*math.Log1p(-rho*rho) + kernel - logZero
	}

	supLo, supHi := e.prior.Support()
	lo, hi := math.Max(supLo, -1+edge), math.Min(supHi, 1-edge)
	w := math.Max((1-r*r)/math.Sqrt(float64(n)), 1e-6)
	likeLo, likeHi := focus(r, w, lo, hi)

	logBF, err := numeric.LogIntegrate(logf, lo, hi, numeric.Linspace(likeLo, likeHi, 48)...)
	if kernelErr != nil {
		return 0, kernelErr
	}
	return logBF, err
}
