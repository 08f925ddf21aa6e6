package bayesfactor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"gobfda/adapters/stats/numeric"
	"gobfda/adapters/stats/prior"
	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/ports"
)

// TTest computes BF10 for the paired and between-groups t-tests by integrating
// the noncentral t likelihood of the observed t against the prior on δ:
//
//	BF10 = ∫ t_ν(t | δ√n_eff) π(δ) dδ / t_ν(t | 0)
type TTest struct {
	test  bfda.TestType
	prior *prior.Density
}

func newTTest(test bfda.TestType, density *prior.Density) ports.BayesFactorEvaluator {
	return &TTest{test: test, prior: density}
}

// sampling returns the effective sample size and degrees of freedom. For
// t.between, n counts observations per group.
func (e *TTest) sampling(n int) (float64, float64, error) {
	if n < 2 {
		return 0, 0, fmt.Errorf("%w: t-test needs n >= 2, got %d", core.ErrNumeric, n)
	}
	nf := float64(n)
	if e.test == bfda.TestBetween {
		return nf / 2, 2*nf - 2, nil
	}
	return nf, nf - 1, nil
}

func (e *TTest) LogBF10(stat ports.Statistic) (float64, error) {
	neff, df, err := e.sampling(stat.N)
	if err != nil {
		return 0, err
	}
	t := stat.Value
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, fmt.Errorf("%w: t statistic is %g", core.ErrNumeric, t)
	}

	root := math.Sqrt(neff)
	center := t / root
	w := math.Sqrt((t*t+df)/df) / root

	supLo, supHi := e.prior.Support()
	likeLo, likeHi := focus(center, w, supLo, supHi)
	priorLo, priorHi := e.prior.Bulk()
	lo := math.Max(math.Min(likeLo, priorLo), supLo)
	hi := math.Min(math.Max(likeHi, priorHi), supHi)

	hints := append(numeric.Linspace(likeLo, likeHi, 48), numeric.Linspace(priorLo, priorHi, 32)...)
	logf := func(delta float64) float64 {
		lp := e.prior.LogDensity(delta)
		if math.IsInf(lp, -1) {
			return lp
		}
		return lp + numeric.NoncentralT{Nu: df, Mu: delta * root}.LogProb(t)
	}

	logMarginal, err := numeric.LogIntegrate(logf, lo, hi, hints...)
	if err != nil {
		return 0, err
	}
	logNull := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.LogProb(t)
	return logMarginal - logNull, nil
}
