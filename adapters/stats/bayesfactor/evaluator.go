// Package bayesfactor computes BF10 for the supported designs. Each (design,
// prior family) pair is served by one registered strategy behind
// ports.BayesFactorEvaluator; all strategies return log BF10.
package bayesfactor

import (
	"fmt"
	"math"
	"sort"

	"gobfda/adapters/stats/prior"
	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/ports"
)

// likelihoodWidth is the half-width, in likelihood standard deviations, of the
// region scanned densely around the observed effect.
const likelihoodWidth = 40.0

type strategyKey struct {
	test   bfda.TestType
	family bfda.PriorFamily
}

type constructor func(test bfda.TestType, density *prior.Density) ports.BayesFactorEvaluator

var registry = map[strategyKey]constructor{
	{bfda.TestBetween, bfda.PriorCauchy}:            newTTest,
	{bfda.TestBetween, bfda.PriorT}:                 newTTest,
	{bfda.TestBetween, bfda.PriorNormal}:            newTTest,
	{bfda.TestPaired, bfda.PriorCauchy}:             newTTest,
	{bfda.TestPaired, bfda.PriorT}:                  newTTest,
	{bfda.TestPaired, bfda.PriorNormal}:             newTTest,
	{bfda.TestCorrelation, bfda.PriorStretchedBeta}: newCorrelation,
}

// New returns the evaluator for a design, prior and alternative. Invalid or
// unsupported combinations are configuration errors.
func New(test bfda.TestType, p bfda.Prior, alt bfda.Alternative) (ports.BayesFactorEvaluator, error) {
	build, ok := registry[strategyKey{test, p.Family}]
	if !ok {
		return nil, core.NewConfigError("prior.family",
			fmt.Sprintf("no Bayes factor for %s with a %s prior", test, p.Family))
	}
	density, err := prior.ForAlternative(test, p, alt)
	if err != nil {
		return nil, err
	}
	return build(test, density), nil
}

// Supported lists the registered design/prior pairs as "design/family".
func Supported() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, string(k.test)+"/"+string(k.family))
	}
	sort.Strings(out)
	return out
}

// focus returns the interval where a likelihood centered at center with spread w
// has its shape inside the support [supLo, supHi]. When the center lies outside
// the support the likelihood decays away from the nearest end at rate
// |center-end|/w², and the interval hugs that end.
func focus(center, w, supLo, supHi float64) (float64, float64) {
	switch {
	case center <= supLo:
		d := supLo - center
		return supLo, supLo + likelihoodWidth*w*math.Min(1, w/d)
	case center >= supHi:
		d := center - supHi
		return supHi - likelihoodWidth*w*math.Min(1, w/d), supHi
	}
	return math.Max(center-likelihoodWidth*w, supLo), math.Min(center+likelihoodWidth*w, supHi)
}
