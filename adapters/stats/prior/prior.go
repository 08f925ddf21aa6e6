// Package prior turns a prior specification into a log density over the
// effect-size parameter (δ for t-tests, ρ for correlations).
package prior

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
)

// bulkWidth is the half-width of the prior's bulk in units of its spread.
const bulkWidth = 40.0

type distribution interface {
	LogProb(x float64) float64
	CDF(x float64) float64
	Survival(x float64) float64
}

// Density is a prior on the effect-size parameter, possibly truncated to one half
// of the parameter space. It is immutable and safe for concurrent use.
type Density struct {
	dist    distribution
	center  float64
	spread  float64
	lo, hi  float64
	logNorm float64
}

// New builds the untruncated prior for a design.
func New(test bfda.TestType, p bfda.Prior) (*Density, error) {
	if err := p.Validate(test); err != nil {
		return nil, err
	}

	d := &Density{lo: math.Inf(-1), hi: math.Inf(1)}
	switch p.Family {
	case bfda.PriorCauchy:
		d.dist = distuv.StudentsT{Mu: p.Location, Sigma: p.Scale, Nu: 1}
		d.center, d.spread = p.Location, p.Scale
	case bfda.PriorT:
		d.dist = distuv.StudentsT{Mu: p.Location, Sigma: p.Scale, Nu: p.DF}
		d.center, d.spread = p.Location, p.Scale
	case bfda.PriorNormal:
		sd := math.Sqrt(p.Variance)
		d.dist = distuv.Normal{Mu: p.Mean, Sigma: sd}
		d.center, d.spread = p.Mean, sd
	case bfda.PriorStretchedBeta:
		a := 1 / p.Kappa
		d.dist = stretchedBeta{beta: distuv.Beta{Alpha: a, Beta: a}}
		d.center, d.spread = 0, 1
		d.lo, d.hi = -1, 1
	default:
		return nil, core.NewConfigError("prior.family", "unknown prior family "+string(p.Family))
	}
	return d, nil
}

// ForAlternative builds the prior and truncates it to the alternative's half.
func ForAlternative(test bfda.TestType, p bfda.Prior, alt bfda.Alternative) (*Density, error) {
	d, err := New(test, p)
	if err != nil {
		return nil, err
	}
	return d.Truncate(alt)
}

// Truncate restricts the prior to the half of the parameter space named by alt
// and renormalizes by the prior mass on that half.
func (d *Density) Truncate(alt bfda.Alternative) (*Density, error) {
	out := *d
	var mass float64
	switch alt {
	case bfda.TwoSided, "":
		return &out, nil
	case bfda.Greater:
		mass = d.dist.Survival(0)
		out.lo = 0
	case bfda.Less:
		mass = d.dist.CDF(0)
		out.hi = 0
	default:
		return nil, core.NewConfigError("alternative", "unknown alternative "+string(alt))
	}
	if !(mass > 0) {
		return nil, core.NewConfigError("prior", fmt.Sprintf("puts no mass on the %s half of the parameter space", alt))
	}
	out.logNorm = d.logNorm - math.Log(mass)
	return &out, nil
}

// LogDensity returns the log prior density at x, -Inf outside the support.
func (d *Density) LogDensity(x float64) float64 {
	if x < d.lo || x > d.hi || math.IsNaN(x) {
		return math.Inf(-1)
	}
	return d.dist.LogProb(x) + d.logNorm
}

// Support returns the parameter range with positive density.
func (d *Density) Support() (float64, float64) {
	return d.lo, d.hi
}

// Bulk returns a finite interval inside the support that holds the shape of the
// prior: its center ± 40 spreads, clipped to the support.
func (d *Density) Bulk() (float64, float64) {
	lo := math.Max(d.center-bulkWidth*d.spread, d.lo)
	hi := math.Min(d.center+bulkWidth*d.spread, d.hi)
	if hi > lo {
		return lo, hi
	}
	// the center lies outside a truncated support; anchor at the cut
	if d.lo == 0 {
		return 0, math.Min(bulkWidth*d.spread, d.hi)
	}
	return math.Max(-bulkWidth*d.spread, d.lo), 0
}

// stretchedBeta is a symmetric beta distribution stretched from (0, 1) to (-1, 1).
type stretchedBeta struct {
	beta distuv.Beta
}

func (s stretchedBeta) LogProb(rho float64) float64 {
	if rho <= -1 || rho >= 1 {
		return math.Inf(-1)
	}
	return s.beta.LogProb((rho+1)/2) - math.Ln2
}

func (s stretchedBeta) CDF(rho float64) float64 {
	return s.beta.CDF((rho + 1) / 2)
}

func (s stretchedBeta) Survival(rho float64) float64 {
	return s.beta.Survival((rho + 1) / 2)
}
