package generator

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gobfda/domain/core"
)

// sample is a growing synthetic dataset reduced to running sufficient statistics.
type sample interface {
	// draw appends one observation (one pair, or one per group) from rng.
	draw(rng *rand.Rand)
	size() int
	statistic() (float64, error)
}

// welford accumulates mean and sum of squared deviations.
type welford struct {
	n    int
	mean float64
	m2   float64
}

func (w *welford) push(x float64) {
	w.n++
	d := x - w.mean
	w.mean += d / float64(w.n)
	w.m2 += d * (x - w.mean)
}

// pairedSample holds differences d ~ N(δ, 1) and yields the one-sample t.
type pairedSample struct {
	effect float64
	d      welford
}

func (s *pairedSample) draw(rng *rand.Rand) {
	s.push(s.effect + rng.NormFloat64())
}

func (s *pairedSample) push(d float64) { s.d.push(d) }

func (s *pairedSample) size() int { return s.d.n }

func (s *pairedSample) statistic() (float64, error) {
	n := float64(s.d.n)
	if s.d.n < 2 || !(s.d.m2 > 0) {
		return 0, fmt.Errorf("%w: zero variance in %d differences", core.ErrDegenerate, s.d.n)
	}
	sd := math.Sqrt(s.d.m2 / (n - 1))
	return s.d.mean / (sd / math.Sqrt(n)), nil
}

// betweenSample holds two groups x ~ N(δ, 1), y ~ N(0, 1) of equal size and
// yields the pooled two-sample t.
type betweenSample struct {
	effect float64
	x, y   welford
}

func (s *betweenSample) draw(rng *rand.Rand) {
	x := s.effect + rng.NormFloat64()
	y := rng.NormFloat64()
	s.push(x, y)
}

func (s *betweenSample) push(x, y float64) {
	s.x.push(x)
	s.y.push(y)
}

func (s *betweenSample) size() int { return s.x.n }

func (s *betweenSample) statistic() (float64, error) {
	n := float64(s.x.n)
	pooled := (s.x.m2 + s.y.m2) / (2*n - 2)
	if s.x.n < 2 || !(pooled > 0) {
		return 0, fmt.Errorf("%w: zero pooled variance with %d per group", core.ErrDegenerate, s.x.n)
	}
	return (s.x.mean - s.y.mean) / math.Sqrt(pooled*2/n), nil
}

// correlationSample holds pairs from a standard bivariate normal with
// correlation ρ and yields Pearson's r.
type correlationSample struct {
	rho, tail float64
	n         int
	mx, my    float64
	sxx, syy  float64
	sxy       float64
}

func newCorrelationSample(rho float64) *correlationSample {
	return &correlationSample{rho: rho, tail: math.Sqrt(1 - rho*rho)}
}

func (s *correlationSample) draw(rng *rand.Rand) {
	z1 := rng.NormFloat64()
	z2 := rng.NormFloat64()
	s.push(z1, s.rho*z1+s.tail*z2)
}

func (s *correlationSample) push(x, y float64) {
	s.n++
	nf := float64(s.n)
	dx := x - s.mx
	dy := y - s.my
	s.mx += dx / nf
	s.my += dy / nf
	s.sxx += dx * (x - s.mx)
	s.syy += dy * (y - s.my)
	s.sxy += dx * (y - s.my)
}

func (s *correlationSample) size() int { return s.n }

func (s *correlationSample) statistic() (float64, error) {
	if s.n < 3 || !(s.sxx > 0) || !(s.syy > 0) {
		return 0, fmt.Errorf("%w: zero variance in %d pairs", core.ErrDegenerate, s.n)
	}
	r := s.sxy / math.Sqrt(s.sxx*s.syy)
	if !(r > -1 && r < 1) {
		return 0, fmt.Errorf("%w: sample correlation %g on %d pairs", core.ErrDegenerate, r, s.n)
	}
	return r, nil
}
