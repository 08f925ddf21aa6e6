// Package numeric holds the quadrature and special-function kernels behind the
// Bayes factor evaluator.
//
// Everything here works on the log scale. Integrands are passed as log densities
// and results come back as logs, so that Bayes factors of 1e-300 or 1e300 stay
// finite and comparable.
package numeric

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate/quad"

	"gobfda/domain/core"
)

const (
	// scanPoints is the size of the uniform scan over the whole integration range.
	scanPoints = 32
	// activeCut drops cells whose scanned log integrand is this far below the
	// maximum; they carry less than 1e-17 of the mass.
	activeCut = 40.0
	relTol    = 1e-6
)

// rule is a Gauss-Legendre rule on [-1, 1].
type rule struct {
	x, w []float64
}

func newRule(n int) rule {
	r := rule{x: make([]float64, n), w: make([]float64, n)}
	quad.Legendre{}.FixedLocations(r.x, r.w, -1, 1)
	return r
}

func (r rule) integrate(f func(float64) float64, a, b float64) float64 {
	half, mid := (b-a)/2, (a+b)/2
	var s float64
	for i, x := range r.x {
		s += r.w[i] * f(mid+half*x)
	}
	return s * half
}

var (
	gl8  = newRule(8)
	gl16 = newRule(16)
	gl48 = newRule(48)
)

// LogIntegrate returns log ∫ exp(logf(x)) dx over [lo, hi].
//
// The integrand is scanned on a uniform grid plus the caller's hint points, and
// only cells near the maximum are integrated, each with 8- and 16-point
// Gauss-Legendre rules. Hints should be dense wherever the integrand may have a
// peak narrower than (hi-lo)/32. When the two rules disagree the active cells
// are subdivided; if that still does not settle, ErrNoConvergence is returned.
func LogIntegrate(logf func(float64) float64, lo, hi float64, hints ...float64) (float64, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || !(hi > lo) {
		return 0, fmt.Errorf("%w: bad integration range [%g, %g]", core.ErrNumeric, lo, hi)
	}

	pts := Linspace(lo, hi, scanPoints)
	for _, h := range hints {
		if h > lo && h < hi {
			pts = append(pts, h)
		}
	}
	sort.Float64s(pts)
	pts = dedupe(pts)

	vals := make([]float64, len(pts))
	m := math.Inf(-1)
	for i, x := range pts {
		v := logf(x)
		if math.IsNaN(v) || math.IsInf(v, 1) {
			return 0, fmt.Errorf("%w: log integrand is %g at %g", core.ErrNumeric, v, x)
		}
		vals[i] = v
		if v > m {
			m = v
		}
	}
	if math.IsInf(m, -1) {
		return 0, fmt.Errorf("%w: integrand vanishes on [%g, %g]", core.ErrNumeric, lo, hi)
	}

	cells := activeCells(vals, m)

	var bad error
	f := func(x float64) float64 {
		v := logf(x)
		if math.IsNaN(v) || math.IsInf(v, 1) {
			if bad == nil {
				bad = fmt.Errorf("%w: log integrand is %g at %g", core.ErrNumeric, v, x)
			}
			return 0
		}
		return math.Exp(v - m)
	}

	var coarse, fine float64
	for _, i := range cells {
		coarse += gl8.integrate(f, pts[i], pts[i+1])
		fine += gl16.integrate(f, pts[i], pts[i+1])
	}
	if bad != nil {
		return 0, bad
	}
	if converged(coarse, fine) {
		return m + math.Log(fine), nil
	}

	prev := fine
	for _, parts := range []int{4, 16} {
		var refined float64
		for _, i := range cells {
			refined += panels(f, pts[i], pts[i+1], parts)
		}
		if bad != nil {
			return 0, bad
		}
		if converged(prev, refined) {
			return m + math.Log(refined), nil
		}
		prev = refined
	}
	if !(prev > 0) || math.IsInf(prev, 1) {
		return 0, fmt.Errorf("%w: integral estimate %g on [%g, %g]", core.ErrNumeric, prev, lo, hi)
	}
	return 0, fmt.Errorf("%w: estimates %g and %g on [%g, %g]", core.ErrNoConvergence, fine, prev, lo, hi)
}

// activeCells returns the indices of cells [pts[i], pts[i+1]] within activeCut of
// the maximum, widened by one cell on each side.
func activeCells(vals []float64, m float64) []int {
	nc := len(vals) - 1
	keep := make([]bool, nc)
	for i := 0; i < nc; i++ {
		if math.Max(vals[i], vals[i+1]) >= m-activeCut {
			keep[i] = true
			if i > 0 {
				keep[i-1] = true
			}
			if i+1 < nc {
				keep[i+1] = true
			}
		}
	}
	out := make([]int, 0, nc)
	for i, k := range keep {
		if k {
			out = append(out, i)
		}
	}
	return out
}

func panels(f func(float64) float64, a, b float64, parts int) float64 {
	h := (b - a) / float64(parts)
	var s float64
	for j := 0; j < parts; j++ {
		s += gl16.integrate(f, a+float64(j)*h, a+float64(j+1)*h)
	}
	return s
}

func converged(a, b float64) bool {
	return b > 0 && !math.IsInf(b, 1) && math.Abs(a-b) <= relTol*b
}

func dedupe(sorted []float64) []float64 {
	out := sorted[:0]
	for i, x := range sorted {
		if i == 0 || x > out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

// Linspace returns n evenly spaced points from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
