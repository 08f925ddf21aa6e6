package numeric

import (
	"math"
)

// NoncentralT is Student's t distribution with Nu degrees of freedom and
// noncentrality parameter Mu.
type NoncentralT struct {
	Nu float64
	Mu float64
}

// LogProb returns the log density at t through the chi mixture representation
//
//	f(t) = C(ν) (t²+ν)^{-(ν+1)/2} exp(-νμ²/(2(t²+ν))) ∫₀^∞ y^ν exp(-(y-b)²/2) dy
//
// with b = μt/√(t²+ν).
func (d NoncentralT) LogProb(t float64) float64 {
	nu := d.Nu
	s := t*t + nu
	b := d.Mu * t / math.Sqrt(s)
	return logNCTConst(nu) - 0.5*(nu+1)*math.Log(s) - 0.5*nu*d.Mu*d.Mu/s + logChiMoment(nu, b)
}

func logNCTConst(nu float64) float64 {
	lg, _ := math.Lgamma(nu / 2)
	return 0.5*nu*math.Log(nu) - 0.5*math.Log(math.Pi) - lg - 0.5*(nu-1)*math.Ln2
}

// logChiMoment returns log ∫₀^∞ y^ν exp(-(y-b)²/2) dy.
//
// The log integrand g has g'' ≤ -1 everywhere, and g'' ≤ -1/σ² below the mode
// with σ = (1+ν/mode²)^{-1/2} ≥ 1/√2. Above the mode it falls at least as fast as
// a Gaussian of unit scale and, far out, at rate ν/mode. The window below keeps
// all but about e^-36 of the mass.
func logChiMoment(nu, b float64) float64 {
	root := math.Sqrt(b*b + 4*nu)
	var mode float64
	if b >= 0 {
		mode = (b + root) / 2
	} else {
		mode = 2 * nu / (root - b)
	}
	g := func(y float64) float64 {
		return nu*math.Log(y) - 0.5*(y-b)*(y-b)
	}
	peak := g(mode)
	sigma := 1 / math.Sqrt(1+nu/(mode*mode))
	lo := math.Max(0, mode-8.5*sigma)
	hi := mode + math.Min(8.5, 8.5*sigma+50*mode/nu)
	sum := gl48.integrate(func(y float64) float64 {
		return math.Exp(g(y) - peak)
	}, lo, hi)
	return peak + math.Log(sum)
}
