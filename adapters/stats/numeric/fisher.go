package numeric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"

	"gobfda/domain/core"
)

// LogFisherKernel returns log ∫₀^∞ (cosh w - x)^{-(n-1)} dw for |x| < 1, the part
// of the exact density of Pearson's r on n pairs that depends on ρ through x = ρr.
//
// The substitution u = tanh(w/2), u = c·tan θ with c = √((1-x)/(1+x)) maps the
// integral onto
//
//	2c (1-x)^{-k} ∫₀^Θ (cos²θ - c² sin²θ)^{k-1} dθ,   Θ = atan(1/c), k = n-1,
//
// whose integrand is bounded by 1 and peaks at θ = 0.
func LogFisherKernel(n int, x float64) (float64, error) {
	if n < 3 {
		return 0, fmt.Errorf("%w: fisher kernel needs n >= 3, got %d", core.ErrNumeric, n)
	}
	if !(x > -1 && x < 1) {
		return 0, fmt.Errorf("%w: fisher kernel argument %g outside (-1, 1)", core.ErrNumeric, x)
	}
	if x == 0 {
		return LogFisherKernelZero(n), nil
	}

	k := float64(n - 1)
	c2 := (1 - x) / (1 + x)
	c := math.Sqrt(c2)
	theta := math.Atan2(1, c)

	// (cos²θ - c² sin²θ)^{k-1} ≤ exp(-(k-1)(1+c²)(2θ/π)²), so this cap loses < e^-50.
	upper := theta
	if k > 1 {
		upper = math.Min(theta, 5*math.Pi/math.Sqrt(2*(k-1)*(1+c2)))
	}

	sum := gl48.integrate(func(t float64) float64 {
		s, co := math.Sincos(t)
		v := co*co - c2*s*s
		if v <= 0 {
			return 0
		}
		return math.Exp((k - 1) * math.Log(v))
	}, 0, upper)
	if !(sum > 0) {
		return 0, fmt.Errorf("%w: fisher kernel underflow at n=%d, x=%g", core.ErrNumeric, n, x)
	}

	// log(2c) - k·log(1-x), written to stay finite as x approaches ±1
	logPrefactor := math.Ln2 + 0.5*math.Log1p(-x) - 0.5*math.Log1p(x) - k*math.Log1p(-x)
	return logPrefactor + math.Log(sum), nil
}

// LogFisherKernelZero is LogFisherKernel at x = 0: log(B((n-1)/2, 1/2) / 2).
func LogFisherKernelZero(n int) float64 {
	k := float64(n - 1)
	return mathext.Lbeta(k/2, 0.5) - math.Ln2
}

// LogPearsonDensity returns the log of the exact density of the sample correlation
// r of n bivariate normal pairs with population correlation rho.
func LogPearsonDensity(n int, r, rho float64) (float64, error) {
	if !(r > -1 && r < 1) || !(rho > -1 && rho < 1) {
		return 0, fmt.Errorf("%w: correlation outside (-1, 1)", core.ErrNumeric)
	}
	kernel, err := LogFisherKernel(n, rho*r)
	if err != nil {
		return 0, err
	}
	nf := float64(n)
	return math.Log(nf-2) - math.Log(math.Pi) +
		0.5*(nf-1)*math.Log1p(-rho*rho) +
		0.5*(nf-4)*math.Log1p(-r*r) +
		kernel, nil
}
