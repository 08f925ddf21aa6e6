package numeric

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"gobfda/domain/core"
)

func TestLogIntegrate_Gaussian(t *testing.T) {
	tests := []struct {
		name     string
		mu, sd   float64
		lo, hi   float64
		hints    []float64
		expected float64
	}{
		{"standard", 0, 1, -20, 20, nil, 0},
		{"wide range narrow peak", 3, 0.01, -100, 100, Linspace(2.5, 3.5, 48), 0},
		{"half line", 0, 1, 0, 30, nil, math.Log(0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := distuv.Normal{Mu: tt.mu, Sigma: tt.sd}
			got, err := LogIntegrate(n.LogProb, tt.lo, tt.hi, tt.hints...)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-8)
		})
	}
}

func TestLogIntegrate_ExtremeScale(t *testing.T) {
	// exp(-1000) * ∫ N(0,1) = exp(-1000), far below float64 range
	got, err := LogIntegrate(func(x float64) float64 {
		return -1000 + distuv.UnitNormal.LogProb(x)
	}, -15, 15)
	require.NoError(t, err)
	assert.InDelta(t, -1000, got, 1e-8)
}

func TestLogIntegrate_Errors(t *testing.T) {
	_, err := LogIntegrate(func(x float64) float64 { return math.NaN() }, 0, 1)
	assert.True(t, errors.Is(err, core.ErrNumeric))

	_, err = LogIntegrate(func(x float64) float64 { return math.Inf(-1) }, 0, 1)
	assert.True(t, errors.Is(err, core.ErrNumeric))

	_, err = LogIntegrate(func(x float64) float64 { return 0 }, 1, 1)
	assert.True(t, errors.Is(err, core.ErrNumeric))
}

func TestNoncentralT_CentralAgreement(t *testing.T) {
	for _, nu := range []float64{1, 4, 19, 98, 1998} {
		central := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: nu}
		d := NoncentralT{Nu: nu, Mu: 0}
		for _, x := range []float64{-7, -1.5, 0, 0.3, 2, 12} {
			assert.InDelta(t, central.LogProb(x), d.LogProb(x), 1e-8, "nu=%g t=%g", nu, x)
		}
	}
}

func TestNoncentralT_Normalizes(t *testing.T) {
	for _, tc := range []struct{ nu, mu float64 }{{3, 1}, {10, -2.5}, {60, 6}} {
		d := NoncentralT{Nu: tc.nu, Mu: tc.mu}
		hints := Linspace(tc.mu-10, tc.mu+10, 64)
		logMass, err := LogIntegrate(d.LogProb, -200, 200, hints...)
		require.NoError(t, err)
		assert.InDelta(t, 0, logMass, 1e-6, "nu=%g mu=%g", tc.nu, tc.mu)
	}
}

func TestNoncentralT_ShiftsWithMu(t *testing.T) {
	// the density at t=3 grows as the noncentrality approaches 3
	a := NoncentralT{Nu: 20, Mu: 0}.LogProb(3)
	b := NoncentralT{Nu: 20, Mu: 2}.LogProb(3)
	c := NoncentralT{Nu: 20, Mu: 3}.LogProb(3)
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestFisherKernel_ClosedFormN3(t *testing.T) {
	// for n = 3: ∫ (cosh w - x)^-2 dw = 1/(1-x²) + x·acos(-x)/(1-x²)^{3/2}
	exact := func(x float64) float64 {
		s := 1 - x*x
		return 1/s + x*math.Acos(-x)/math.Pow(s, 1.5)
	}
	for _, x := range []float64{-0.95, -0.7, -0.2, 0, 0.1, 0.5, 0.9, 0.99} {
		got, err := LogFisherKernel(3, x)
		require.NoError(t, err)
		assert.InDelta(t, math.Log(exact(x)), got, 1e-9, "x=%g", x)
	}
}

func TestFisherKernel_ContinuousAtZero(t *testing.T) {
	for _, n := range []int{4, 25, 400} {
		zero := LogFisherKernelZero(n)
		near, err := LogFisherKernel(n, 1e-12)
		require.NoError(t, err)
		assert.InDelta(t, zero, near, 1e-9, "n=%d", n)
	}
}

func TestPearsonDensity_Normalizes(t *testing.T) {
	for _, tc := range []struct {
		n   int
		rho float64
	}{{5, 0}, {12, 0.5}, {50, -0.8}, {200, 0.3}} {
		logf := func(r float64) float64 {
			v, err := LogPearsonDensity(tc.n, r, tc.rho)
			if err != nil {
				return math.Inf(-1)
			}
			return v
		}
		hints := Linspace(math.Max(-0.999999, tc.rho-0.5), math.Min(0.999999, tc.rho+0.5), 64)
		logMass, err := LogIntegrate(logf, -0.999999, 0.999999, hints...)
		require.NoError(t, err)
		assert.InDelta(t, 0, logMass, 1e-5, "n=%d rho=%g", tc.n, tc.rho)
	}
}

func TestFisherKernel_RejectsBadInput(t *testing.T) {
	_, err := LogFisherKernel(2, 0.5)
	assert.True(t, errors.Is(err, core.ErrNumeric))
	_, err = LogFisherKernel(10, 1)
	assert.True(t, errors.Is(err, core.ErrNumeric))
}
