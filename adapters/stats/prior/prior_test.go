package prior

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobfda/adapters/stats/numeric"
	"gobfda/domain/bfda"
	"gobfda/domain/core"
)

func integrate(t *testing.T, d *Density) float64 {
	t.Helper()
	lo, hi := d.Bulk()
	logMass, err := numeric.LogIntegrate(d.LogDensity, lo, hi)
	require.NoError(t, err)
	return math.Exp(logMass)
}

func TestCauchyDensity(t *testing.T) {
	scale := math.Sqrt2 / 2
	d, err := New(bfda.TestPaired, bfda.CauchyPrior(0, scale))
	require.NoError(t, err)

	assert.InDelta(t, -math.Log(math.Pi*scale), d.LogDensity(0), 1e-12)
	assert.InDelta(t, d.LogDensity(0.3), d.LogDensity(-0.3), 1e-12)

	half, err := d.Truncate(bfda.Greater)
	require.NoError(t, err)
	assert.InDelta(t, d.LogDensity(0.3)+math.Ln2, half.LogDensity(0.3), 1e-12)
	assert.True(t, math.IsInf(half.LogDensity(-0.3), -1))

	lo, hi := half.Support()
	assert.Equal(t, 0.0, lo)
	assert.True(t, math.IsInf(hi, 1))
}

func TestDensitiesNormalize(t *testing.T) {
	tests := []struct {
		name string
		test bfda.TestType
		p    bfda.Prior
		alt  bfda.Alternative
	}{
		{"normal", bfda.TestBetween, bfda.NormalPrior(0.35, 0.02), bfda.TwoSided},
		{"normal greater", bfda.TestBetween, bfda.NormalPrior(0.35, 0.02), bfda.Greater},
		{"normal less", bfda.TestBetween, bfda.NormalPrior(0.35, 0.1), bfda.Less},
		{"t", bfda.TestPaired, bfda.TPrior(0.2, 0.1, 30), bfda.TwoSided},
		{"stretched beta uniform", bfda.TestCorrelation, bfda.StretchedBetaPrior(1), bfda.TwoSided},
		{"stretched beta wide", bfda.TestCorrelation, bfda.StretchedBetaPrior(0.5), bfda.Greater},
		{"stretched beta peaked", bfda.TestCorrelation, bfda.StretchedBetaPrior(0.2), bfda.Less},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ForAlternative(tt.test, tt.p, tt.alt)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, integrate(t, d), 1e-6)
		})
	}
}

func TestStretchedBetaUniform(t *testing.T) {
	d, err := New(bfda.TestCorrelation, bfda.StretchedBetaPrior(1))
	require.NoError(t, err)
	for _, rho := range []float64{-0.9, -0.1, 0, 0.5, 0.99} {
		assert.InDelta(t, -math.Ln2, d.LogDensity(rho), 1e-12)
	}
	assert.True(t, math.IsInf(d.LogDensity(1), -1))

	lo, hi := d.Bulk()
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestPriorRejectsMismatchedDesign(t *testing.T) {
	_, err := New(bfda.TestCorrelation, bfda.CauchyPrior(0, 1))
	assert.True(t, core.IsConfigError(err))

	_, err = New(bfda.TestBetween, bfda.StretchedBetaPrior(1))
	assert.True(t, core.IsConfigError(err))

	_, err = New(bfda.TestBetween, bfda.NormalPrior(0, 0))
	assert.True(t, core.IsConfigError(err))
}

func TestBulkAnchorsAtCut(t *testing.T) {
	d, err := ForAlternative(bfda.TestBetween, bfda.CauchyPrior(-1, 0.01), bfda.Greater)
	require.NoError(t, err)
	lo, hi := d.Bulk()
	assert.Equal(t, 0.0, lo)
	assert.InDelta(t, 0.4, hi, 1e-12)

	_, err = ForAlternative(bfda.TestBetween, bfda.NormalPrior(-5, 0.01), bfda.Greater)
	assert.True(t, core.IsConfigError(err), "a normal this far below zero has no mass above it")
}
