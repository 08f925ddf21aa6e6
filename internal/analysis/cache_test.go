package analysis

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobfda/domain/bfda"
	"gobfda/internal/metrics"
)

func TestCache_Memoizes(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := NewCache(0, m)
	r := standard()
	cfg := bfda.AnalysisConfig{Design: bfda.AnalysisSequential, Boundary: bfda.Symmetric(3)}

	first, err := c.Analyze(r, cfg)
	require.NoError(t, err)
	second, err := c.Analyze(r, cfg)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())

	other, err := c.Analyze(r, bfda.AnalysisConfig{Design: bfda.AnalysisSequential, Boundary: bfda.Symmetric(6)})
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("sequential", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("sequential", "miss")))

	c.Invalidate(r.ID)
	assert.Zero(t, c.Len())
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	c := NewCache(0, nil)
	_, err := c.Analyze(standard(), bfda.AnalysisConfig{Design: bfda.AnalysisSequential, Boundary: bfda.Symmetric(3), NMax: 99})
	assert.Error(t, err)
	assert.Zero(t, c.Len())
}

func TestCache_BoundedAndConcurrent(t *testing.T) {
	c := NewCache(2, nil)
	r := standard()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(b float64) {
			defer wg.Done()
			_, err := c.Analyze(r, bfda.AnalysisConfig{Design: bfda.AnalysisFixed, Boundary: bfda.Symmetric(b), N: 20})
			assert.NoError(t, err)
		}(float64(2 + i%4))
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 2)
}

func TestCache_SampleSize(t *testing.T) {
	c := NewCache(0, nil)
	out, err := c.DetermineSampleSize(standard(), bfda.SSDConfig{Design: bfda.AnalysisFixed, Boundary: bfda.Symmetric(3), Power: 0.25})
	require.NoError(t, err)
	assert.Equal(t, 20, out.N)
	assert.Equal(t, 3, c.Len())
}
