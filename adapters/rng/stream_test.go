package rng

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobfda/domain/core"
)

func draws(t *testing.T, a *StreamAdapter, seed uint64, rep int) []uint64 {
	t.Helper()
	r, err := a.Stream(context.Background(), seed, rep)
	require.NoError(t, err)
	out := make([]uint64, 8)
	for i := range out {
		out[i] = r.Uint64()
	}
	return out
}

func TestStream_Deterministic(t *testing.T) {
	a := NewStreamAdapter()
	assert.Equal(t, draws(t, a, 42, 3), draws(t, a, 42, 3))
	assert.NotEqual(t, draws(t, a, 42, 3), draws(t, a, 42, 4))
	assert.NotEqual(t, draws(t, a, 42, 3), draws(t, a, 43, 3))
}

func TestStream_Errors(t *testing.T) {
	a := NewStreamAdapter()
	_, err := a.Stream(context.Background(), 1, -1)
	assert.True(t, core.IsConfigError(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Stream(ctx, 1, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitmix_Distinct(t *testing.T) {
	seen := make(map[uint64]bool)
	for i := uint64(0); i < 1000; i++ {
		v := splitmix(i)
		assert.False(t, seen[v])
		seen[v] = true
	}
}
