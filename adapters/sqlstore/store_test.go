package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleResult(created time.Time) *bfda.SimulationResult {
	seed := uint64(17)
	stop := bfda.Symmetric(10)
	cfg := bfda.SimulationConfig{
		Type:         bfda.TestBetween,
		EffectSize:   bfda.EmpiricalEffect([]float64{0.2, 0.5}),
		Hypothesis:   bfda.HypothesisH1,
		NMin:         10,
		NMax:         30,
		StepSize:     10,
		Replications: 3,
		Seed:         &seed,
		StopBoundary: &stop,
	}.WithDefaults()
	return &bfda.SimulationResult{
		ID:          core.NewSimulationID(),
		CreatedAt:   created,
		Config:      cfg,
		Fingerprint: core.NewHash([]byte("cfg")),
		Trajectories: []bfda.Trajectory{
			{Index: 0, EffectSize: 0.2, Checkpoints: []bfda.Checkpoint{{N: 10, Statistic: 1.1, LogBF10: -0.25}, {N: 20, Statistic: 2.9, LogBF10: 2.4}}, StoppedEarly: true},
			{Index: 1, EffectSize: 0.5, Failed: true, Error: "at n=10: numeric error: degenerate sample"},
			{Index: 2, EffectSize: 0.5, Checkpoints: []bfda.Checkpoint{{N: 10, Statistic: 0.1, LogBF10: -1}, {N: 20, Statistic: 0.4, LogBF10: -1.5}, {N: 30, Statistic: 0.2, LogBF10: -2.0000000000000004}}},
		},
		FailedCount: 1,
		RuntimeMs:   42,
	}
}

func TestStore_SaveGet(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	want := sampleResult(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, s.Save(ctx, want))
	got, err := s.Get(ctx, want.ID)
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.Config, got.Config)
	assert.Equal(t, want.Trajectories, got.Trajectories)
	assert.Equal(t, want.FailedCount, got.FailedCount)
	assert.Equal(t, want.Fingerprint, got.Fingerprint)
	assert.Equal(t, int64(42), got.RuntimeMs)
}

func TestStore_SaveReplaces(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	r := sampleResult(time.Now())
	require.NoError(t, s.Save(ctx, r))

	r.Trajectories = r.Trajectories[:1]
	r.FailedCount = 0
	require.NoError(t, s.Save(ctx, r))

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, got.Trajectories, 1)
	assert.Zero(t, got.FailedCount)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []core.SimulationID
	for i := 0; i < 3; i++ {
		r := sampleResult(base.Add(time.Duration(i) * time.Hour))
		require.NoError(t, s.Save(ctx, r))
		ids = append(ids, r.ID)
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)
	assert.Equal(t, bfda.TestBetween, all[0].Type)
	assert.Equal(t, bfda.HypothesisH1, all[0].Hypothesis)
	assert.Equal(t, 3, all[0].Replications)

	two, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestStore_NotFound(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	_, err := s.Get(ctx, core.NewSimulationID())
	assert.True(t, core.IsNotFoundError(err))
	assert.ErrorIs(t, err, core.ErrSimulationNotFound)

	r := sampleResult(time.Now())
	require.NoError(t, s.Save(ctx, r))
	require.NoError(t, s.Delete(ctx, r.ID))
	_, err = s.Get(ctx, r.ID)
	assert.True(t, core.IsNotFoundError(err))
	assert.True(t, core.IsNotFoundError(s.Delete(ctx, r.ID)))
}

func TestDriverFor(t *testing.T) {
	assert.Equal(t, "postgres", DriverFor("postgres://user@localhost/bfda"))
	assert.Equal(t, "postgres", DriverFor("postgresql://localhost/bfda"))
	assert.Equal(t, "sqlite", DriverFor("results.db"))
	assert.Equal(t, "sqlite", DriverFor(":memory:"))

	_, err := Open(context.Background(), " ")
	assert.True(t, core.IsConfigError(err))
}
