package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
)

func sampleResult(created time.Time) *bfda.SimulationResult {
	seed := uint64(5)
	return &bfda.SimulationResult{
		ID:        core.NewSimulationID(),
		CreatedAt: created,
		Config: bfda.SimulationConfig{
			Type:         bfda.TestPaired,
			EffectSize:   bfda.FixedEffect(0.4),
			NMin:         10,
			NMax:         20,
			StepSize:     10,
			Replications: 1,
			Seed:         &seed,
		}.WithDefaults(),
		Trajectories: []bfda.Trajectory{
			{Index: 0, EffectSize: 0.4, Checkpoints: []bfda.Checkpoint{{N: 10, Statistic: 1.7, LogBF10: 0.12}, {N: 20, Statistic: 2.2, LogBF10: 0.9}}},
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "results"))
	require.NoError(t, err)
	ctx := context.Background()

	want := sampleResult(time.Date(2024, 3, 2, 1, 0, 0, 123, time.UTC))
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Get(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.Trajectories, got.Trajectories)
	assert.Equal(t, want.Config, got.Config)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")
	assert.Equal(t, want.ID.String()+".json", entries[0].Name())
}

func TestStore_ListAndDelete(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	older := sampleResult(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := sampleResult(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644))

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, bfda.HypothesisUnspecified, list[0].Hypothesis)

	list, err = s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, older.ID))
	_, err = s.Get(ctx, older.ID)
	assert.True(t, core.IsNotFoundError(err))
	assert.True(t, core.IsNotFoundError(s.Delete(ctx, older.ID)))
}

func TestStore_RejectsPathLikeIDs(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = s.Get(context.Background(), core.SimulationID("../etc/passwd"))
	assert.True(t, core.IsNotFoundError(err))

	_, err = New("")
	assert.True(t, core.IsConfigError(err))
}

func TestReadFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := ReadFile(path)
	assert.ErrorContains(t, err, "bad.json")
}
