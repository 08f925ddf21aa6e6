package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/internal/analysis"
	apperrors "gobfda/internal/errors"
	"gobfda/internal/testkit"
)

func newDesignService(t *testing.T) (*DesignService, *testkit.MemoryRepository, *analysis.Cache) {
	t.Helper()
	sim, m := newTestService(t, nil)
	repo := testkit.NewMemoryRepository()
	cache := analysis.NewCache(0, m)
	return NewDesignService(sim, repo, cache), repo, cache
}

func TestDesignService_SimulateAnalyzeDelete(t *testing.T) {
	ctx := context.Background()
	svc, repo, cache := newDesignService(t)

	result, err := svc.Simulate(ctx, testkit.SmallConfig(bfda.HypothesisH1))
	require.NoError(t, err)

	stored, err := repo.Get(ctx, result.ID)
	require.NoError(t, err)
	assert.Same(t, result, stored)

	cfg := bfda.AnalysisConfig{Design: bfda.AnalysisSequential, Boundary: bfda.Symmetric(3)}
	summary, err := svc.Analyze(ctx, result.ID, cfg)
	require.NoError(t, err)
	assert.Equal(t, 20, summary.Valid)
	assert.Equal(t, 1, cache.Len())

	again, err := svc.Analyze(ctx, result.ID, cfg)
	require.NoError(t, err)
	assert.Same(t, summary, again)

	ssd, err := svc.DetermineSampleSize(ctx, result.ID, bfda.SSDConfig{Design: bfda.AnalysisFixed, Boundary: bfda.Symmetric(3), Power: 0.01})
	if err != nil {
		assert.ErrorIs(t, err, core.ErrTargetNotReached)
	}
	require.NotNil(t, ssd)
	assert.Len(t, ssd.Rows, 3)

	list, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, result.ID, list[0].ID)

	require.NoError(t, svc.Delete(ctx, result.ID))
	assert.Equal(t, 0, cache.Len())
	_, err = svc.Analyze(ctx, result.ID, cfg)
	assert.True(t, core.IsNotFoundError(err))
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeFor(err))
}

func TestDesignService_SimulateConfigErrorSkipsStorage(t *testing.T) {
	sim, m := newTestService(t, nil)
	repo := &testkit.MockRepository{}
	svc := NewDesignService(sim, repo, analysis.NewCache(0, m))

	cfg := testkit.SmallConfig(bfda.HypothesisH1)
	cfg.NMax = 5
	_, err := svc.Simulate(context.Background(), cfg)

	assert.True(t, core.IsConfigError(err))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDesignService_StorageFailures(t *testing.T) {
	ctx := context.Background()
	sim, m := newTestService(t, nil)
	repo := &testkit.MockRepository{}
	svc := NewDesignService(sim, repo, analysis.NewCache(0, m))

	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	_, err := svc.Simulate(ctx, testkit.SmallConfig(bfda.HypothesisH0))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStorage, apperrors.GetCode(err))

	id := core.NewSimulationID()
	repo.On("Get", mock.Anything, id).Return(nil, core.NewNotFoundError("simulation", id.String())).Once()
	_, err = svc.Get(ctx, id)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeFor(err))

	repo.On("Delete", mock.Anything, id).Return(errors.New("connection reset")).Once()
	err = svc.Delete(ctx, id)
	assert.Equal(t, apperrors.CodeStorage, apperrors.CodeFor(err))

	repo.AssertExpectations(t)
}
