package app

import (
	"context"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/internal"
	"gobfda/internal/analysis"
	apperrors "gobfda/internal/errors"
	"gobfda/ports"
)

// DesignService ties simulation, storage and analysis together: simulations are
// run once, stored, and analyzed by ID as often as needed.
type DesignService struct {
	simulations *SimulationService
	repo        ports.SimulationRepository
	analyses    *analysis.Cache
	logger      *internal.Logger
}

// NewDesignService creates a design service
func NewDesignService(simulations *SimulationService, repo ports.SimulationRepository, analyses *analysis.Cache) *DesignService {
	return &DesignService{
		simulations: simulations,
		repo:        repo,
		analyses:    analyses,
		logger:      internal.DefaultLogger.With("DesignService"),
	}
}

// Simulate runs a simulation and stores its result
func (s *DesignService) Simulate(ctx context.Context, cfg bfda.SimulationConfig) (*bfda.SimulationResult, error) {
	return s.SimulateWithProgress(ctx, cfg, nil)
}

// SimulateWithProgress is Simulate with a progress callback; report may be nil.
func (s *DesignService) SimulateWithProgress(ctx context.Context, cfg bfda.SimulationConfig, report ProgressFunc) (*bfda.SimulationResult, error) {
	result, err := s.simulations.RunWithProgress(ctx, cfg, report)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, result); err != nil {
		return nil, apperrors.StorageError("failed to store simulation", err)
	}
	s.logger.Info("stored simulation %s", result.ID)
	return result, nil
}

// Get loads a stored simulation
func (s *DesignService) Get(ctx context.Context, id core.SimulationID) (*bfda.SimulationResult, error) {
	result, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, storageError("failed to load simulation", err)
	}
	return result, nil
}

// List returns stored simulations, newest first
func (s *DesignService) List(ctx context.Context, limit int) ([]ports.SimulationSummary, error) {
	summaries, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, storageError("failed to list simulations", err)
	}
	return summaries, nil
}

// Delete removes a simulation and every cached analysis of it
func (s *DesignService) Delete(ctx context.Context, id core.SimulationID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storageError("failed to delete simulation", err)
	}
	s.analyses.Invalidate(id)
	s.logger.Info("deleted simulation %s", id)
	return nil
}

// Analyze computes the operating characteristics of a design on a stored simulation
func (s *DesignService) Analyze(ctx context.Context, id core.SimulationID, cfg bfda.AnalysisConfig) (*bfda.AnalysisSummary, error) {
	result, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.analyses.Analyze(result, cfg)
}

// DetermineSampleSize searches a stored simulation for the smallest adequate n.
// When no candidate qualifies it returns the populated result together with an
// error wrapping core.ErrTargetNotReached.
func (s *DesignService) DetermineSampleSize(ctx context.Context, id core.SimulationID, cfg bfda.SSDConfig) (*bfda.SSDResult, error) {
	result, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.analyses.DetermineSampleSize(result, cfg)
}

// storageError keeps not-found errors recognizable and tags the rest as storage failures
func storageError(msg string, err error) error {
	if core.IsNotFoundError(err) {
		return err
	}
	return apperrors.StorageError(msg, err)
}
