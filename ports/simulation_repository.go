package ports

import (
	"context"
	"time"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
)

// SimulationSummary is the listing view of a stored simulation
type SimulationSummary struct {
	ID           core.SimulationID   `json:"id" db:"id"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`
	Type         bfda.TestType       `json:"type" db:"test_type"`
	Design       bfda.SamplingDesign `json:"design" db:"design"`
	Hypothesis   bfda.Hypothesis     `json:"hypothesis" db:"hypothesis"`
	Replications int                 `json:"B" db:"replications"`
	NMin         int                 `json:"n_min" db:"n_min"`
	NMax         int                 `json:"n_max" db:"n_max"`
	FailedCount  int                 `json:"failed_count" db:"failed_count"`
	Fingerprint  core.Hash           `json:"fingerprint" db:"fingerprint"`
}

// SummaryOf builds the listing view of a result
func SummaryOf(r *bfda.SimulationResult) SimulationSummary {
	return SimulationSummary{
		ID:           r.ID,
		CreatedAt:    r.CreatedAt,
		Type:         r.Config.Type,
		Design:       r.Config.Design,
		Hypothesis:   r.Hypothesis(),
		Replications: r.Config.Replications,
		NMin:         r.Config.NMin,
		NMax:         r.Config.NMax,
		FailedCount:  r.FailedCount,
		Fingerprint:  r.Fingerprint,
	}
}

// SimulationRepository stores simulation results
type SimulationRepository interface {
	// Save stores a result, replacing any result with the same ID
	Save(ctx context.Context, result *bfda.SimulationResult) error

	// Get loads a full result including trajectories
	Get(ctx context.Context, id core.SimulationID) (*bfda.SimulationResult, error)

	// List returns summaries, newest first
	List(ctx context.Context, limit int) ([]SimulationSummary, error)

	Delete(ctx context.Context, id core.SimulationID) error
}
