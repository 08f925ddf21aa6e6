package bfda

import (
	"fmt"
	"math"
	"time"

	"gobfda/domain/core"
)

// Checkpoint is one look at the data of a replication.
type Checkpoint struct {
	N         int     `json:"n"`
	Statistic float64 `json:"statistic"`
	LogBF10   float64 `json:"log_bf10"`
}

// BF10 returns the Bayes factor on its natural scale. It may overflow to +Inf
// for overwhelming evidence; comparisons should use LogBF10.
func (c Checkpoint) BF10() float64 {
	return math.Exp(c.LogBF10)
}

// Trajectory is one simulated study. Checkpoints are strictly increasing in N.
type Trajectory struct {
	Index        int          `json:"id"`
	EffectSize   float64      `json:"true_es"`
	Checkpoints  []Checkpoint `json:"checkpoints"`
	StoppedEarly bool         `json:"stopped_early,omitempty"`
	Failed       bool         `json:"failed,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// Last returns the final checkpoint of the trajectory.
func (t Trajectory) Last() (Checkpoint, bool) {
	if len(t.Checkpoints) == 0 {
		return Checkpoint{}, false
	}
	return t.Checkpoints[len(t.Checkpoints)-1], true
}

// SimulationResult is the immutable output of one simulation run. Analyses read it
// without locking and never modify it.
type SimulationResult struct {
	ID           core.SimulationID `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	Config       SimulationConfig  `json:"config"`
	Fingerprint  core.Hash         `json:"fingerprint"`
	Trajectories []Trajectory      `json:"trajectories"`
	FailedCount  int               `json:"failed_count"`
	RuntimeMs    int64             `json:"runtime_ms"`
}

// Hypothesis returns the explicit tag of the simulated population.
func (r *SimulationResult) Hypothesis() Hypothesis {
	return r.Config.Hypothesis.Normalize()
}

// Valid returns the trajectories that did not fail, in replication order.
func (r *SimulationResult) Valid() []Trajectory {
	out := make([]Trajectory, 0, len(r.Trajectories))
	for _, t := range r.Trajectories {
		if !t.Failed {
			out = append(out, t)
		}
	}
	return out
}

// EarlyStopped reports whether trajectories were truncated at a stop boundary.
func (r *SimulationResult) EarlyStopped() bool {
	return r.Config.StopBoundary != nil
}

// FailureWarning describes excluded replications, or returns "" when none failed.
func (r *SimulationResult) FailureWarning() string {
	if r.FailedCount == 0 {
		return ""
	}
	return fmt.Sprintf("%d of %d replications failed and were excluded", r.FailedCount, len(r.Trajectories))
}
