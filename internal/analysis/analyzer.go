// Package analysis reduces simulated trajectories to the operating
// characteristics of a design: hit rates, average sample number and the
// distribution of stopping n. It also searches simulated checkpoints for the
// smallest sample size that meets a power or false-positive target.
//
// Analyses only read a SimulationResult, so any number of them may run on the
// same result concurrently.
package analysis

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
)

// QuantilePercents are the percentiles of stopping n reported in a summary.
var QuantilePercents = []float64{25, 50, 75, 80, 90, 95}

// Analyze runs a fixed-n or sequential analysis of result.
func Analyze(result *bfda.SimulationResult, cfg bfda.AnalysisConfig) (*bfda.AnalysisSummary, error) {
	if result == nil {
		return nil, core.NewConfigError("result", "is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		pick     func(t bfda.Trajectory) bfda.Endpoint
		warnings []string
		err      error
	)
	switch cfg.Design {
	case bfda.AnalysisSequential:
		cfg, pick, warnings, err = sequential(result, cfg)
	default:
		pick, warnings, err = fixed(result, cfg)
	}
	if err != nil {
		return nil, err
	}

	valid := result.Valid()
	if len(valid) == 0 {
		return nil, core.NewRangeError("all %d replications failed; nothing to analyze", len(result.Trajectories))
	}

	summary := &bfda.AnalysisSummary{
		SimulationID: result.ID,
		Hypothesis:   result.Hypothesis(),
		Config:       cfg,
		Valid:        len(valid),
		Failed:       result.FailedCount,
		EndpointN:    make([]int, len(valid)),
		Endpoints:    make([]bfda.Endpoint, len(valid)),
	}
	for i, t := range valid {
		e := pick(t)
		summary.Endpoints[i] = e
		summary.EndpointN[i] = e.N
	}
	if err := summarize(summary); err != nil {
		return nil, err
	}
	if w := result.FailureWarning(); w != "" {
		warnings = append(warnings, w)
	}
	summary.Warnings = warnings
	return summary, nil
}

// sequential resolves the scan range against the simulation and returns the
// effective config: defaults filled in and n.min, n.max moved onto simulated
// checkpoints, with a warning for each bound that moved.
func sequential(result *bfda.SimulationResult, cfg bfda.AnalysisConfig) (bfda.AnalysisConfig, func(bfda.Trajectory) bfda.Endpoint, []string, error) {
	sim := result.Config
	if sim.Design == bfda.DesignFixedN {
		return cfg, nil, nil, core.NewRangeError("sequential analysis needs a sequential simulation; this one drew independent samples per n")
	}
	if cfg.NMin == 0 {
		cfg.NMin = sim.NMin
	}
	if cfg.NMax == 0 {
		cfg.NMax = sim.NMax
	}
	if cfg.NMax > sim.NMax {
		return cfg, nil, nil, core.NewRangeError("n.max %d exceeds the simulated n.max %d", cfg.NMax, sim.NMax)
	}
	if cfg.NMin < sim.NMin {
		return cfg, nil, nil, core.NewRangeError("n.min %d is below the simulated n.min %d", cfg.NMin, sim.NMin)
	}
	if cfg.NMin > cfg.NMax {
		return cfg, nil, nil, core.NewConfigError("n_min", fmt.Sprintf("%d exceeds n_max %d", cfg.NMin, cfg.NMax))
	}
	if !hasCheckpointIn(sim.Checkpoints(), cfg.NMin, cfg.NMax) {
		return cfg, nil, nil, core.NewRangeError("no simulated checkpoint lies in [%d, %d]", cfg.NMin, cfg.NMax)
	}
	if stop := sim.StopBoundary; stop != nil {
		if !stop.Contains(cfg.Boundary) {
			return cfg, nil, nil, core.NewRangeError("boundary %s lies outside the stopping boundary %s of the simulation", cfg.Boundary, *stop)
		}
		if cfg.NMin != sim.NMin {
			return cfg, nil, nil, core.NewRangeError("trajectories stopped early; n.min must equal the simulated n.min %d", sim.NMin)
		}
	}

	var warnings []string
	lo, hi := checkpointRange(sim.Checkpoints(), cfg.NMin, cfg.NMax)
	if lo != cfg.NMin {
		warnings = append(warnings, fmt.Sprintf("n.min=%d was not simulated; the first look is at n=%d", cfg.NMin, lo))
		cfg.NMin = lo
	}
	if hi != cfg.NMax {
		warnings = append(warnings, fmt.Sprintf("n.max=%d was not simulated; inconclusive trajectories stop at n=%d", cfg.NMax, hi))
		cfg.NMax = hi
	}

	boundary := cfg.Boundary
	nmin, nmax := cfg.NMin, cfg.NMax
	return cfg, func(t bfda.Trajectory) bfda.Endpoint {
		var last bfda.Checkpoint
		for _, c := range t.Checkpoints {
			if c.N < nmin {
				continue
			}
			if c.N > nmax {
				break
			}
			if o := boundary.Classify(c.LogBF10); o != bfda.OutcomeInconclusive {
				return bfda.Endpoint{Trajectory: t.Index, N: c.N, LogBF10: c.LogBF10, Outcome: o}
			}
			last = c
		}
		return bfda.Endpoint{Trajectory: t.Index, N: last.N, LogBF10: last.LogBF10, Outcome: bfda.OutcomeInconclusive}
	}, warnings, nil
}

func fixed(result *bfda.SimulationResult, cfg bfda.AnalysisConfig) (func(bfda.Trajectory) bfda.Endpoint, []string, error) {
	sim := result.Config
	if result.EarlyStopped() {
		return nil, nil, core.NewRangeError("trajectories stopped early at boundary %s; fixed-n analysis needs complete trajectories", *sim.StopBoundary)
	}
	if cfg.N < sim.NMin || cfg.N > sim.NMax {
		return nil, nil, core.NewRangeError("n %d lies outside the simulated range [%d, %d]", cfg.N, sim.NMin, sim.NMax)
	}

	checkpoints := sim.Checkpoints()
	at := nearest(checkpoints, cfg.N)
	var warnings []string
	if checkpoints[at] != cfg.N {
		warnings = append(warnings, fmt.Sprintf("n=%d was not simulated; using the nearest checkpoint n=%d", cfg.N, checkpoints[at]))
	}

	boundary := cfg.Boundary
	return func(t bfda.Trajectory) bfda.Endpoint {
		c := t.Checkpoints[at]
		return bfda.Endpoint{Trajectory: t.Index, N: c.N, LogBF10: c.LogBF10, Outcome: boundary.Classify(c.LogBF10)}
	}, warnings, nil
}

// nearest returns the index of the checkpoint closest to n; ties go to the
// smaller checkpoint.
func nearest(checkpoints []int, n int) int {
	best := 0
	for i, c := range checkpoints {
		if abs(c-n) < abs(checkpoints[best]-n) {
			best = i
		}
	}
	return best
}

// checkpointRange returns the first and last checkpoints inside [lo, hi]. At
// least one checkpoint must lie in the range.
func checkpointRange(checkpoints []int, lo, hi int) (int, int) {
	first, last := 0, 0
	for _, c := range checkpoints {
		if c < lo || c > hi {
			continue
		}
		if first == 0 {
			first = c
		}
		last = c
	}
	return first, last
}

func hasCheckpointIn(checkpoints []int, lo, hi int) bool {
	for _, c := range checkpoints {
		if c >= lo && c <= hi {
			return true
		}
	}
	return false
}

func summarize(s *bfda.AnalysisSummary) error {
	total := float64(len(s.Endpoints))
	all := make([]float64, 0, len(s.Endpoints))
	var hits []float64
	var upper, lower, towardH1, towardH0 int
	for _, e := range s.Endpoints {
		all = append(all, float64(e.N))
		switch e.Outcome {
		case bfda.OutcomeUpper:
			upper++
			hits = append(hits, float64(e.N))
		case bfda.OutcomeLower:
			lower++
			hits = append(hits, float64(e.N))
		default:
			if e.LogBF10 > 0 {
				towardH1++
			} else if e.LogBF10 < 0 {
				towardH0++
			}
		}
	}

	s.UpperHitFrac = float64(upper) / total
	s.LowerHitFrac = float64(lower) / total
	s.NMaxHitFrac = float64(len(s.Endpoints)-upper-lower) / total
	s.InconclusiveTowardH1Frac = float64(towardH1) / total
	s.InconclusiveTowardH0Frac = float64(towardH0) / total

	var err error
	if s.ASN, err = stats.Mean(all); err != nil {
		return fmt.Errorf("average sample number: %w", err)
	}
	if s.Quantiles, err = quantiles(all); err != nil {
		return err
	}
	if len(hits) > 0 {
		if s.BoundaryHitASN, err = stats.Mean(hits); err != nil {
			return fmt.Errorf("boundary-hit sample number: %w", err)
		}
		if s.BoundaryHitQuantiles, err = quantiles(hits); err != nil {
			return err
		}
	}
	return nil
}

func quantiles(ns []float64) ([]bfda.Quantile, error) {
	out := make([]bfda.Quantile, 0, len(QuantilePercents))
	for _, p := range QuantilePercents {
		v, err := stats.PercentileNearestRank(ns, p)
		if err != nil {
			return nil, fmt.Errorf("quantile %g of stopping n: %w", p, err)
		}
		out = append(out, bfda.Quantile{Percent: p, N: v})
	}
	return out, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
