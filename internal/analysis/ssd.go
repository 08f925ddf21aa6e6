package analysis

import (
	"fmt"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
)

// DetermineSampleSize analyzes result at every simulated checkpoint and reports
// the smallest one meeting the target. H1 simulations need upper.hit.frac >=
// Power. H0 simulations need upper.hit.frac <= Alpha and, when Power > 0,
// lower.hit.frac >= Power. The fixed design analyzes at n, the sequential
// design with n.max = n.
//
// When no candidate qualifies the populated result is returned together with
// an error wrapping core.ErrTargetNotReached.
func DetermineSampleSize(result *bfda.SimulationResult, cfg bfda.SSDConfig) (*bfda.SSDResult, error) {
	return determine(result, cfg, Analyze)
}

type analyzeFunc func(*bfda.SimulationResult, bfda.AnalysisConfig) (*bfda.AnalysisSummary, error)

func determine(result *bfda.SimulationResult, cfg bfda.SSDConfig, analyze analyzeFunc) (*bfda.SSDResult, error) {
	if result == nil {
		return nil, core.NewConfigError("result", "is required")
	}
	hypothesis := result.Hypothesis()
	if err := validateSSD(hypothesis, cfg); err != nil {
		return nil, err
	}

	out := &bfda.SSDResult{
		SimulationID: result.ID,
		Hypothesis:   hypothesis,
		Config:       cfg,
	}
	for _, n := range result.Config.Checkpoints() {
		ac := bfda.AnalysisConfig{Design: cfg.Design, Boundary: cfg.Boundary}
		if cfg.Design == bfda.AnalysisFixed {
			ac.N = n
		} else {
			ac.NMax = n
		}
		summary, err := analyze(result, ac)
		if err != nil {
			return nil, fmt.Errorf("candidate n=%d: %w", n, err)
		}

		row := bfda.SSDRow{
			N:                n,
			UpperHitFrac:     summary.UpperHitFrac,
			LowerHitFrac:     summary.LowerHitFrac,
			InconclusiveFrac: summary.NMaxHitFrac,
			ASN:              summary.ASN,
			Meets:            meets(hypothesis, cfg, summary),
		}
		out.Rows = append(out.Rows, row)
		if row.Meets && !out.Found {
			out.Found = true
			out.N = n
		}
	}
	if w := result.FailureWarning(); w != "" {
		out.Warnings = append(out.Warnings, w)
	}

	if !out.Found {
		return out, fmt.Errorf("%w: %s", core.ErrTargetNotReached, describeTarget(hypothesis, cfg, result.Config.NMax))
	}
	return out, nil
}

func validateSSD(h bfda.Hypothesis, cfg bfda.SSDConfig) error {
	if cfg.Design != bfda.AnalysisFixed && cfg.Design != bfda.AnalysisSequential {
		return core.NewConfigError("design", "must be fixed or sequential, got "+string(cfg.Design))
	}
	if err := cfg.Boundary.Validate(); err != nil {
		return err
	}
	switch h {
	case bfda.HypothesisH1:
		if !(cfg.Power > 0 && cfg.Power < 1) {
			return core.NewConfigError("power", fmt.Sprintf("must lie in (0, 1) for an H1 simulation, got %g", cfg.Power))
		}
	case bfda.HypothesisH0:
		if !(cfg.Alpha > 0 && cfg.Alpha < 1) {
			return core.NewConfigError("alpha", fmt.Sprintf("must lie in (0, 1) for an H0 simulation, got %g", cfg.Alpha))
		}
		if cfg.Power < 0 || cfg.Power >= 1 {
			return core.NewConfigError("power", fmt.Sprintf("must lie in [0, 1) for an H0 simulation, got %g", cfg.Power))
		}
	default:
		return fmt.Errorf("%w: tag the simulation as H1 or H0 before determining a sample size", core.ErrAmbiguousHypothesis)
	}
	return nil
}

func meets(h bfda.Hypothesis, cfg bfda.SSDConfig, s *bfda.AnalysisSummary) bool {
	if h == bfda.HypothesisH1 {
		return s.UpperHitFrac >= cfg.Power
	}
	if s.UpperHitFrac > cfg.Alpha {
		return false
	}
	return cfg.Power == 0 || s.LowerHitFrac >= cfg.Power
}

func describeTarget(h bfda.Hypothesis, cfg bfda.SSDConfig, nmax int) string {
	if h == bfda.HypothesisH1 {
		return fmt.Sprintf("power %g at boundary %s is not reached by n=%d", cfg.Power, cfg.Boundary, nmax)
	}
	if cfg.Power > 0 {
		return fmt.Sprintf("alpha %g with power %g for H0 at boundary %s is not reached by n=%d", cfg.Alpha, cfg.Power, cfg.Boundary, nmax)
	}
	return fmt.Sprintf("alpha %g at boundary %s is not reached by n=%d", cfg.Alpha, cfg.Boundary, nmax)
}
