package bfda

import (
	"gobfda/domain/core"
)

// AnalysisDesign selects how trajectories are reduced to decisions.
type AnalysisDesign string

const (
	AnalysisFixed      AnalysisDesign = "fixed"
	AnalysisSequential AnalysisDesign = "sequential"
)

// AnalysisConfig describes one analysis of a simulation. Zero NMin/NMax default
// to the simulation's own range for sequential analysis.
type AnalysisConfig struct {
	Design   AnalysisDesign `json:"design" yaml:"design"`
	Boundary Boundary       `json:"boundary" yaml:"boundary"`
	N        int            `json:"n,omitempty" yaml:"n,omitempty"`
	NMin     int            `json:"n_min,omitempty" yaml:"n_min,omitempty"`
	NMax     int            `json:"n_max,omitempty" yaml:"n_max,omitempty"`
}

// Validate checks the analysis config on its own; range checks against the
// simulation happen in the analyzer.
func (c AnalysisConfig) Validate() error {
	switch c.Design {
	case AnalysisFixed:
		if c.N <= 0 {
			return core.NewConfigError("n", "fixed-n analysis needs n > 0")
		}
	case AnalysisSequential:
		if c.NMin < 0 || c.NMax < 0 {
			return core.NewConfigError("n_max", "must not be negative")
		}
		if c.NMin > 0 && c.NMax > 0 && c.NMin > c.NMax {
			return core.NewConfigError("n_min", "must not exceed n_max")
		}
	default:
		return core.NewConfigError("design", "must be fixed or sequential, got "+string(c.Design))
	}
	return c.Boundary.Validate()
}

// Outcome classifies a trajectory at its stopping point.
type Outcome string

const (
	OutcomeUpper        Outcome = "upper"
	OutcomeLower        Outcome = "lower"
	OutcomeInconclusive Outcome = "inconclusive"
)

// Endpoint records where and how one trajectory stopped.
type Endpoint struct {
	Trajectory int     `json:"id"`
	N          int     `json:"n"`
	LogBF10    float64 `json:"log_bf10"`
	Outcome    Outcome `json:"outcome"`
}

// Quantile is one percentile of the stopping-n distribution.
type Quantile struct {
	Percent float64 `json:"percent"`
	N       float64 `json:"n"`
}

// AnalysisSummary holds the operating characteristics of a design. Field names in
// JSON follow the dotted names consumers read (endpoint.n, ASN, upper.hit.frac, ...).
type AnalysisSummary struct {
	SimulationID core.SimulationID `json:"simulation_id"`
	Hypothesis   Hypothesis        `json:"hypothesis"`
	Config       AnalysisConfig    `json:"config"`

	Valid  int `json:"n.valid"`
	Failed int `json:"n.failed"`

	EndpointN []int      `json:"endpoint.n"`
	Endpoints []Endpoint `json:"endpoints"`

	ASN          float64 `json:"ASN"`
	UpperHitFrac float64 `json:"upper.hit.frac"`
	LowerHitFrac float64 `json:"lower.hit.frac"`
	NMaxHitFrac  float64 `json:"n.max.hit.frac"`

	Quantiles            []Quantile `json:"endpoint.n.quantiles"`
	BoundaryHitASN       float64    `json:"boundary.hit.ASN"`
	BoundaryHitQuantiles []Quantile `json:"boundary.hit.quantiles,omitempty"`

	InconclusiveTowardH1Frac float64 `json:"inconclusive.toward.h1.frac"`
	InconclusiveTowardH0Frac float64 `json:"inconclusive.toward.h0.frac"`

	Warnings []string `json:"warnings,omitempty"`
}

// QuantileAt returns the stopping n at the given percent, if it was computed.
func (s *AnalysisSummary) QuantileAt(percent float64) (float64, bool) {
	for _, q := range s.Quantiles {
		if q.Percent == percent {
			return q.N, true
		}
	}
	return 0, false
}

// SSDConfig is a sample-size determination request. H1 simulations search on
// Power, H0 simulations on Alpha (and Power for the rate of evidence for H0 when > 0).
type SSDConfig struct {
	Design   AnalysisDesign `json:"design" yaml:"design"`
	Boundary Boundary       `json:"boundary" yaml:"boundary"`
	Power    float64        `json:"power,omitempty" yaml:"power,omitempty"`
	Alpha    float64        `json:"alpha,omitempty" yaml:"alpha,omitempty"`
}

// SSDRow is the analysis of one candidate sample size.
type SSDRow struct {
	N                int     `json:"n"`
	UpperHitFrac     float64 `json:"upper.hit.frac"`
	LowerHitFrac     float64 `json:"lower.hit.frac"`
	InconclusiveFrac float64 `json:"n.max.hit.frac"`
	ASN              float64 `json:"ASN"`
	Meets            bool    `json:"meets_target"`
}

// SSDResult reports the smallest candidate meeting the target. N is zero when
// Found is false.
type SSDResult struct {
	SimulationID core.SimulationID `json:"simulation_id"`
	Hypothesis   Hypothesis        `json:"hypothesis"`
	Config       SSDConfig         `json:"config"`
	Found        bool              `json:"found"`
	N            int               `json:"n"`
	Rows         []SSDRow          `json:"rows"`
	Warnings     []string          `json:"warnings,omitempty"`
}
