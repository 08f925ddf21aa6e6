package app

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/internal"
	"gobfda/internal/metrics"
	"gobfda/ports"
)

// SimulationService runs Monte Carlo simulations of Bayes factor studies
type SimulationService struct {
	rngPort        ports.RNGPort
	newEvaluator   ports.EvaluatorFactory
	newGenerator   ports.GeneratorFactory
	metrics        *metrics.Metrics
	logger         *internal.Logger
	defaultWorkers int
}

// NewSimulationService creates a simulation service. A nil metrics set uses
// metrics.Default.
func NewSimulationService(rngPort ports.RNGPort, newEvaluator ports.EvaluatorFactory, newGenerator ports.GeneratorFactory, m *metrics.Metrics) *SimulationService {
	if m == nil {
		m = metrics.Default
	}
	return &SimulationService{
		rngPort:        rngPort,
		newEvaluator:   newEvaluator,
		newGenerator:   newGenerator,
		metrics:        m,
		logger:         internal.DefaultLogger.With("SimulationService"),
		defaultWorkers: runtime.NumCPU(),
	}
}

// WithDefaultWorkers sets the worker count used when a config leaves cores at 0
func (s *SimulationService) WithDefaultWorkers(n int) *SimulationService {
	if n > 0 {
		s.defaultWorkers = n
	}
	return s
}

// WithLogger replaces the service logger
func (s *SimulationService) WithLogger(l *internal.Logger) *SimulationService {
	s.logger = l.With("SimulationService")
	return s
}

// Run validates cfg, simulates every replication and returns the immutable result.
// Configuration errors are returned before any worker starts. A replication that
// hits a numeric error is recorded as failed and does not abort the batch; only
// cancellation of ctx does.
func (s *SimulationService) Run(ctx context.Context, cfg bfda.SimulationConfig) (*bfda.SimulationResult, error) {
	return s.RunWithProgress(ctx, cfg, nil)
}

// ProgressFunc receives the number of finished replications out of total. It
// is called from worker goroutines, at most once per tenth of the run.
type ProgressFunc func(done, total int)

// RunWithProgress is Run with a progress callback; report may be nil.
func (s *SimulationService) RunWithProgress(ctx context.Context, cfg bfda.SimulationConfig, report ProgressFunc) (*bfda.SimulationResult, error) {
	startTime := time.Now()

	cfg = freeze(cfg.WithDefaults())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	evaluator, err := s.newEvaluator(cfg.Type, cfg.Prior, cfg.Alternative)
	if err != nil {
		return nil, err
	}
	generator, err := s.newGenerator(cfg.Type)
	if err != nil {
		return nil, err
	}
	if cfg.Seed == nil {
		seed := s.rngPort.FreshSeed()
		cfg.Seed = &seed
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = s.defaultWorkers
	}
	if workers > cfg.Replications {
		workers = cfg.Replications
	}

	fingerprint, err := Fingerprint(cfg)
	if err != nil {
		return nil, err
	}

	s.logger.Info("starting %s simulation %s: B=%d, n=%d..%d step %d, %d workers, seed %d",
		cfg.Type, fingerprint.Short(), cfg.Replications, cfg.NMin, cfg.NMax, cfg.StepSize, workers, *cfg.Seed)
	s.metrics.ActiveRuns.Inc()
	defer s.metrics.ActiveRuns.Dec()

	checkpoints := cfg.Checkpoints()
	trajectories := make([]bfda.Trajectory, cfg.Replications)
	progress := newProgress(cfg.Replications, cfg.Verbose, s.logger, report)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < cfg.Replications; i++ {
		if gctx.Err() != nil {
			break
		}
		replication := i
		g.Go(func() error {
			traj, err := s.replicate(gctx, cfg, evaluator, generator, checkpoints, replication)
			if err != nil {
				return err
			}
			trajectories[replication] = traj

			status := "ok"
			if traj.Failed {
				status = "failed"
				s.logger.Debug("replication %d failed: %s", replication, traj.Error)
			}
			s.metrics.ReplicationsTotal.WithLabelValues(string(cfg.Type), status).Inc()
			progress.tick()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.metrics.RunsTotal.WithLabelValues("canceled").Inc()
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		s.metrics.RunsTotal.WithLabelValues("canceled").Inc()
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}

	result := &bfda.SimulationResult{
		ID:           core.NewSimulationID(),
		CreatedAt:    startTime.UTC(),
		Config:       cfg,
		Fingerprint:  fingerprint,
		Trajectories: trajectories,
	}
	for _, t := range trajectories {
		if t.Failed {
			result.FailedCount++
		}
	}
	if warning := result.FailureWarning(); warning != "" {
		s.logger.Warn("%s", warning)
	}

	elapsed := time.Since(startTime)
	result.RuntimeMs = elapsed.Milliseconds()
	s.metrics.RunsTotal.WithLabelValues("success").Inc()
	s.metrics.RunDurationSeconds.WithLabelValues(string(cfg.Type)).Observe(elapsed.Seconds())
	s.logger.Info("simulation %s finished in %dms (%d of %d valid)",
		result.ID, result.RuntimeMs, len(trajectories)-result.FailedCount, len(trajectories))
	return result, nil
}

// replicate simulates one study on its own stream. Numeric problems become a
// failed trajectory; only stream errors (cancellation) are returned.
func (s *SimulationService) replicate(ctx context.Context, cfg bfda.SimulationConfig, evaluator ports.BayesFactorEvaluator,
	generator ports.TrajectoryGenerator, ns []int, replication int) (bfda.Trajectory, error) {
	rng, err := s.rngPort.Stream(ctx, *cfg.Seed, replication)
	if err != nil {
		return bfda.Trajectory{}, err
	}

	traj := bfda.Trajectory{Index: replication, EffectSize: cfg.EffectSize.Draw(rng)}

	var statistics []float64
	if cfg.Design == bfda.DesignFixedN {
		statistics, err = generator.GenerateIndependent(rng, traj.EffectSize, ns)
	} else {
		statistics, err = generator.Generate(rng, traj.EffectSize, ns)
	}
	if err != nil {
		return failed(traj, err), nil
	}

	traj.Checkpoints = make([]bfda.Checkpoint, 0, len(ns))
	for k, n := range ns {
		logBF, err := evaluator.LogBF10(ports.Statistic{N: n, Value: statistics[k]})
		if err != nil {
			return failed(traj, core.NewNumericError(n, err)), nil
		}
		traj.Checkpoints = append(traj.Checkpoints, bfda.Checkpoint{N: n, Statistic: statistics[k], LogBF10: logBF})

		if cfg.StopBoundary != nil && cfg.StopBoundary.Classify(logBF) != bfda.OutcomeInconclusive {
			traj.StoppedEarly = k < len(ns)-1
			break
		}
	}
	return traj, nil
}

// Fingerprint hashes the parts of a config that determine the simulated
// trajectories. Worker count and verbosity do not change them.
func Fingerprint(cfg bfda.SimulationConfig) (core.Hash, error) {
	cfg.Workers = 0
	cfg.Verbose = false
	return core.HashJSON(cfg)
}

func failed(traj bfda.Trajectory, err error) bfda.Trajectory {
	traj.Checkpoints = nil
	traj.Failed = true
	traj.Error = err.Error()
	return traj
}

// freeze copies the reference fields of cfg so the stored result cannot be
// changed through the caller's config.
func freeze(cfg bfda.SimulationConfig) bfda.SimulationConfig {
	if cfg.Seed != nil {
		seed := *cfg.Seed
		cfg.Seed = &seed
	}
	if cfg.StopBoundary != nil {
		b := *cfg.StopBoundary
		cfg.StopBoundary = &b
	}
	if cfg.EffectSize.Fixed != nil {
		cfg.EffectSize = bfda.FixedEffect(*cfg.EffectSize.Fixed)
	} else if cfg.EffectSize.Samples != nil {
		cfg.EffectSize = bfda.EmpiricalEffect(cfg.EffectSize.Samples)
	}
	return cfg
}

// progress logs every tenth of the replications when verbose and forwards the
// same ticks to report.
type progress struct {
	total   int
	step    int64
	done    atomic.Int64
	enabled bool
	logger  *internal.Logger
	report  ProgressFunc
}

func newProgress(total int, enabled bool, logger *internal.Logger, report ProgressFunc) *progress {
	step := int64(total / 10)
	if step < 1 {
		step = 1
	}
	return &progress{total: total, step: step, enabled: enabled, logger: logger, report: report}
}

func (p *progress) tick() {
	done := p.done.Add(1)
	if done%p.step != 0 && int(done) != p.total {
		return
	}
	if p.enabled {
		p.logger.Info("%d/%d replications (%d%%)", done, p.total, int(done)*100/p.total)
	}
	if p.report != nil {
		p.report(int(done), p.total)
	}
}
