package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gobfda/adapters/rng"
	"gobfda/adapters/stats/bayesfactor"
	"gobfda/adapters/stats/generator"
	"gobfda/app"
	"gobfda/domain/bfda"
	"gobfda/internal/analysis"
	"gobfda/internal/config"
	"gobfda/internal/metrics"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bfda-dev",
		Short: "BFDA development tools",
	}

	rootCmd.AddCommand(
		newSeedCmd(),
		newSmokeTestCmd(),
		newDeterminismTestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write example simulation configs for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeExampleConfigs(dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./examples", "Directory for the example configs")
	return cmd
}

func newSmokeTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run smoke tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmokeTests(cmd.Context())
		},
	}
	return cmd
}

func newDeterminismTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "determinism [config]",
		Short: "Run a config twice with the same seed and compare the trajectories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSimulationFile(args[0])
			if err != nil {
				return err
			}
			return testDeterminism(cmd.Context(), cfg)
		},
	}
	return cmd
}

func newService() *app.SimulationService {
	return app.NewSimulationService(rng.NewStreamAdapter(), bayesfactor.New, generator.NewTrajectoryGenerator, metrics.Default)
}

func exampleConfigs() map[string]bfda.SimulationConfig {
	seed := uint64(2024)
	return map[string]bfda.SimulationConfig{
		"paired_h1.yaml": {
			Type: bfda.TestPaired, Hypothesis: bfda.HypothesisH1, EffectSize: bfda.FixedEffect(0.5),
			NMin: 10, NMax: 100, StepSize: 5, Replications: 1000, Seed: &seed,
		},
		"paired_h0.yaml": {
			Type: bfda.TestPaired, Hypothesis: bfda.HypothesisH0, EffectSize: bfda.FixedEffect(0),
			NMin: 10, NMax: 100, StepSize: 5, Replications: 1000, Seed: &seed,
		},
		"between_empirical.yaml": {
			Type: bfda.TestBetween, Hypothesis: bfda.HypothesisH1,
			EffectSize: bfda.EmpiricalEffect([]float64{0.2, 0.35, 0.4, 0.5, 0.65}),
			Prior:      bfda.CauchyPrior(0, math.Sqrt2/2), Alternative: bfda.Greater,
			NMin: 20, NMax: 200, StepSize: 10, Replications: 500, Seed: &seed,
		},
		"correlation_h1.yaml": {
			Type: bfda.TestCorrelation, Hypothesis: bfda.HypothesisH1, EffectSize: bfda.FixedEffect(0.3),
			Prior: bfda.StretchedBetaPrior(1), NMin: 10, NMax: 150, StepSize: 10, Replications: 500, Seed: &seed,
		},
	}
}

func writeExampleConfigs(dir string) error {
	fmt.Printf("Writing example configs to %s...\n", dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	for name, cfg := range exampleConfigs() {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		fmt.Printf("Wrote %s\n", name)
	}
	return nil
}

func runSmokeTests(ctx context.Context) error {
	fmt.Println("Running smoke tests...")

	svc := newService()
	small := func(cfg bfda.SimulationConfig) bfda.SimulationConfig {
		cfg.NMax = cfg.NMin + 2*cfg.StepSize
		cfg.Replications = 20
		return cfg
	}
	examples := exampleConfigs()

	tests := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"paired_sequential", func(ctx context.Context) error {
			result, err := svc.Run(ctx, small(examples["paired_h1.yaml"]))
			if err != nil {
				return err
			}
			_, err = analysis.Analyze(result, bfda.AnalysisConfig{Design: bfda.AnalysisSequential, Boundary: bfda.Symmetric(6)})
			return err
		}},
		{"between_empirical_fixed", func(ctx context.Context) error {
			cfg := small(examples["between_empirical.yaml"])
			result, err := svc.Run(ctx, cfg)
			if err != nil {
				return err
			}
			_, err = analysis.Analyze(result, bfda.AnalysisConfig{Design: bfda.AnalysisFixed, Boundary: bfda.Symmetric(3), N: cfg.NMax})
			return err
		}},
		{"correlation_ssd", func(ctx context.Context) error {
			result, err := svc.Run(ctx, small(examples["correlation_h1.yaml"]))
			if err != nil {
				return err
			}
			ssd, err := analysis.DetermineSampleSize(result, bfda.SSDConfig{Design: bfda.AnalysisFixed, Boundary: bfda.Symmetric(3), Power: 0.5})
			if ssd == nil {
				return err
			}
			return nil
		}},
	}

	passed := 0
	for _, test := range tests {
		fmt.Printf("  Running %s...", test.name)
		if err := test.fn(ctx); err != nil {
			fmt.Printf(" FAILED: %v\n", err)
		} else {
			fmt.Println(" PASSED")
			passed++
		}
	}

	fmt.Printf("\nSmoke tests: %d/%d passed\n", passed, len(tests))
	if passed < len(tests) {
		return fmt.Errorf("some smoke tests failed")
	}

	return nil
}

func testDeterminism(ctx context.Context, cfg bfda.SimulationConfig) error {
	svc := newService()
	first, err := svc.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to run simulation: %w", err)
	}
	fmt.Printf("Testing determinism with seed %d...\n", *first.Config.Seed)

	// replay with the recorded seed and a different worker count
	replayCfg := first.Config
	replayCfg.Workers = first.Config.Workers + 1
	replay, err := svc.Run(ctx, replayCfg)
	if err != nil {
		return fmt.Errorf("failed to replay simulation: %w", err)
	}

	if err := compareRuns(first, replay); err != nil {
		return fmt.Errorf("determinism test failed: %w", err)
	}

	fmt.Println("✓ Determinism test passed - results identical")
	return nil
}

func compareRuns(original, replay *bfda.SimulationResult) error {
	if original.Fingerprint != replay.Fingerprint {
		return fmt.Errorf("fingerprints differ")
	}
	if len(original.Trajectories) != len(replay.Trajectories) {
		return fmt.Errorf("trajectory counts differ: %d vs %d",
			len(original.Trajectories), len(replay.Trajectories))
	}

	for i, orig := range original.Trajectories {
		other := replay.Trajectories[i]
		if orig.Index != other.Index || orig.EffectSize != other.EffectSize || len(orig.Checkpoints) != len(other.Checkpoints) {
			return fmt.Errorf("trajectory %d differs", i)
		}
		for j, p := range orig.Checkpoints {
			q := other.Checkpoints[j]
			if p.N != q.N || p.LogBF10 != q.LogBF10 {
				return fmt.Errorf("trajectory %d differs at n=%d: %g vs %g", orig.Index, p.N, p.LogBF10, q.LogBF10)
			}
		}
	}
	return nil
}
