package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gobfda/adapters/excel"
	"gobfda/adapters/filestore"
	"gobfda/adapters/rng"
	"gobfda/adapters/stats/bayesfactor"
	"gobfda/adapters/stats/generator"
	"gobfda/app"
	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/internal/analysis"
	"gobfda/internal/config"
	"gobfda/internal/metrics"
	"gobfda/internal/report"
)

func newSimulateCmd(env *environment) *cobra.Command {
	var (
		configPath string
		outPath    string
		store      bool
		seed       uint64
		workers    int
		verbose    bool
		effects    excel.ExcelConfig
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate Bayes factor trajectories for a study design",
		Long: `Simulate B studies under a fixed or empirical effect size and record the
Bayes factor at every checkpoint from n_min to n_max.

The config file is YAML or JSON. Without --out the result is stored in the
configured repository (BFDA_DATABASE_URL, or files under BFDA_RESULTS_DIR).

Example: bfda simulate --config sim.yaml --out sim.json --seed 2024`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSimulationFile(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = &seed
			}
			if workers > 0 {
				cfg.Workers = workers
			}
			cfg.Verbose = cfg.Verbose || verbose
			if effects.FilePath != "" {
				samples, err := excel.ReadEffectSizes(effects)
				if err != nil {
					return err
				}
				cfg.EffectSize = bfda.EmpiricalEffect(samples)
			}
			if outPath == "" {
				store = true
			}

			ctx := cmd.Context()
			var result *bfda.SimulationResult
			if store {
				c, err := env.container(ctx)
				if err != nil {
					return err
				}
				result, err = c.Designs.Simulate(ctx, cfg)
				if err != nil {
					return err
				}
			} else {
				process, err := config.Load()
				if err != nil {
					return fmt.Errorf("failed to load configuration: %w", err)
				}
				svc := app.NewSimulationService(rng.NewStreamAdapter(), bayesfactor.New, generator.NewTrajectoryGenerator, metrics.Default).
					WithDefaultWorkers(process.Simulation.Workers)
				result, err = svc.Run(ctx, cfg)
				if err != nil {
					return err
				}
			}
			if outPath != "" {
				if err := filestore.WriteFile(outPath, result); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ simulation %s: %d replications in %dms (seed %d)\n",
				result.ID, len(result.Trajectories), result.RuntimeMs, *result.Config.Seed)
			if w := result.FailureWarning(); w != "" {
				fmt.Fprintf(out, "⚠️  %s\n", w)
			}
			if outPath != "" {
				fmt.Fprintf(out, "written to %s\n", outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Simulation config file (.yaml, .yml or .json)")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the result to this JSON file")
	cmd.Flags().BoolVar(&store, "store", false, "Also store the result in the configured repository")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Override the config seed")
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker goroutines (default: config cores, then BFDA_WORKERS)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Log progress every 10%")
	cmd.Flags().StringVar(&effects.FilePath, "effects", "", "Workbook or CSV with an empirical effect-size distribution")
	cmd.Flags().StringVar(&effects.Sheet, "sheet", "", "Sheet of --effects (default: first)")
	cmd.Flags().StringVar(&effects.Column, "column", "", "Column of --effects (default: the only column)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// designFlags are the flags shared by analyze, ssd and export
type designFlags struct {
	design string
	bound  float64
	lower  float64
	upper  float64
	n      int
	nMin   int
	nMax   int
	format string
	out    string
}

func (f *designFlags) register(cmd *cobra.Command, withN bool) {
	cmd.Flags().StringVar(&f.design, "design", string(bfda.AnalysisSequential), "Analysis design: sequential|fixed")
	cmd.Flags().Float64Var(&f.bound, "boundary", 0, "Symmetric boundary b, meaning [1/b, b]")
	cmd.Flags().Float64Var(&f.lower, "lower", 0, "Lower BF10 boundary (with --upper)")
	cmd.Flags().Float64Var(&f.upper, "upper", 0, "Upper BF10 boundary (with --lower)")
	if withN {
		cmd.Flags().IntVar(&f.n, "n", 0, "Sample size of a fixed design")
		cmd.Flags().IntVar(&f.nMin, "n-min", 0, "First look of a sequential design (default: simulated n_min)")
		cmd.Flags().IntVar(&f.nMax, "n-max", 0, "Last look of a sequential design (default: simulated n_max)")
	}
	cmd.Flags().StringVar(&f.format, "format", "md", "Output format: md|html|json")
	cmd.Flags().StringVarP(&f.out, "output", "o", "", "Write the report to a file instead of stdout")
}

func (f *designFlags) boundary() (bfda.Boundary, error) {
	switch {
	case f.bound != 0:
		return bfda.Symmetric(f.bound), nil
	case f.lower != 0 || f.upper != 0:
		return bfda.Boundary{Lower: f.lower, Upper: f.upper}, nil
	}
	return bfda.Boundary{}, core.NewConfigError("boundary", "pass --boundary or both --lower and --upper")
}

func (f *designFlags) analysis() (bfda.AnalysisConfig, error) {
	b, err := f.boundary()
	if err != nil {
		return bfda.AnalysisConfig{}, err
	}
	return bfda.AnalysisConfig{Design: bfda.AnalysisDesign(f.design), Boundary: b, N: f.n, NMin: f.nMin, NMax: f.nMax}, nil
}

// emit writes a report in the chosen format to --output or w
func (f *designFlags) emit(w io.Writer, title string, md []byte, v interface{}) error {
	format, err := report.ParseFormat(f.format)
	if err != nil {
		return err
	}
	if f.out != "" {
		file, err := os.Create(f.out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", f.out, err)
		}
		defer file.Close()
		w = file
	}

	switch format {
	case report.FormatJSON:
		return writeJSON(w, v)
	case report.FormatHTML:
		_, err = w.Write(report.HTML(title, md))
	default:
		_, err = w.Write(md)
	}
	return err
}

func newAnalyzeCmd(env *environment) *cobra.Command {
	flags := &designFlags{}
	cmd := &cobra.Command{
		Use:   "analyze [result]",
		Short: "Operating characteristics of a design on a simulation",
		Long: `Analyze a simulation under a sequential or fixed-n design: boundary hit rates,
average sample number and stopping-n quantiles.

The result is a JSON file written by simulate --out, or a stored simulation ID.

Example: bfda analyze sim.json --design sequential --boundary 6 --n-max 80`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.analysis()
			if err != nil {
				return err
			}
			result, err := env.loadResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			summary, err := analysis.Analyze(result, cfg)
			if err != nil {
				return err
			}
			return flags.emit(cmd.OutOrStdout(), "Design analysis", report.AnalysisMarkdown(summary), summary)
		},
	}
	flags.register(cmd, true)
	return cmd
}

type ssdFlags struct {
	designFlags
	power float64
	alpha float64
}

func (f *ssdFlags) config() (bfda.SSDConfig, error) {
	b, err := f.boundary()
	if err != nil {
		return bfda.SSDConfig{}, err
	}
	return bfda.SSDConfig{Design: bfda.AnalysisDesign(f.design), Boundary: b, Power: f.power, Alpha: f.alpha}, nil
}

func newSSDCmd(env *environment) *cobra.Command {
	flags := &ssdFlags{}
	cmd := &cobra.Command{
		Use:   "ssd [result]",
		Short: "Smallest sample size that meets a power or error target",
		Long: `Search the checkpoints of a simulation for the smallest n that reaches the target.

Under H1 the target is --power, the rate of boundary hits for H1. Under H0 it is
--alpha, the false positive rate, together with --power for the rate of evidence
for H0 when given.

Example: bfda ssd sim.json --design fixed --boundary 6 --power 0.8`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			result, err := env.loadResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ssd, err := analysis.DetermineSampleSize(result, cfg)
			if err != nil && !(errors.Is(err, core.ErrTargetNotReached) && ssd != nil) {
				return err
			}
			if emitErr := flags.emit(cmd.OutOrStdout(), "Sample size determination", report.SSDMarkdown(ssd), ssd); emitErr != nil {
				return emitErr
			}
			return err
		},
	}
	flags.register(cmd, false)
	cmd.Flags().Float64Var(&flags.power, "power", 0, "Target rate of correct boundary hits")
	cmd.Flags().Float64Var(&flags.alpha, "alpha", 0, "Highest acceptable false positive rate (H0 simulations)")
	return cmd
}

func newExportCmd(env *environment) *cobra.Command {
	flags := &ssdFlags{}
	var (
		xlsxPath string
		ssd      bool
	)
	cmd := &cobra.Command{
		Use:   "export [result]",
		Short: "Export an analysis or a sample-size search to Excel",
		Long: `Write a design analysis (or with --ssd a sample-size search) to an .xlsx workbook
with a Summary sheet and a per-trajectory or per-candidate table.

Example: bfda export sim.json --xlsx design.xlsx --design sequential --boundary 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := env.loadResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if ssd {
				cfg, err := flags.config()
				if err != nil {
					return err
				}
				r, err := analysis.DetermineSampleSize(result, cfg)
				if err != nil && !(errors.Is(err, core.ErrTargetNotReached) && r != nil) {
					return err
				}
				if err := excel.ExportSSD(xlsxPath, r); err != nil {
					return err
				}
			} else {
				cfg, err := flags.analysis()
				if err != nil {
					return err
				}
				summary, err := analysis.Analyze(result, cfg)
				if err != nil {
					return err
				}
				if err := excel.ExportAnalysis(xlsxPath, summary); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "written to %s\n", xlsxPath)
			return nil
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Workbook to write")
	cmd.Flags().BoolVar(&ssd, "ssd", false, "Export a sample-size search instead of an analysis")
	cmd.Flags().Float64Var(&flags.power, "power", 0, "Target rate of correct boundary hits (with --ssd)")
	cmd.Flags().Float64Var(&flags.alpha, "alpha", 0, "Highest acceptable false positive rate (with --ssd)")
	_ = cmd.MarkFlagRequired("xlsx")
	return cmd
}

func newListCmd(env *environment) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored simulations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := env.container(cmd.Context())
			if err != nil {
				return err
			}
			summaries, err := c.Designs.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range summaries {
				fmt.Fprintf(out, "%s  %s  %-11s %-10s %-11s B=%d n=%d..%d\n",
					s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Type, s.Design, s.Hypothesis, s.Replications, s.NMin, s.NMax)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum simulations to list (0 = all)")
	return cmd
}
