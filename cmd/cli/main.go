package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gobfda/adapters/filestore"
	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/internal"
	"gobfda/internal/config"
	"gobfda/internal/container"
)

func main() {
	if err := godotenv.Load(); err == nil {
		internal.DefaultLogger.SetLevel(internal.ParseLogLevel(os.Getenv("LOG_LEVEL")))
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	env := &environment{}
	rootCmd := &cobra.Command{
		Use:           "bfda",
		Short:         "Bayes factor design analysis: simulate studies, then plan designs from the simulations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return env.close()
	}

	rootCmd.AddCommand(
		newSimulateCmd(env),
		newAnalyzeCmd(env),
		newSSDCmd(env),
		newExportCmd(env),
		newListCmd(env),
	)
	return rootCmd
}

// environment builds the container on first use, so commands that only touch
// files never need a configured store.
type environment struct {
	c *container.Container
}

func (e *environment) container(ctx context.Context) (*container.Container, error) {
	if e.c != nil {
		return e.c, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	c, err := container.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	e.c = c
	return c, nil
}

func (e *environment) close() error {
	if e.c == nil {
		return nil
	}
	return e.c.Close()
}

// loadResult resolves a result reference: an existing file path, otherwise a
// stored simulation ID.
func (e *environment) loadResult(ctx context.Context, ref string) (*bfda.SimulationResult, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return filestore.ReadFile(ref)
	}
	id, err := core.ParseSimulationID(ref)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a result file nor a simulation ID", ref)
	}
	c, err := e.container(ctx)
	if err != nil {
		return nil, err
	}
	return c.Designs.Get(ctx, id)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
