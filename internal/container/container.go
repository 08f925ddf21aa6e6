package container

import (
	"context"
	"fmt"

	"gobfda/adapters/filestore"
	"gobfda/adapters/rng"
	"gobfda/adapters/sqlstore"
	"gobfda/adapters/stats/bayesfactor"
	"gobfda/adapters/stats/generator"
	"gobfda/app"
	"gobfda/internal"
	"gobfda/internal/analysis"
	"gobfda/internal/config"
	"gobfda/internal/metrics"
	"gobfda/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	Metrics *metrics.Metrics
	SQL     *sqlstore.Store // nil when results live on disk

	// Repositories (data access layer)
	Repo ports.SimulationRepository

	// Services
	Simulations *app.SimulationService
	Analyses    *analysis.Cache
	Designs     *app.DesignService

	logger *internal.Logger
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	internal.DefaultLogger.SetLevel(internal.ParseLogLevel(cfg.LogLevel))

	c := &Container{
		Config:  cfg,
		Metrics: metrics.Default,
		logger:  internal.DefaultLogger.With("Container"),
	}

	if err := c.initRepository(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	c.initServices()

	c.logger.Info("container initialized (storage: %s, workers: %d)", c.storageName(), cfg.Simulation.Workers)
	return c, nil
}

// initRepository picks SQL storage when a database URL is set, files otherwise
func (c *Container) initRepository(ctx context.Context) error {
	if c.Config.UsesDatabase() {
		store, err := sqlstore.Open(ctx, c.Config.Database.URL)
		if err != nil {
			return err
		}
		c.SQL = store
		c.Repo = store
		return nil
	}

	store, err := filestore.New(c.Config.Storage.ResultsDir)
	if err != nil {
		return err
	}
	c.Repo = store
	return nil
}

func (c *Container) initServices() {
	c.Simulations = app.NewSimulationService(rng.NewStreamAdapter(), bayesfactor.New, generator.NewTrajectoryGenerator, c.Metrics).
		WithDefaultWorkers(c.Config.Simulation.Workers)
	c.Analyses = analysis.NewCache(c.Config.Simulation.CacheEntries, c.Metrics)
	c.Designs = app.NewDesignService(c.Simulations, c.Repo, c.Analyses)
}

func (c *Container) storageName() string {
	if c.SQL != nil {
		return sqlstore.DriverFor(c.Config.Database.URL)
	}
	return "files in " + c.Config.Storage.ResultsDir
}

// Close releases the database connection, if any
func (c *Container) Close() error {
	return c.SQL.Close()
}
