// Package sqlstore persists simulation results in SQL databases through sqlx.
// A postgres:// DSN selects lib/pq; anything else opens an embedded SQLite
// database (":memory:" included).
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/ports"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store implements ports.SimulationRepository
type Store struct {
	db *sqlx.DB
}

// DriverFor returns the database/sql driver name for a DSN
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// Open connects to dsn and creates the schema if needed
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, core.NewConfigError("database_url", "is required")
	}
	driver := DriverFor(dsn)
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		// one connection keeps ":memory:" databases shared and writes serialized
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// NewStore wraps an existing connection; the schema must already exist
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS simulations (
			id TEXT PRIMARY KEY,
			created_at BIGINT NOT NULL,
			test_type TEXT NOT NULL,
			design TEXT NOT NULL,
			hypothesis TEXT NOT NULL,
			replications INTEGER NOT NULL,
			n_min INTEGER NOT NULL,
			n_max INTEGER NOT NULL,
			failed_count INTEGER NOT NULL,
			fingerprint TEXT NOT NULL,
			runtime_ms BIGINT NOT NULL,
			config TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trajectories (
			simulation_id TEXT NOT NULL REFERENCES simulations(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			true_es DOUBLE PRECISION NOT NULL,
			stopped_early BOOLEAN NOT NULL,
			failed BOOLEAN NOT NULL,
			error_message TEXT NOT NULL,
			checkpoints TEXT NOT NULL,
			PRIMARY KEY (simulation_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_simulations_created_at ON simulations (created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

type simulationRow struct {
	ID           string `db:"id"`
	CreatedAt    int64  `db:"created_at"`
	TestType     string `db:"test_type"`
	Design       string `db:"design"`
	Hypothesis   string `db:"hypothesis"`
	Replications int    `db:"replications"`
	NMin         int    `db:"n_min"`
	NMax         int    `db:"n_max"`
	FailedCount  int    `db:"failed_count"`
	Fingerprint  string `db:"fingerprint"`
	RuntimeMs    int64  `db:"runtime_ms"`
	Config       string `db:"config"`
}

func (r simulationRow) summary() ports.SimulationSummary {
	return ports.SimulationSummary{
		ID:           core.SimulationID(r.ID),
		CreatedAt:    fromMillis(r.CreatedAt),
		Type:         bfda.TestType(r.TestType),
		Design:       bfda.SamplingDesign(r.Design),
		Hypothesis:   bfda.Hypothesis(r.Hypothesis),
		Replications: r.Replications,
		NMin:         r.NMin,
		NMax:         r.NMax,
		FailedCount:  r.FailedCount,
		Fingerprint:  core.Hash(r.Fingerprint),
	}
}

type trajectoryRow struct {
	Index        int     `db:"idx"`
	EffectSize   float64 `db:"true_es"`
	StoppedEarly bool    `db:"stopped_early"`
	Failed       bool    `db:"failed"`
	Error        string  `db:"error_message"`
	Checkpoints  string  `db:"checkpoints"`
}

// Save stores a result, replacing any result with the same ID
func (s *Store) Save(ctx context.Context, result *bfda.SimulationResult) error {
	config, err := json.Marshal(result.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := result.ID.String()
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM trajectories WHERE simulation_id = ?`), id); err != nil {
		return fmt.Errorf("failed to clear trajectories: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM simulations WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to clear simulation: %w", err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO simulations (
		id, created_at, test_type, design, hypothesis, replications, n_min, n_max,
		failed_count, fingerprint, runtime_ms, config
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, toMillis(result.CreatedAt), string(result.Config.Type), string(result.Config.Design),
		string(result.Hypothesis()), result.Config.Replications, result.Config.NMin, result.Config.NMax,
		result.FailedCount, result.Fingerprint.String(), result.RuntimeMs, string(config),
	)
	if err != nil {
		return fmt.Errorf("failed to insert simulation: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO trajectories (
		simulation_id, idx, true_es, stopped_early, failed, error_message, checkpoints
	) VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare trajectory insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range result.Trajectories {
		checkpoints, err := json.Marshal(t.Checkpoints)
		if err != nil {
			return fmt.Errorf("failed to marshal trajectory %d: %w", t.Index, err)
		}
		if _, err := stmt.ExecContext(ctx, id, t.Index, t.EffectSize, t.StoppedEarly, t.Failed, t.Error, string(checkpoints)); err != nil {
			return fmt.Errorf("failed to insert trajectory %d: %w", t.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit simulation: %w", err)
	}
	return nil
}

// Get loads a full result including trajectories
func (s *Store) Get(ctx context.Context, id core.SimulationID) (*bfda.SimulationResult, error) {
	var row simulationRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT * FROM simulations WHERE id = ?`), id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrSimulationNotFound, id)
		}
		return nil, fmt.Errorf("failed to get simulation: %w", err)
	}

	result := &bfda.SimulationResult{
		ID:          core.SimulationID(row.ID),
		CreatedAt:   fromMillis(row.CreatedAt),
		Fingerprint: core.Hash(row.Fingerprint),
		FailedCount: row.FailedCount,
		RuntimeMs:   row.RuntimeMs,
	}
	if err := json.Unmarshal([]byte(row.Config), &result.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var rows []trajectoryRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT idx, true_es, stopped_early, failed, error_message, checkpoints
		FROM trajectories WHERE simulation_id = ? ORDER BY idx`), id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load trajectories: %w", err)
	}

	result.Trajectories = make([]bfda.Trajectory, len(rows))
	for i, r := range rows {
		t := bfda.Trajectory{
			Index:        r.Index,
			EffectSize:   r.EffectSize,
			StoppedEarly: r.StoppedEarly,
			Failed:       r.Failed,
			Error:        r.Error,
		}
		if err := json.Unmarshal([]byte(r.Checkpoints), &t.Checkpoints); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trajectory %d: %w", r.Index, err)
		}
		result.Trajectories[i] = t
	}
	return result, nil
}

// List returns summaries, newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]ports.SimulationSummary, error) {
	query := `SELECT * FROM simulations ORDER BY created_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []simulationRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	out := make([]ports.SimulationSummary, len(rows))
	for i, r := range rows {
		out[i] = r.summary()
	}
	return out, nil
}

// Delete removes a result and its trajectories
func (s *Store) Delete(ctx context.Context, id core.SimulationID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM trajectories WHERE simulation_id = ?`), id.String()); err != nil {
		return fmt.Errorf("failed to delete trajectories: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM simulations WHERE id = ?`), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete simulation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", core.ErrSimulationNotFound, id)
	}
	return tx.Commit()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
