// Package filestore keeps each simulation result as one JSON file in a
// directory. Writes go through a temporary file and a rename, so readers never
// see a partial result.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/ports"
)

const ext = ".json"

// Store implements ports.SimulationRepository on the filesystem
type Store struct {
	dir string
}

// New creates the directory if needed and returns a store rooted at it
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, core.NewConfigError("results_dir", "is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(id core.SimulationID) (string, error) {
	parsed, err := core.ParseSimulationID(id.String())
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrSimulationNotFound, err)
	}
	return filepath.Join(s.dir, parsed.String()+ext), nil
}

// Save writes the result atomically, replacing any file with the same ID
func (s *Store) Save(ctx context.Context, result *bfda.SimulationResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(result.ID)
	if err != nil {
		return err
	}
	return WriteFile(path, result)
}

// Get loads a result by ID
func (s *Store) Get(ctx context.Context, id core.SimulationID) (*bfda.SimulationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	result, err := ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", core.ErrSimulationNotFound, id)
	}
	return result, err
}

// List returns summaries, newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]ports.SimulationSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var out []ports.SimulationSummary
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ext {
			continue
		}
		result, err := ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, ports.SummaryOf(result))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes a stored result
func (s *Store) Delete(ctx context.Context, id core.SimulationID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", core.ErrSimulationNotFound, id)
		}
		return fmt.Errorf("failed to delete simulation: %w", err)
	}
	return nil
}

// WriteFile serializes a result to path through a temporary file in the same
// directory followed by a rename.
func WriteFile(path string, result *bfda.SimulationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal simulation: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write simulation: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync simulation: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close simulation file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move simulation into place: %w", err)
	}
	return nil
}

// ReadFile loads a result written by WriteFile
func ReadFile(path string) (*bfda.SimulationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result bfda.SimulationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &result, nil
}
