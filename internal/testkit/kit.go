// Package testkit provides repository doubles and small simulation configs for
// tests across packages.
package testkit

import (
	"context"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/ports"
)

// MemoryRepository is an in-memory ports.SimulationRepository
type MemoryRepository struct {
	mu      sync.RWMutex
	results map[core.SimulationID]*bfda.SimulationResult
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{results: make(map[core.SimulationID]*bfda.SimulationResult)}
}

func (r *MemoryRepository) Save(ctx context.Context, result *bfda.SimulationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result.ID] = result
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id core.SimulationID) (*bfda.SimulationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.results[id]
	if !ok {
		return nil, core.NewNotFoundError("simulation", id.String())
	}
	return result, nil
}

func (r *MemoryRepository) List(ctx context.Context, limit int) ([]ports.SimulationSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.SimulationSummary, 0, len(r.results))
	for _, result := range r.results {
		out = append(out, ports.SummaryOf(result))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id core.SimulationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.results[id]; !ok {
		return core.NewNotFoundError("simulation", id.String())
	}
	delete(r.results, id)
	return nil
}

// MockRepository is a testify mock of ports.SimulationRepository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, result *bfda.SimulationResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id core.SimulationID) (*bfda.SimulationResult, error) {
	args := m.Called(ctx, id)
	result, _ := args.Get(0).(*bfda.SimulationResult)
	return result, args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, limit int) ([]ports.SimulationSummary, error) {
	args := m.Called(ctx, limit)
	summaries, _ := args.Get(0).([]ports.SimulationSummary)
	return summaries, args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id core.SimulationID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// SmallConfig is a paired-t simulation cheap enough for unit tests: 20
// replications on checkpoints 10, 20 and 30 with a fixed seed.
func SmallConfig(h bfda.Hypothesis) bfda.SimulationConfig {
	es := 0.5
	if h == bfda.HypothesisH0 {
		es = 0
	}
	seed := uint64(7)
	return bfda.SimulationConfig{
		Type:         bfda.TestPaired,
		Hypothesis:   h,
		EffectSize:   bfda.FixedEffect(es),
		NMin:         10,
		NMax:         30,
		StepSize:     10,
		Replications: 20,
		Workers:      2,
		Seed:         &seed,
	}
}
