package api

import (
	"sync"
	"time"

	"gobfda/domain/core"
)

// RunState is the lifecycle stage of an asynchronous simulation run
type RunState string

const (
	RunQueued    RunState = "queued"
	RunRunning   RunState = "running"
	RunSucceeded RunState = "succeeded"
	RunFailed    RunState = "failed"
)

// Run tracks one asynchronous simulation request
type Run struct {
	ID           string            `json:"run_id"`
	State        RunState          `json:"state"`
	Done         int               `json:"done"`
	Total        int               `json:"total"`
	SimulationID core.SimulationID `json:"simulation_id,omitempty"`
	Error        string            `json:"error,omitempty"`
	Code         string            `json:"code,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Event describes the current state of the run as a stream event
func (r Run) Event() RunEvent {
	event := RunEvent{RunID: r.ID, EventType: EventProgress, Timestamp: r.UpdatedAt}
	if r.Total > 0 {
		event.Progress = float64(r.Done) / float64(r.Total)
	}
	switch r.State {
	case RunSucceeded:
		event.EventType = EventSucceeded
		event.Progress = 1
		event.Data = map[string]interface{}{"simulation_id": r.SimulationID}
	case RunFailed:
		event.EventType = EventFailed
		event.Data = map[string]interface{}{"error": r.Error, "code": r.Code}
	default:
		event.Data = map[string]interface{}{"state": r.State, "done": r.Done, "total": r.Total}
	}
	return event
}

// runRegistry keeps the runs of this process. Finished runs beyond maxFinished
// are forgotten oldest first.
type runRegistry struct {
	mu          sync.RWMutex
	runs        map[string]*Run
	finished    []string
	maxFinished int
}

func newRunRegistry(maxFinished int) *runRegistry {
	return &runRegistry{runs: make(map[string]*Run), maxFinished: maxFinished}
}

func (r *runRegistry) create(total int) Run {
	now := time.Now().UTC()
	run := &Run{ID: string(core.NewID()), State: RunQueued, Total: total, CreatedAt: now, UpdatedAt: now}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	return *run
}

func (r *runRegistry) get(id string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// update applies fn to a run and returns the updated copy
func (r *runRegistry) update(id string, fn func(*Run)) Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return Run{}
	}
	fn(run)
	run.UpdatedAt = time.Now().UTC()
	if run.State == RunSucceeded || run.State == RunFailed {
		r.finished = append(r.finished, id)
		for len(r.finished) > r.maxFinished {
			delete(r.runs, r.finished[0])
			r.finished = r.finished[1:]
		}
	}
	return *run
}
