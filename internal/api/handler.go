// Package api exposes simulations, design analyses and sample-size searches
// over HTTP with gin.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"gobfda/app"
	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/internal"
	apperrors "gobfda/internal/errors"
	"gobfda/internal/report"
	"gobfda/ports"
)

// SimulationHandler serves the /api routes
type SimulationHandler struct {
	designs  *app.DesignService
	runSlots *semaphore.Weighted
	runs     *runRegistry
	hub      *SSEHub
	baseCtx  context.Context
	logger   *internal.Logger
}

// NewSimulationHandler creates a handler that runs at most maxConcurrentRuns
// simulations at once. Asynchronous runs stop when baseCtx is canceled.
func NewSimulationHandler(baseCtx context.Context, designs *app.DesignService, maxConcurrentRuns int, hub *SSEHub) *SimulationHandler {
	if maxConcurrentRuns < 1 {
		maxConcurrentRuns = 1
	}
	return &SimulationHandler{
		designs:  designs,
		runSlots: semaphore.NewWeighted(int64(maxConcurrentRuns)),
		runs:     newRunRegistry(100),
		hub:      hub,
		baseCtx:  baseCtx,
		logger:   internal.DefaultLogger.With("API"),
	}
}

// simulationResponse is the metadata returned after a run
type simulationResponse struct {
	ports.SimulationSummary
	RuntimeMs int64  `json:"runtime_ms"`
	Warning   string `json:"warning,omitempty"`
}

func newSimulationResponse(result *bfda.SimulationResult) simulationResponse {
	return simulationResponse{
		SimulationSummary: ports.SummaryOf(result),
		RuntimeMs:         result.RuntimeMs,
		Warning:           result.FailureWarning(),
	}
}

// HandleCreateSimulation runs a simulation, or queues it with ?async=true
func (h *SimulationHandler) HandleCreateSimulation() gin.HandlerFunc {
	return func(c *gin.Context) {
		var cfg bfda.SimulationConfig
		if err := c.ShouldBindJSON(&cfg); err != nil {
			respondError(c, apperrors.InvalidInput("invalid simulation config: "+err.Error()))
			return
		}
		if err := cfg.WithDefaults().Validate(); err != nil {
			respondError(c, err)
			return
		}

		if async, _ := strconv.ParseBool(c.Query("async")); async {
			run := h.runs.create(cfg.Replications)
			go h.runAsync(run.ID, cfg)
			h.logger.Info("queued run %s (B=%d)", run.ID, cfg.Replications)
			c.JSON(http.StatusAccepted, run)
			return
		}

		ctx := c.Request.Context()
		if err := h.runSlots.Acquire(ctx, 1); err != nil {
			respondError(c, err)
			return
		}
		defer h.runSlots.Release(1)

		result, err := h.designs.Simulate(ctx, cfg)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newSimulationResponse(result))
	}
}

// runAsync runs a queued simulation and publishes its progress
func (h *SimulationHandler) runAsync(runID string, cfg bfda.SimulationConfig) {
	if err := h.runSlots.Acquire(h.baseCtx, 1); err != nil {
		h.finish(runID, nil, err)
		return
	}
	defer h.runSlots.Release(1)

	h.publish(h.runs.update(runID, func(r *Run) { r.State = RunRunning }))
	result, err := h.designs.SimulateWithProgress(h.baseCtx, cfg, func(done, total int) {
		h.publish(h.runs.update(runID, func(r *Run) {
			if done > r.Done {
				r.Done, r.Total = done, total
			}
		}))
	})
	h.finish(runID, result, err)
}

func (h *SimulationHandler) finish(runID string, result *bfda.SimulationResult, err error) {
	run := h.runs.update(runID, func(r *Run) {
		if err != nil {
			r.State = RunFailed
			r.Error = err.Error()
			r.Code = apperrors.CodeFor(err)
			return
		}
		r.State = RunSucceeded
		r.Done = r.Total
		r.SimulationID = result.ID
	})
	if err != nil {
		h.logger.Warn("run %s failed: %v", runID, err)
	}
	h.publish(run)
}

func (h *SimulationHandler) publish(run Run) {
	if run.ID != "" {
		h.hub.Broadcast(run.Event())
	}
}

// HandleGetRun returns the state of an asynchronous run
func (h *SimulationHandler) HandleGetRun() gin.HandlerFunc {
	return func(c *gin.Context) {
		run, ok := h.runs.get(c.Param("run"))
		if !ok {
			respondError(c, apperrors.NotFound("run"))
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

// HandleRunEvents streams the progress of an asynchronous run as Server-Sent Events
func (h *SimulationHandler) HandleRunEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		run, ok := h.runs.get(c.Param("run"))
		if !ok {
			respondError(c, apperrors.NotFound("run"))
			return
		}
		h.hub.Stream(c, run.ID, func() RunEvent {
			if latest, ok := h.runs.get(run.ID); ok {
				return latest.Event()
			}
			return run.Event()
		})
	}
}

// HandleListSimulations lists stored simulations, newest first
func (h *SimulationHandler) HandleListSimulations() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				respondError(c, apperrors.InvalidInput("limit must be a non-negative integer"))
				return
			}
			limit = n
		}
		summaries, err := h.designs.List(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"simulations": summaries})
	}
}

// HandleGetSimulation returns a stored result with all trajectories
func (h *SimulationHandler) HandleGetSimulation() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := simulationID(c)
		if !ok {
			return
		}
		result, err := h.designs.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// HandleDeleteSimulation removes a stored result
func (h *SimulationHandler) HandleDeleteSimulation() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := simulationID(c)
		if !ok {
			return
		}
		if err := h.designs.Delete(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandleAnalyze computes the operating characteristics of a design
func (h *SimulationHandler) HandleAnalyze() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := simulationID(c)
		if !ok {
			return
		}
		var cfg bfda.AnalysisConfig
		if err := c.ShouldBindJSON(&cfg); err != nil {
			respondError(c, apperrors.InvalidInput("invalid analysis config: "+err.Error()))
			return
		}
		summary, err := h.designs.Analyze(c.Request.Context(), id, cfg)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// HandleSampleSize searches for the smallest adequate n. When no candidate
// qualifies the candidate table is returned with status 422.
func (h *SimulationHandler) HandleSampleSize() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := simulationID(c)
		if !ok {
			return
		}
		var cfg bfda.SSDConfig
		if err := c.ShouldBindJSON(&cfg); err != nil {
			respondError(c, apperrors.InvalidInput("invalid ssd config: "+err.Error()))
			return
		}
		result, err := h.designs.DetermineSampleSize(c.Request.Context(), id, cfg)
		if errors.Is(err, core.ErrTargetNotReached) && result != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  err.Error(),
				"code":   apperrors.CodeTargetNotReached,
				"result": result,
			})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// HandleReport renders a design analysis as HTML, or Markdown with format=md.
// The design comes from the query: design, boundary (or lower and upper), n,
// n_min and n_max.
func (h *SimulationHandler) HandleReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := simulationID(c)
		if !ok {
			return
		}
		cfg, err := analysisFromQuery(c)
		if err != nil {
			respondError(c, err)
			return
		}
		format, err := report.ParseFormat(c.DefaultQuery("format", "html"))
		if err != nil {
			respondError(c, apperrors.InvalidInput(err.Error()))
			return
		}

		summary, err := h.designs.Analyze(c.Request.Context(), id, cfg)
		if err != nil {
			respondError(c, err)
			return
		}
		switch format {
		case report.FormatJSON:
			c.JSON(http.StatusOK, summary)
		case report.FormatMarkdown:
			c.Data(http.StatusOK, "text/markdown; charset=utf-8", report.AnalysisMarkdown(summary))
		default:
			c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML("Design analysis", report.AnalysisMarkdown(summary)))
		}
	}
}

func analysisFromQuery(c *gin.Context) (bfda.AnalysisConfig, error) {
	cfg := bfda.AnalysisConfig{Design: bfda.AnalysisDesign(c.DefaultQuery("design", string(bfda.AnalysisSequential)))}

	if raw := c.Query("boundary"); raw != "" {
		b, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return cfg, apperrors.InvalidInput("boundary must be a number")
		}
		cfg.Boundary = bfda.Symmetric(b)
	} else {
		lower, errLo := strconv.ParseFloat(c.Query("lower"), 64)
		upper, errHi := strconv.ParseFloat(c.Query("upper"), 64)
		if errLo != nil || errHi != nil {
			return cfg, apperrors.InvalidInput("boundary, or lower and upper, are required")
		}
		cfg.Boundary = bfda.Boundary{Lower: lower, Upper: upper}
	}

	for name, dst := range map[string]*int{"n": &cfg.N, "n_min": &cfg.NMin, "n_max": &cfg.NMax} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, apperrors.InvalidInput(name + " must be an integer")
		}
		*dst = v
	}
	return cfg, nil
}

func simulationID(c *gin.Context) (core.SimulationID, bool) {
	id, err := core.ParseSimulationID(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.InvalidInput(err.Error()))
		return "", false
	}
	return id, true
}

// respondError writes err with the status its code maps to
func respondError(c *gin.Context, err error) {
	code := apperrors.CodeFor(err)
	status := apperrors.HTTPStatus(code)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
