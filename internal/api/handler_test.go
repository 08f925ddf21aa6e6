package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gobfda/adapters/rng"
	"gobfda/adapters/stats/bayesfactor"
	"gobfda/adapters/stats/generator"
	"gobfda/app"
	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/internal"
	"gobfda/internal/analysis"
	apperrors "gobfda/internal/errors"
	"gobfda/internal/metrics"
	"gobfda/internal/testkit"
	"gobfda/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
	internal.DefaultLogger.SetLevel(internal.LogLevelError)
}

func newTestRouter(t *testing.T, repo ports.SimulationRepository) *gin.Engine {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	sim := app.NewSimulationService(rng.NewStreamAdapter(), bayesfactor.New, generator.NewTrajectoryGenerator, m)
	designs := app.NewDesignService(sim, repo, analysis.NewCache(0, m))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRouter(NewSimulationHandler(ctx, designs, 2, NewSSEHub()), m)
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	decode(t, w, &body)
	return body.Code
}

func createSimulation(t *testing.T, router *gin.Engine, cfg bfda.SimulationConfig) core.SimulationID {
	t.Helper()
	w := do(t, router, http.MethodPost, "/api/simulations", cfg)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created simulationResponse
	decode(t, w, &created)
	return created.ID
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, testkit.NewMemoryRepository())

	w := do(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	createSimulation(t, router, testkit.SmallConfig(bfda.HypothesisH1))
	w = do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `bfda_runs_total{status="success"} 1`)
}

func TestSimulationLifecycle(t *testing.T) {
	router := newTestRouter(t, testkit.NewMemoryRepository())
	id := createSimulation(t, router, testkit.SmallConfig(bfda.HypothesisH1))

	w := do(t, router, http.MethodGet, "/api/simulations?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Simulations []ports.SimulationSummary `json:"simulations"`
	}
	decode(t, w, &list)
	require.Len(t, list.Simulations, 1)
	assert.Equal(t, id, list.Simulations[0].ID)
	assert.Equal(t, 20, list.Simulations[0].Replications)

	w = do(t, router, http.MethodGet, "/api/simulations/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result bfda.SimulationResult
	decode(t, w, &result)
	assert.Len(t, result.Trajectories, 20)
	require.NotNil(t, result.Config.Seed)
	assert.Equal(t, uint64(7), *result.Config.Seed)

	w = do(t, router, http.MethodPost, "/api/simulations/"+id.String()+"/analyze",
		`{"design": "sequential", "boundary": 3, "n_max": 20}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary bfda.AnalysisSummary
	decode(t, w, &summary)
	assert.Equal(t, 20, summary.Valid)
	assert.InDelta(t, 1, summary.UpperHitFrac+summary.LowerHitFrac+summary.NMaxHitFrac, 1e-9)
	for _, n := range summary.EndpointN {
		assert.LessOrEqual(t, n, 20)
	}

	w = do(t, router, http.MethodGet, "/api/simulations/"+id.String()+"/report?design=fixed&boundary=3&n=20", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Fixed-n design at n = 20")

	w = do(t, router, http.MethodGet, "/api/simulations/"+id.String()+"/report?lower=0.2&upper=5&format=md", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Body.String(), "# Design analysis"))

	w = do(t, router, http.MethodDelete, "/api/simulations/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, http.MethodGet, "/api/simulations/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(t, w))
}

func TestSampleSize(t *testing.T) {
	router := newTestRouter(t, testkit.NewMemoryRepository())
	h1 := createSimulation(t, router, testkit.SmallConfig(bfda.HypothesisH1))

	w := do(t, router, http.MethodPost, "/api/simulations/"+h1.String()+"/ssd",
		`{"design": "fixed", "boundary": 1000, "power": 0.99}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	var missed struct {
		Code   string         `json:"code"`
		Result bfda.SSDResult `json:"result"`
	}
	decode(t, w, &missed)
	assert.Equal(t, apperrors.CodeTargetNotReached, missed.Code)
	assert.False(t, missed.Result.Found)
	assert.Len(t, missed.Result.Rows, 3)

	untagged := testkit.SmallConfig(bfda.HypothesisUnspecified)
	id := createSimulation(t, router, untagged)
	w = do(t, router, http.MethodPost, "/api/simulations/"+id.String()+"/ssd",
		`{"design": "fixed", "boundary": 3, "power": 0.8}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeAmbiguousHypothesis, errorCode(t, w))
}

func TestErrorMapping(t *testing.T) {
	router := newTestRouter(t, testkit.NewMemoryRepository())

	w := do(t, router, http.MethodPost, "/api/simulations", `{"type": "t.paired", "B": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeInvalidInput, errorCode(t, w))

	cfg := testkit.SmallConfig(bfda.HypothesisH1)
	cfg.Replications = 0
	w = do(t, router, http.MethodPost, "/api/simulations", cfg)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeConfigInvalid, errorCode(t, w))

	w = do(t, router, http.MethodGet, "/api/simulations/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/api/simulations/"+core.NewSimulationID().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	id := createSimulation(t, router, testkit.SmallConfig(bfda.HypothesisH1))
	w = do(t, router, http.MethodPost, "/api/simulations/"+id.String()+"/analyze",
		`{"design": "sequential", "boundary": 3, "n_max": 300}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeAnalysisRange, errorCode(t, w))

	w = do(t, router, http.MethodGet, "/api/simulations/"+id.String()+"/report?design=sequential", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/api/simulations?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStorageFailure(t *testing.T) {
	repo := &testkit.MockRepository{}
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	repo.On("List", mock.Anything, 0).Return(nil, errors.New("connection refused"))
	router := newTestRouter(t, repo)

	w := do(t, router, http.MethodPost, "/api/simulations", testkit.SmallConfig(bfda.HypothesisH1))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.CodeStorage, errorCode(t, w))

	w = do(t, router, http.MethodGet, "/api/simulations", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	repo.AssertExpectations(t)
}

func TestAsyncRun(t *testing.T) {
	repo := testkit.NewMemoryRepository()
	router := newTestRouter(t, repo)

	w := do(t, router, http.MethodPost, "/api/simulations?async=true", testkit.SmallConfig(bfda.HypothesisH0))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var run Run
	decode(t, w, &run)
	assert.Equal(t, 20, run.Total)

	require.Eventually(t, func() bool {
		w := do(t, router, http.MethodGet, "/api/runs/"+run.ID, nil)
		decode(t, w, &run)
		return run.State == RunSucceeded || run.State == RunFailed
	}, 30*time.Second, 20*time.Millisecond)
	require.Equal(t, RunSucceeded, run.State, run.Error)
	assert.Equal(t, 20, run.Done)

	_, err := repo.Get(context.Background(), run.SimulationID)
	assert.NoError(t, err)

	// a finished run streams its terminal event and closes
	w = do(t, router, http.MethodGet, "/api/runs/"+run.ID+"/events", nil)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream"), w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "event:succeeded")
	assert.Contains(t, w.Body.String(), run.SimulationID.String())

	w = do(t, router, http.MethodGet, "/api/runs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAsyncRun_ConfigErrorIsImmediate(t *testing.T) {
	router := newTestRouter(t, testkit.NewMemoryRepository())
	cfg := testkit.SmallConfig(bfda.HypothesisH1)
	cfg.Type = bfda.TestCorrelation
	cfg.EffectSize = bfda.FixedEffect(1.5)

	w := do(t, router, http.MethodPost, "/api/simulations?async=true", cfg)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeConfigInvalid, errorCode(t, w))
}
