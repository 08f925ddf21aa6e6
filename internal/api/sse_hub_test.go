package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamRun serves hub.Stream over a real connection and fails if the stream is
// still open when the client gives up.
func streamRun(t *testing.T, hub *SSEHub, runID string, current func() RunEvent) string {
	t.Helper()
	router := gin.New()
	router.GET("/events", func(c *gin.Context) { hub.Stream(c, runID, current) })
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "stream did not close after the terminal event")
	return string(body)
}

func TestSSEHub_RunFinishedBeforeSubscribe(t *testing.T) {
	hub := NewSSEHub()
	runs := newRunRegistry(10)
	run := runs.create(20)

	// the handler looked the run up while it was still queued
	stale, ok := runs.get(run.ID)
	require.True(t, ok)
	require.Equal(t, RunQueued, stale.State)

	finished := runs.update(run.ID, func(r *Run) { r.State = RunSucceeded; r.Done = 20 })
	hub.Broadcast(finished.Event())

	body := streamRun(t, hub, run.ID, func() RunEvent {
		latest, _ := runs.get(run.ID)
		return latest.Event()
	})
	assert.Contains(t, body, "event:succeeded")
	assert.NotContains(t, body, "event:progress")
	assert.Equal(t, 0, hub.ClientCount(run.ID))
}

func TestSSEHub_EventDuringLookupIsDelivered(t *testing.T) {
	hub := NewSSEHub()
	runs := newRunRegistry(10)
	run := runs.create(20)

	body := streamRun(t, hub, run.ID, func() RunEvent {
		latest, _ := runs.get(run.ID)
		// the run completes right after the lookup; the subscription already exists
		finished := runs.update(run.ID, func(r *Run) { r.State = RunSucceeded; r.Done = 20 })
		hub.Broadcast(finished.Event())
		return latest.Event()
	})
	assert.Contains(t, body, "event:progress")
	assert.Contains(t, body, "event:succeeded")
}
