package api

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"gobfda/internal"
)

// Event types streamed for asynchronous runs
const (
	EventProgress  = "progress"
	EventSucceeded = "succeeded"
	EventFailed    = "failed"
)

// RunEvent is one update of an asynchronous simulation run
type RunEvent struct {
	RunID     string                 `json:"run_id"`
	EventType string                 `json:"event_type"`
	Progress  float64                `json:"progress"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Terminal reports whether no further events follow for the run
func (e RunEvent) Terminal() bool {
	return e.EventType == EventSucceeded || e.EventType == EventFailed
}

// SSEHub fans run events out to Server-Sent Events subscribers
type SSEHub struct {
	clients   map[string]map[chan RunEvent]bool
	clientsMu sync.RWMutex
	broadcast chan RunEvent
	logger    *internal.Logger
	keepAlive time.Duration
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	hub := &SSEHub{
		clients:   make(map[string]map[chan RunEvent]bool),
		broadcast: make(chan RunEvent, 100),
		logger:    internal.DefaultLogger.With("SSE"),
		keepAlive: 30 * time.Second,
	}

	go hub.run()
	return hub
}

// run delivers broadcast events to the subscribers of their run
func (h *SSEHub) run() {
	for event := range h.broadcast {
		h.clientsMu.RLock()
		for clientChan := range h.clients[event.RunID] {
			select {
			case clientChan <- event:
			default:
				h.logger.Warn("client channel full for run %s, skipping %s event", event.RunID, event.EventType)
			}
		}
		h.clientsMu.RUnlock()
	}
}

// Subscribe registers a channel for the events of one run
func (h *SSEHub) Subscribe(runID string) chan RunEvent {
	ch := make(chan RunEvent, 16)
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if h.clients[runID] == nil {
		h.clients[runID] = make(map[chan RunEvent]bool)
	}
	h.clients[runID][ch] = true
	h.logger.Debug("client registered for run %s (total clients: %d)", runID, len(h.clients[runID]))
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe
func (h *SSEHub) Unsubscribe(runID string, ch chan RunEvent) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	clients, ok := h.clients[runID]
	if !ok || !clients[ch] {
		return
	}
	delete(clients, ch)
	close(ch)
	if len(clients) == 0 {
		delete(h.clients, runID)
	}
}

// Broadcast sends an event to all clients listening to a run
func (h *SSEHub) Broadcast(event RunEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping %s event for run %s", event.EventType, event.RunID)
	}
}

// ClientCount returns the number of active clients for a run
func (h *SSEHub) ClientCount(runID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[runID])
}

// Stream subscribes to runID, writes the event returned by current, then every
// later event until a terminal one or the client disconnects. current runs after
// the subscription, so an update between the two cannot be lost.
func (h *SSEHub) Stream(c *gin.Context, runID string, current func() RunEvent) {
	ch := h.Subscribe(runID)
	defer h.Unsubscribe(runID, ch)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	if !h.write(c, current()) {
		return
	}

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-ch:
			if !ok {
				return false
			}
			return h.write(c, event)
		case <-time.After(h.keepAlive):
			c.SSEvent("ping", `{"status": "alive"}`)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// write sends one event and reports whether the stream should continue
func (h *SSEHub) write(c *gin.Context, event RunEvent) bool {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event: %v", err)
		return true
	}
	c.SSEvent(event.EventType, string(eventJSON))
	c.Writer.Flush()
	return !event.Terminal()
}
