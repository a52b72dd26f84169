package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/yourusername/bearoffsim/pkg/endgame"
)

// SSEEvent represents a Server-Sent Event.
type SSEEvent struct {
	Event string      `json:"event"` // Event type: "progress", "result", "error", "done"
	Data  interface{} `json:"data"`  // Event data
}

// SimulateSSE handles Server-Sent Events for streaming simulation progress.
// GET /api/simulate/stream?policy=...&iterations=...&seed=...
func (h *Handlers) SimulateSSE(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	query := r.URL.Query()
	policy := query.Get("policy")
	if policy == "" {
		writeSSEError(w, "policy is required")
		return
	}

	req := SimulateRequest{
		Policy:     policy,
		Iterations: parseIntParam(query.Get("iterations"), defaultIterations),
		Seed:       int64(parseIntParam(query.Get("seed"), 0)),
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeSSEError(w, "streaming not supported")
		return
	}

	if h.pool != nil {
		if err := h.pool.AcquireSlowWithTimeout(r.Context(), h.queueTimeout); err != nil {
			writeSSEError(w, "server busy")
			return
		}
		defer h.pool.ReleaseSlow()
	}

	// Progress callback sends SSE events
	callback := func(p endgame.Progress) {
		writeSSEEvent(w, "progress", toProgressResponse(p))
		flusher.Flush()
	}

	result, err := h.simulate(r.Context(), req, callback)
	if err != nil {
		writeSSEError(w, "simulation failed: "+err.Error())
		return
	}

	writeSSEEvent(w, "result", result)
	flusher.Flush()

	// Send done event to signal completion
	writeSSEEvent(w, "done", nil)
	flusher.Flush()
}

// writeSSEEvent writes a Server-Sent Event to the response.
func writeSSEEvent(w http.ResponseWriter, event string, data interface{}) {
	fmt.Fprintf(w, "event: %s\n", event)
	if data != nil {
		jsonData, _ := json.Marshal(data)
		fmt.Fprintf(w, "data: %s\n", jsonData)
	}
	fmt.Fprintf(w, "\n")
}

// writeSSEError writes an error event and closes the stream.
func writeSSEError(w http.ResponseWriter, message string) {
	writeSSEEvent(w, "error", map[string]string{"error": message})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// parseIntParam parses an integer from a string with a default value.
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	var val int
	if _, err := fmt.Sscanf(s, "%d", &val); err != nil {
		return defaultVal
	}
	return val
}
