package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourusername/bearoffsim/pkg/endgame"
)

func newTestHandlers() *Handlers {
	return NewHandlers("test-version", Limits{MaxIterations: 5000})
}

// post sends body to handler and returns the recorded response.
func post(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode request: %v", err)
	}
	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func statePtr(s endgame.State) *endgame.State { return &s }

func intPtr(n int) *int { return &n }

func TestHealthHandler(t *testing.T) {
	pool := NewWorkerPool(DefaultPoolConfig())
	h := NewHandlersWithPool("test-version", DefaultLimits(), pool)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Health status = %d, want %d", w.Code, http.StatusOK)
	}
	var health HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if health.Status != "ok" || health.Version != "test-version" || !health.Ready {
		t.Errorf("health = %+v", health)
	}
	if health.Pool == nil || health.Pool.MaxSlow != 4 {
		t.Errorf("pool stats = %+v", health.Pool)
	}
}

func TestPoliciesHandler(t *testing.T) {
	h := newTestHandlers()
	w := httptest.NewRecorder()
	h.Policies(w, httptest.NewRequest("GET", "/api/policies", nil))

	var resp PoliciesResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(resp.Policies) != 4 {
		t.Errorf("%d policies, want 4", len(resp.Policies))
	}
	if strings.Join(resp.Default, ",") != "random,furthest-first,pip-matching" {
		t.Errorf("default = %v", resp.Default)
	}
}

func TestDecideHandler(t *testing.T) {
	h := newTestHandlers()

	tests := []struct {
		name     string
		req      DecideRequest
		moves    []string
		result   endgame.State
		borneOff int
	}{
		{
			name:     "furthest first bears off the back checker",
			req:      DecideRequest{StartRequest: StartRequest{State: statePtr(endgame.State{1, 0, 0, 0, 0, 2})}, Policy: "furthest-first", Dice: [2]int{6, 5}},
			moves:    []string{"1/off", "6/off"},
			result:   endgame.State{0, 0, 0, 0, 0, 1},
			borneOff: 2,
		},
		{
			name:     "pip matching plays exact bear-offs",
			req:      DecideRequest{StartRequest: StartRequest{State: statePtr(endgame.State{0, 0, 0, 0, 2, 3})}, Policy: "pip-matching", Dice: [2]int{1, 2}},
			moves:    []string{"5/off", "6/off"},
			result:   endgame.State{0, 0, 0, 0, 1, 2},
			borneOff: 2,
		},
		{
			name:     "doubles stop when the board is clear",
			req:      DecideRequest{StartRequest: StartRequest{Position: intPtr(1)}, Policy: "furthest-first", Dice: [2]int{3, 3}},
			moves:    []string{"6/off"},
			result:   endgame.State{},
			borneOff: 1,
		},
		{
			name:     "GNU Backgammon position ID",
			req:      DecideRequest{StartRequest: StartRequest{GnubgID: "IAAAAAAAAAAAAA"}, Policy: "pip-matching", Dice: [2]int{1, 2}},
			moves:    []string{"1/3", "3/4"},
			result:   endgame.State{0, 0, 0, 1, 0, 0},
			borneOff: 0,
		},
		{
			name:     "legacy stale move goes negative",
			req:      DecideRequest{StartRequest: StartRequest{State: statePtr(endgame.State{1})}, Policy: "pip-matching-legacy", Dice: [2]int{3, 1}},
			moves:    []string{"1/2", "1/2"},
			result:   endgame.State{-1, 2, 0, 0, 0, 0},
			borneOff: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h.Decide, "/api/decide", tt.req)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body)
			}
			var resp DecideResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			var got []string
			for _, m := range resp.Moves {
				got = append(got, m.Move)
			}
			if strings.Join(got, " ") != strings.Join(tt.moves, " ") {
				t.Errorf("moves = %v, want %v", got, tt.moves)
			}
			if resp.GnubgID != resp.State.GnubgID() {
				t.Errorf("gnubg_id = %q for %v", resp.GnubgID, resp.State)
			}
			if resp.Result != tt.result || resp.BorneOff != tt.borneOff {
				t.Errorf("result = %v (%d off), want %v (%d off)", resp.Result, resp.BorneOff, tt.result, tt.borneOff)
			}
		})
	}
}

func TestDecideHandlerErrors(t *testing.T) {
	h := newTestHandlers()
	one := StartRequest{State: statePtr(endgame.State{1, 0, 0, 0, 0, 0})}

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"invalid JSON", "{", http.StatusBadRequest, "INVALID_JSON"},
		{"missing position", DecideRequest{Policy: "furthest-first", Dice: [2]int{3, 1}}, http.StatusBadRequest, "MISSING_POSITION"},
		{"bad dice", DecideRequest{StartRequest: one, Policy: "furthest-first", Dice: [2]int{0, 3}}, http.StatusBadRequest, "INVALID_DICE"},
		{"unknown policy", DecideRequest{StartRequest: one, Policy: "optimal", Dice: [2]int{3, 1}}, http.StatusBadRequest, "UNKNOWN_POLICY"},
		{"too many checkers", DecideRequest{StartRequest: StartRequest{State: statePtr(endgame.State{16})}, Policy: "furthest-first", Dice: [2]int{3, 1}}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad position ID", DecideRequest{StartRequest: StartRequest{Position: intPtr(-1)}, Policy: "furthest-first", Dice: [2]int{3, 1}}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"not a bear-off", DecideRequest{StartRequest: StartRequest{GnubgID: "4HPwATDgc/ABMA"}, Policy: "furthest-first", Dice: [2]int{3, 1}}, http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h.Decide, "/api/decide", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body)
			}
			if resp := decodeError(t, w); resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestPlayHandler(t *testing.T) {
	h := newTestHandlers()

	play := func(req PlayRequest) PlayResponse {
		t.Helper()
		w := post(t, h.Play, "/api/play", req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body)
		}
		var resp PlayResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Decode error: %v", err)
		}
		return resp
	}

	a := play(PlayRequest{Policy: "random", Seed: 42})
	if a.Seed != 42 || a.Start.Total() != endgame.Checkers {
		t.Errorf("seed %d, start %v", a.Seed, a.Start)
	}
	if a.Turns != len(a.Log) || a.Turns < 3 {
		t.Errorf("%d turns with %d log entries", a.Turns, len(a.Log))
	}
	if a.Log[0].State != a.Start {
		t.Errorf("first log state %v, start %v", a.Log[0].State, a.Start)
	}

	b := play(PlayRequest{Policy: "random", Seed: 42})
	if b.Turns != a.Turns || b.Start != a.Start {
		t.Errorf("same seed gave %d turns from %v, then %d from %v", a.Turns, a.Start, b.Turns, b.Start)
	}

	one := play(PlayRequest{StartRequest: StartRequest{State: statePtr(endgame.State{0, 0, 0, 0, 0, 1})}, Policy: "pip-matching"})
	if one.Turns != 1 || one.Seed == 0 {
		t.Errorf("single checker game = %+v", one)
	}
}

func TestSimulateHandler(t *testing.T) {
	h := newTestHandlers()

	w := post(t, h.Simulate, "/api/simulate", SimulateRequest{Policy: "pip-matching", Iterations: 200, Seed: 7})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var resp SimulateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if resp.Iterations != 200 || resp.Summary.N != 200 || resp.Seed != 7 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Label != "Pip Matching Policy" {
		t.Errorf("label = %q", resp.Label)
	}
	if resp.Summary.Mean < 5 || resp.Summary.Mean > 12 || resp.Logs != nil {
		t.Errorf("mean %.3f, %d logs", resp.Summary.Mean, len(resp.Logs))
	}

	w = post(t, h.Simulate, "/api/simulate", SimulateRequest{Policy: "random", Iterations: 10, IncludeLogs: true})
	resp = SimulateResponse{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(resp.Logs) != 10 {
		t.Errorf("%d logs, want 10", len(resp.Logs))
	}
}

func TestSimulateHandlerLimits(t *testing.T) {
	h := newTestHandlers()
	tests := []SimulateRequest{
		{Policy: "furthest-first", Iterations: 5001},
		{Policy: "furthest-first", Iterations: -3},
		{Policy: "furthest-first", Iterations: 2000, IncludeLogs: true},
	}
	for _, req := range tests {
		w := post(t, h.Simulate, "/api/simulate", req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%+v: status = %d, want 400", req, w.Code)
			continue
		}
		if resp := decodeError(t, w); resp.Code != "INVALID_ITERATIONS" {
			t.Errorf("%+v: code = %q", req, resp.Code)
		}
	}
}

func TestExactHandler(t *testing.T) {
	h := newTestHandlers()

	w := post(t, h.Exact, "/api/exact", ExactRequest{StartRequest: StartRequest{State: statePtr(endgame.State{1})}, Policy: "furthest-first"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var resp ExactResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if math.Abs(resp.Mean-1.25) > 1e-9 || len(resp.Distribution) != 3 {
		t.Errorf("response = %+v", resp)
	}
	if resp.State == nil || *resp.State != (endgame.State{1}) {
		t.Errorf("state = %v", resp.State)
	}

	for policy, code := range map[string]string{
		"random":              "NOT_DETERMINISTIC",
		"pip-matching-legacy": "NOT_EXACT",
		"optimal":             "UNKNOWN_POLICY",
	} {
		w = post(t, h.Exact, "/api/exact", ExactRequest{Policy: policy})
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", policy, w.Code)
			continue
		}
		if resp := decodeError(t, w); resp.Code != code {
			t.Errorf("%s: code = %q, want %q", policy, resp.Code, code)
		}
	}
}

func TestSimulateSSE(t *testing.T) {
	h := newTestHandlers()

	req := httptest.NewRequest("GET", "/api/simulate/stream?policy=furthest-first&iterations=100&seed=3", nil)
	w := httptest.NewRecorder()
	h.SimulateSSE(w, req)

	body := w.Body.String()
	if got := strings.Count(body, "event: progress\n"); got != 20 {
		t.Errorf("%d progress events, want 20", got)
	}
	for _, event := range []string{"event: result\n", "event: done\n"} {
		if !strings.Contains(body, event) {
			t.Errorf("stream has no %q", event)
		}
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	w = httptest.NewRecorder()
	h.SimulateSSE(w, httptest.NewRequest("GET", "/api/simulate/stream", nil))
	if !strings.Contains(w.Body.String(), "event: error\n") {
		t.Errorf("missing policy gave %q", w.Body.String())
	}
}

func TestServerRoutes(t *testing.T) {
	server := httptest.NewServer(NewServer(DefaultConfig(), "test").Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/policies")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /api/policies = %d", resp.StatusCode)
	}
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("CORS origin = %q", origin)
	}

	resp, err = http.Get(server.URL + "/api/simulate")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/simulate = %d, want 405", resp.StatusCode)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{endgame.ErrUnknownPolicy, http.StatusBadRequest, "UNKNOWN_POLICY"},
		{endgame.ErrConfiguration, http.StatusBadRequest, "INVALID_REQUEST"},
		{endgame.ErrInvalidMove, http.StatusInternalServerError, "INVALID_MOVE"},
		{endgame.ErrStall, http.StatusInternalServerError, "STALLED"},
		{badRequest("INVALID_DICE", "bad"), http.StatusBadRequest, "INVALID_DICE"},
	}
	for _, tt := range tests {
		status, code := errorStatus(tt.err)
		if status != tt.status || code != tt.code {
			t.Errorf("errorStatus(%v) = %d %s, want %d %s", tt.err, status, code, tt.status, tt.code)
		}
	}
}

// ============================================================================
// WebSocket Tests
// ============================================================================

func dialTestWS(t *testing.T, h *Handlers) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(h.WebSocket))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("Status = %d, want %d", resp.StatusCode, http.StatusSwitchingProtocols)
	}
	return ws, func() { ws.Close(); server.Close() }
}

func readWS(t *testing.T, ws *websocket.Conn) WSResponse {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp WSResponse
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return resp
}

// decodePayload re-decodes a generic payload into v.
func decodePayload(t *testing.T, payload interface{}, v interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatal(err)
	}
}

func TestWebSocketPing(t *testing.T) {
	ws, done := dialTestWS(t, newTestHandlers())
	defer done()

	if err := ws.WriteJSON(WSMessage{Type: "ping", ID: "test-ping-1"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	resp := readWS(t, ws)
	if resp.Type != "pong" || resp.ID != "test-ping-1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestWebSocketDecide(t *testing.T) {
	ws, done := dialTestWS(t, newTestHandlers())
	defer done()

	payload, _ := json.Marshal(DecideRequest{
		StartRequest: StartRequest{State: statePtr(endgame.State{0, 0, 0, 0, 2, 3})},
		Policy:       "pip-matching",
		Dice:         [2]int{2, 1},
	})
	if err := ws.WriteJSON(WSMessage{Type: "decide", ID: "decide-1", Payload: payload}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	resp := readWS(t, ws)
	if resp.Type != "result" || resp.ID != "decide-1" {
		t.Fatalf("response = %+v", resp)
	}
	var decision DecideResponse
	decodePayload(t, resp.Payload, &decision)
	if len(decision.Moves) != 2 || decision.BorneOff != 2 {
		t.Errorf("decision = %+v", decision)
	}
}

func TestWebSocketSimulate(t *testing.T) {
	ws, done := dialTestWS(t, newTestHandlers())
	defer done()

	payload, _ := json.Marshal(SimulateRequest{Policy: "furthest-first", Iterations: 40, Seed: 5})
	if err := ws.WriteJSON(WSMessage{Type: "simulate", ID: "sim-1", Payload: payload}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	progress := 0
	for {
		resp := readWS(t, ws)
		if resp.ID != "sim-1" {
			t.Fatalf("response ID = %q", resp.ID)
		}
		if resp.Type == "progress" {
			progress++
			continue
		}
		if resp.Type != "result" {
			t.Fatalf("response = %+v", resp)
		}
		var result SimulateResponse
		decodePayload(t, resp.Payload, &result)
		if result.Summary.N != 40 {
			t.Errorf("summary = %+v", result.Summary)
		}
		break
	}
	if progress != 20 {
		t.Errorf("%d progress frames, want 20", progress)
	}
}

func TestWebSocketErrors(t *testing.T) {
	ws, done := dialTestWS(t, newTestHandlers())
	defer done()

	tests := []WSMessage{
		{Type: "evaluate", ID: "e-1"},
		{Type: "decide", ID: "e-2", Payload: json.RawMessage(`"not an object"`)},
		{Type: "play", ID: "e-3", Payload: json.RawMessage(`{"policy":"optimal"}`)},
	}
	for _, msg := range tests {
		if err := ws.WriteJSON(msg); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		resp := readWS(t, ws)
		if resp.Type != "error" || resp.ID != msg.ID || resp.Error == "" {
			t.Errorf("%s: response = %+v", msg.Type, resp)
		}
	}
}

func TestWebSocketFastLaneBusy(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 1, MaxSlowWorkers: 1})
	h := NewHandlersWithPool("test-version", DefaultLimits(), pool)
	c := &WSClient{handlers: h, sendChan: make(chan WSResponse, 4), ctx: context.Background()}

	payload, _ := json.Marshal(DecideRequest{
		StartRequest: StartRequest{State: statePtr(endgame.State{0, 0, 0, 0, 0, 1})},
		Policy:       "furthest-first",
		Dice:         [2]int{3, 1},
	})
	msg := WSMessage{Type: "decide", ID: "d-1", Payload: payload}

	if !pool.TryAcquireFast() {
		t.Fatal("fast slot unavailable")
	}
	c.handleMessage(msg)
	if resp := <-c.sendChan; resp.Type != "error" || resp.Error != "server busy" {
		t.Errorf("full fast lane: response = %+v", resp)
	}
	pool.ReleaseFast()

	c.handleMessage(msg)
	if resp := <-c.sendChan; resp.Type != "result" {
		t.Errorf("free fast lane: response = %+v", resp)
	}
	if stats := pool.Stats(); stats.ActiveFast != 0 || stats.TotalFast != 2 {
		t.Errorf("stats = %+v, want no active and 2 total fast operations", stats)
	}
}

func TestWebSocketSimulateCancelled(t *testing.T) {
	pool := NewWorkerPool(DefaultPoolConfig())
	h := NewHandlersWithPool("test-version", DefaultLimits(), pool)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &WSClient{handlers: h, sendChan: make(chan WSResponse, 32), ctx: ctx, cancel: cancel}

	payload, _ := json.Marshal(SimulateRequest{Policy: "furthest-first", Iterations: 1000, Seed: 1})
	c.handleMessage(WSMessage{Type: "simulate", ID: "s-1", Payload: payload})

	resp := <-c.sendChan
	if resp.Type != "error" || !strings.Contains(resp.Error, context.Canceled.Error()) {
		t.Errorf("response = %+v, want a cancellation error", resp)
	}
	if stats := pool.Stats(); stats.ActiveSlow != 0 {
		t.Errorf("%d slow slots still held", stats.ActiveSlow)
	}
}

func TestSimulateSSEQueueTimeout(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 1, MaxSlowWorkers: 1})
	h := NewHandlersWithPool("test-version", DefaultLimits(), pool)
	h.queueTimeout = 10 * time.Millisecond
	if !pool.TryAcquireSlow() {
		t.Fatal("slow slot unavailable")
	}
	defer pool.ReleaseSlow()

	w := httptest.NewRecorder()
	h.SimulateSSE(w, httptest.NewRequest("GET", "/api/simulate/stream?policy=furthest-first&iterations=10", nil))
	if body := w.Body.String(); !strings.Contains(body, "server busy") {
		t.Errorf("stream = %q, want a server busy error", body)
	}
}
