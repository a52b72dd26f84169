package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/yourusername/bearoffsim/pkg/dice"
	"github.com/yourusername/bearoffsim/pkg/endgame"
)

const (
	defaultIterations = 10000

	// defaultQueueTimeout bounds how long a stream waits for a slow slot.
	defaultQueueTimeout = 30 * time.Second

	// maxLoggedGames caps simulations that return full turn logs.
	maxLoggedGames = 1000
)

// Limits bounds the work a single request may ask for.
type Limits struct {
	MaxIterations int // Max games per simulation (default 1000000)
	MaxTurns      int // Per-game turn cap (default 200)
}

// DefaultLimits returns Limits with sensible defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxIterations: 1000000,
		MaxTurns:      200,
	}
}

// Handlers holds the HTTP handlers and their shared state.
type Handlers struct {
	version      string
	limits       Limits
	pool         *WorkerPool
	queueTimeout time.Duration

	mu    sync.Mutex
	exact map[string]*endgame.Exact // Memoised exact evaluators by policy name
}

// NewHandlers creates a new Handlers instance without a worker pool.
func NewHandlers(version string, limits Limits) *Handlers {
	return NewHandlersWithPool(version, limits, nil)
}

// NewHandlersWithPool creates a new Handlers instance with a worker pool.
func NewHandlersWithPool(version string, limits Limits, pool *WorkerPool) *Handlers {
	def := DefaultLimits()
	if limits.MaxIterations <= 0 {
		limits.MaxIterations = def.MaxIterations
	}
	if limits.MaxTurns <= 0 {
		limits.MaxTurns = def.MaxTurns
	}
	return &Handlers{
		version:      version,
		limits:       limits,
		pool:         pool,
		queueTimeout: defaultQueueTimeout,
		exact:        make(map[string]*endgame.Exact),
	}
}

// requestError is a client error with its HTTP status and error code.
type requestError struct {
	status int
	code   string
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(code, format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, code: code, err: fmt.Errorf(format, args...)}
}

// errorStatus maps an error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	var re *requestError
	switch {
	case errors.As(err, &re):
		return re.status, re.code
	case errors.Is(err, endgame.ErrUnknownPolicy):
		return http.StatusBadRequest, "UNKNOWN_POLICY"
	case errors.Is(err, endgame.ErrConfiguration):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, endgame.ErrInvalidMove):
		return http.StatusInternalServerError, "INVALID_MOVE"
	case errors.Is(err, endgame.ErrStall):
		return http.StatusInternalServerError, "STALLED"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELLED"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// writeFailure writes err with the status errorStatus picks for it.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	writeError(w, status, err.Error(), code)
}

// startBoard builds the board a request starts from.
func startBoard(req StartRequest, src dice.Source) (*endgame.Board, error) {
	switch {
	case req.State != nil:
		return endgame.NewBoardFromState(*req.State, src)
	case req.Position != nil:
		return endgame.NewBoardFromPosition(*req.Position, src)
	case req.GnubgID != "":
		return endgame.NewBoardFromGnubgID(req.GnubgID, src)
	}
	return endgame.NewBoard(src)
}

func (h *Handlers) decide(req DecideRequest) (*DecideResponse, error) {
	if req.empty() {
		return nil, badRequest("MISSING_POSITION", "state, position or gnubg_id is required")
	}
	roll := dice.Roll(req.Dice)
	if !roll.Valid() {
		return nil, badRequest("INVALID_DICE", "invalid dice %v", req.Dice)
	}
	src, _, err := dice.NewSource(req.Seed)
	if err != nil {
		return nil, err
	}
	p, info, err := endgame.LookupPolicy(req.Policy, src)
	if err != nil {
		return nil, err
	}
	b, err := startBoard(req.StartRequest, nil)
	if err != nil {
		return nil, err
	}

	simulate := endgame.SimulateMove
	if info.Lenient {
		simulate = endgame.SimulateLenientMove
	}

	s := b.State()
	moves := p.Decide(s, roll)
	result := s
	for i, m := range moves {
		if result, err = simulate(result, m.Start, m.Die); err != nil {
			return nil, fmt.Errorf("move %d (%s): %w", i+1, m, err)
		}
	}
	return &DecideResponse{
		Policy:   info.Name,
		State:    s,
		Position: b.Position(),
		GnubgID:  s.GnubgID(),
		Dice:     req.Dice,
		Moves:    toMoveResponses(moves),
		Result:   result,
		BorneOff: s.Total() - result.Total(),
	}, nil
}

func (h *Handlers) play(req PlayRequest) (*PlayResponse, error) {
	src, seed, err := dice.NewSource(req.Seed)
	if err != nil {
		return nil, err
	}
	p, info, err := endgame.LookupPolicy(req.Policy, src)
	if err != nil {
		return nil, err
	}
	b, err := startBoard(req.StartRequest, src)
	if err != nil {
		return nil, err
	}
	start := b.State()

	sim := endgame.Simulator{Dice: src, MaxTurns: h.limits.MaxTurns}
	game, err := sim.Play(b, p)
	if err != nil {
		return nil, err
	}
	return &PlayResponse{
		Policy: info.Name,
		Seed:   seed,
		Start:  start,
		Turns:  game.Turns,
		Log:    game.Log,
	}, nil
}

func (h *Handlers) simulate(ctx context.Context, req SimulateRequest, progress endgame.ProgressCallback) (*SimulateResponse, error) {
	n := req.Iterations
	if n == 0 {
		n = defaultIterations
	}
	if n < 0 || n > h.limits.MaxIterations {
		return nil, badRequest("INVALID_ITERATIONS", "iterations must be between 1 and %d", h.limits.MaxIterations)
	}
	if req.IncludeLogs && n > maxLoggedGames {
		return nil, badRequest("INVALID_ITERATIONS", "include_logs allows at most %d iterations", maxLoggedGames)
	}

	src, seed, err := dice.NewSource(req.Seed)
	if err != nil {
		return nil, err
	}
	p, info, err := endgame.LookupPolicy(req.Policy, src)
	if err != nil {
		return nil, err
	}
	drv, err := endgame.NewDriver(src, endgame.DriverOptions{
		MaxTurns:    h.limits.MaxTurns,
		DiscardLogs: !req.IncludeLogs,
		Progress:    progress,
	})
	if err != nil {
		return nil, err
	}
	result, err := drv.RunContext(ctx, n, p)
	if err != nil {
		return nil, err
	}
	return &SimulateResponse{
		Policy:     info.Name,
		Label:      info.Label,
		Seed:       seed,
		Iterations: n,
		Summary:    result.Summary(),
		Logs:       result.Logs,
	}, nil
}

func (h *Handlers) exactDistribution(req ExactRequest) (*ExactResponse, error) {
	info, err := endgame.PolicyByName(req.Policy)
	if err != nil {
		return nil, err
	}
	if !info.Deterministic {
		return nil, badRequest("NOT_DETERMINISTIC", "policy %q makes random choices", info.Name)
	}
	if info.Lenient {
		return nil, badRequest("NOT_EXACT", "policy %q plays lenient moves", info.Name)
	}
	p, _, err := endgame.LookupPolicy(info.Name, nil)
	if err != nil {
		return nil, err
	}

	resp := &ExactResponse{Policy: info.Name}
	random := req.empty()
	var start endgame.State
	if !random {
		b, err := startBoard(req.StartRequest, nil)
		if err != nil {
			return nil, err
		}
		start = b.State()
		resp.State = &start
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.exact[info.Name]
	if !ok {
		e = endgame.NewExact(p)
		h.exact[info.Name] = e
	}
	var d endgame.Distribution
	if random {
		d, err = e.RandomStart()
	} else {
		d, err = e.Distribution(start)
	}
	if err != nil {
		return nil, err
	}

	resp.Mean, resp.StdDev = d.Moments()
	last := len(d) - 1
	for last > 0 && d[last] == 0 {
		last--
	}
	resp.Distribution = append([]float64(nil), d[:last+1]...)
	return resp, nil
}

// Health handles GET /api/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Ready:   true,
	}

	// Include pool stats if available
	if h.pool != nil {
		stats := h.pool.Stats()
		resp.Pool = &stats
	}

	writeJSON(w, http.StatusOK, resp)
}

// Policies handles GET /api/policies
func (h *Handlers) Policies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PoliciesResponse{
		Policies: endgame.Policies(),
		Default:  endgame.DefaultPolicies,
	})
}

// Decide handles POST /api/decide
func (h *Handlers) Decide(w http.ResponseWriter, r *http.Request) {
	// Acquire fast worker slot if pool is configured
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseFast()
	}

	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}

	resp, err := h.decide(req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Play handles POST /api/play
func (h *Handlers) Play(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseFast()
	}

	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}

	resp, err := h.play(req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Simulate handles POST /api/simulate
func (h *Handlers) Simulate(w http.ResponseWriter, r *http.Request) {
	// Acquire slow worker slot if pool is configured (runs are CPU-intensive)
	if h.pool != nil {
		if err := h.pool.AcquireSlow(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseSlow()
	}

	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}

	resp, err := h.simulate(r.Context(), req, nil)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Exact handles POST /api/exact
func (h *Handlers) Exact(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireSlow(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseSlow()
	}

	var req ExactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}

	resp, err := h.exactDistribution(req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
