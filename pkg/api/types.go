package api

import (
	"github.com/yourusername/bearoffsim/pkg/endgame"
)

// ============================================================================
// Request Types
// ============================================================================

// StartRequest selects the position a request works on, checked in the
// order State, Position, GnubgID. With none set, a random board is drawn.
type StartRequest struct {
	State    *endgame.State `json:"state,omitempty"`    // Checkers per point, point 5 nearest the exit
	Position *int           `json:"position,omitempty"` // Bear-off position ID
	GnubgID  string         `json:"gnubg_id,omitempty"` // GNU Backgammon position ID
}

func (r StartRequest) empty() bool {
	return r.State == nil && r.Position == nil && r.GnubgID == ""
}

// DecideRequest is the request body for a policy decision.
type DecideRequest struct {
	StartRequest
	Policy string `json:"policy"` // Registered policy name
	Dice   [2]int `json:"dice"`   // Dice values (1-6 each)
	Seed   int64  `json:"seed"`   // Seed for the random policy (0 = fresh)
}

// PlayRequest is the request body for playing a single game.
type PlayRequest struct {
	StartRequest
	Policy string `json:"policy"`
	Seed   int64  `json:"seed"` // 0 = fresh seed
}

// SimulateRequest is the request body for a Monte Carlo run.
type SimulateRequest struct {
	Policy      string `json:"policy"`
	Iterations  int    `json:"iterations"`   // Games to play (default 10000)
	Seed        int64  `json:"seed"`         // 0 = fresh seed
	IncludeLogs bool   `json:"include_logs"` // Return every turn log
}

// ExactRequest is the request body for an exact turn distribution. With
// no start position the distribution covers a random initial board.
type ExactRequest struct {
	StartRequest
	Policy string `json:"policy"`
}

// ============================================================================
// Response Types
// ============================================================================

// MoveResponse is a single move in the response.
type MoveResponse struct {
	Start    int    `json:"start"`     // Point moved from
	Die      int    `json:"die"`       // Die used
	Move     string `json:"move"`      // Notation (e.g., "2/5", "4/off")
	BearsOff bool   `json:"bears_off"` // Whether the checker leaves the board
}

// DecideResponse is the response for a policy decision.
type DecideResponse struct {
	Policy   string         `json:"policy"`
	State    endgame.State  `json:"state"`    // Position decided on
	Position int            `json:"position"` // Its bear-off position ID
	GnubgID  string         `json:"gnubg_id"` // Its GNU Backgammon position ID
	Dice     [2]int         `json:"dice"`
	Moves    []MoveResponse `json:"moves"`
	Result   endgame.State  `json:"result"`    // Position after the moves
	BorneOff int            `json:"borne_off"` // Checkers the moves bear off
}

// PlayResponse is the response for a single game.
type PlayResponse struct {
	Policy string            `json:"policy"`
	Seed   int64             `json:"seed"`  // Seed used, for replay
	Start  endgame.State     `json:"start"` // Initial position
	Turns  int               `json:"turns"`
	Log    []endgame.TurnLog `json:"log"`
}

// SimulateResponse is the response for a Monte Carlo run.
type SimulateResponse struct {
	Policy     string              `json:"policy"`
	Label      string              `json:"label"` // Report label of the policy
	Seed       int64               `json:"seed"`
	Iterations int                 `json:"iterations"`
	Summary    endgame.Summary     `json:"summary"`
	Logs       [][]endgame.TurnLog `json:"logs,omitempty"`
}

// ExactResponse is the response for an exact turn distribution.
type ExactResponse struct {
	Policy       string         `json:"policy"`
	State        *endgame.State `json:"state,omitempty"` // Omitted for a random start
	Mean         float64        `json:"mean"`
	StdDev       float64        `json:"std"`
	Distribution []float64      `json:"distribution"` // P(turns = k), trailing zeros dropped
}

// ProgressResponse is a progress update for a running simulation.
type ProgressResponse struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
	Mean      float64 `json:"mean"` // Mean turns so far
	CI95      float64 `json:"ci_95"`
}

// PoliciesResponse lists the registered policies.
type PoliciesResponse struct {
	Policies []endgame.PolicyInfo `json:"policies"`
	Default  []string             `json:"default"` // Policies compared by a standard run
}

// ErrorResponse is returned when an error occurs.
type ErrorResponse struct {
	Error string `json:"error"`          // Error message
	Code  string `json:"code,omitempty"` // Error code
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status  string     `json:"status"`         // "ok" or "error"
	Version string     `json:"version"`        // Server version
	Ready   bool       `json:"ready"`          // Whether the server accepts work
	Pool    *PoolStats `json:"pool,omitempty"` // Worker pool statistics
}

func toMoveResponses(moves []endgame.Move) []MoveResponse {
	out := make([]MoveResponse, len(moves))
	for i, m := range moves {
		out[i] = MoveResponse{Start: m.Start, Die: m.Die, Move: m.String(), BearsOff: m.BearsOff()}
	}
	return out
}

func toProgressResponse(p endgame.Progress) ProgressResponse {
	return ProgressResponse{
		Completed: p.Completed,
		Total:     p.Total,
		Percent:   p.Percent,
		Mean:      p.Mean,
		CI95:      p.CI95,
	}
}
