// Package endgame simulates the one-sided bear-off race: checkers on six
// points are moved off the board with dice rolls under a move policy, and
// repeated playouts estimate how many turns clearing the board takes.
package endgame

import (
	"errors"
	"fmt"

	"github.com/yourusername/bearoffsim/internal/bearoff"
	"github.com/yourusername/bearoffsim/pkg/dice"
)

const (
	// Points is the number of points a checker can occupy. Point 0 is
	// furthest from the exit, point 5 is the last one before it.
	Points = bearoff.Points
	// Checkers is the number of checkers on a freshly drawn board.
	Checkers = bearoff.Checkers
)

var (
	// ErrInvalidMove is returned for a move with a die outside 1-6 or from
	// a point holding no checkers.
	ErrInvalidMove = errors.New("invalid move")
	// ErrStall is returned when a game stops making progress.
	ErrStall = errors.New("simulation stalled")
	// ErrConfiguration is returned for malformed random source output and
	// for boards or policies that cannot be built as requested.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnknownPolicy is returned when a policy name is not registered.
	ErrUnknownPolicy = errors.New("unknown policy")
)

// State holds the number of checkers on each point. It is a value type:
// assigning or passing a State copies it.
type State [Points]int

// Total returns the number of checkers on the board.
func (s State) Total() int {
	total := 0
	for _, c := range s {
		total += c
	}
	return total
}

// Pips returns the number of pips needed to bear off every checker
// exactly.
func (s State) Pips() int {
	pips := 0
	for i, c := range s {
		pips += c * (Points - i)
	}
	return pips
}

// GnubgID returns the GNU Backgammon position ID of s, with the opponent
// fully borne off.
func (s State) GnubgID() string {
	return bearoff.PositionID(s)
}

func (s State) String() string {
	return fmt.Sprint([Points]int(s))
}

// Move moves one checker from Start by Die pips.
type Move struct {
	Start int `json:"start"`
	Die   int `json:"die"`
}

// BearsOff reports whether the move takes the checker off the board.
func (m Move) BearsOff() bool {
	return m.Start+m.Die >= Points
}

// String formats the move with 1-based points, e.g. "2/5" or "4/off".
func (m Move) String() string {
	if m.BearsOff() {
		return fmt.Sprintf("%d/off", m.Start+1)
	}
	return fmt.Sprintf("%d/%d", m.Start+1, m.Start+m.Die+1)
}

// Board is the live state of one bear-off game.
type Board struct {
	state     State
	remaining int
	total     int
	src       dice.Source
}

// NewBoard returns a board with Checkers checkers placed uniformly at
// random using src.
func NewBoard(src dice.Source) (*Board, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrConfiguration)
	}
	b := &Board{src: src}
	if err := b.Reset(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewBoardFromState returns a board holding s, with every checker on it
// still to bear off. src may be nil, in which case Reset fails.
func NewBoardFromState(s State, src dice.Source) (*Board, error) {
	if !bearoff.Valid(s) {
		return nil, fmt.Errorf("%w: position %v needs 0-%d non-negative checkers", ErrConfiguration, s, Checkers)
	}
	total := s.Total()
	return &Board{state: s, remaining: total, total: total, src: src}, nil
}

// NewBoardFromPosition returns a board for a bear-off position ID.
func NewBoardFromPosition(id int, src dice.Source) (*Board, error) {
	if id < 0 || id >= bearoff.NumPositions {
		return nil, fmt.Errorf("%w: position ID %d outside [0, %d)", ErrConfiguration, id, bearoff.NumPositions)
	}
	return NewBoardFromState(State(bearoff.FromIndex(id)), src)
}

// NewBoardFromGnubgID returns a board for a GNU Backgammon position ID
// whose side to move has all its checkers in its home board.
func NewBoardFromGnubgID(id string, src dice.Source) (*Board, error) {
	counts, err := bearoff.FromPositionID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return NewBoardFromState(State(counts), src)
}

// Reset replaces the board with a fresh random placement of Checkers
// checkers.
func (b *Board) Reset() error {
	if b.src == nil {
		return fmt.Errorf("%w: board has no random source", ErrConfiguration)
	}
	var s State
	for i := 0; i < Checkers; i++ {
		p := b.src.UniformInt(0, Points-1)
		if p < 0 || p >= Points {
			return fmt.Errorf("%w: random source returned point %d, want 0-%d", ErrConfiguration, p, Points-1)
		}
		s[p]++
	}
	b.state = s
	b.remaining = Checkers
	b.total = Checkers
	return nil
}

// Move moves one checker from start by n pips, bearing it off when it
// passes the last point.
func (b *Board) Move(start, n int) error {
	if err := checkMove(b.state, start, n); err != nil {
		return err
	}
	b.state = applyMove(b.state, start, n)
	if start+n >= Points {
		b.remaining--
	}
	return nil
}

// MoveLenient is Move in lenient mode: a checker may be taken from an empty
// point, leaving a negative count behind. Remaining still drops by one per
// checker borne off, so a game can finish with non-zero counts that sum to
// zero.
func (b *Board) MoveLenient(start, n int) error {
	if err := checkLenientMove(b.state, start, n); err != nil {
		return err
	}
	b.state = applyMove(b.state, start, n)
	if start+n >= Points {
		b.remaining--
	}
	return nil
}

// State returns a copy of the checker counts.
func (b *Board) State() State {
	return b.state
}

// Remaining returns the number of checkers not yet borne off.
func (b *Board) Remaining() int {
	return b.remaining
}

// BorneOff returns the number of checkers already borne off.
func (b *Board) BorneOff() int {
	return b.total - b.remaining
}

// Position returns the bear-off position ID of the current state, or -1
// once a lenient move has left a negative count.
func (b *Board) Position() int {
	if !bearoff.Valid(b.state) {
		return -1
	}
	return bearoff.Index(b.state)
}

func (b *Board) String() string {
	return b.state.String()
}
