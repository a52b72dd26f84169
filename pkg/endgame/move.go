package endgame

import "fmt"

// checkMove validates a move against s.
func checkMove(s State, start, n int) error {
	if n < 1 || n > 6 {
		return fmt.Errorf("%w: die value %d outside 1-6", ErrInvalidMove, n)
	}
	if start < 0 || start >= Points {
		return fmt.Errorf("%w: point %d outside 0-%d", ErrInvalidMove, start, Points-1)
	}
	if s[start] <= 0 {
		return fmt.Errorf("%w: no checkers on point %d", ErrInvalidMove, start)
	}
	return nil
}

// checkLenientMove validates a move in lenient mode, where an empty point
// may give up a checker and go negative. Points already below zero may not.
func checkLenientMove(s State, start, n int) error {
	if n < 1 || n > 6 {
		return fmt.Errorf("%w: die value %d outside 1-6", ErrInvalidMove, n)
	}
	if start < 0 || start >= Points {
		return fmt.Errorf("%w: point %d outside 0-%d", ErrInvalidMove, start, Points-1)
	}
	if s[start] < 0 {
		return fmt.Errorf("%w: point %d holds %d checkers", ErrInvalidMove, start, s[start])
	}
	return nil
}

// applyMove moves a checker without validation. An empty start point goes
// negative.
func applyMove(s State, start, n int) State {
	s[start]--
	if start+n < Points {
		s[start+n]++
	}
	return s
}

// SimulateMove returns the state after moving one checker from start by n
// pips. s is not modified. Borne-off checkers simply disappear from the
// result.
func SimulateMove(s State, start, n int) (State, error) {
	if err := checkMove(s, start, n); err != nil {
		return s, err
	}
	return applyMove(s, start, n), nil
}

// SimulateLenientMove is SimulateMove in lenient mode: moving from an
// empty point leaves it at -1.
func SimulateLenientMove(s State, start, n int) (State, error) {
	if err := checkLenientMove(s, start, n); err != nil {
		return s, err
	}
	return applyMove(s, start, n), nil
}

// Lenient is implemented by policies whose games are played in lenient
// move mode.
type Lenient interface {
	Lenient() bool
}

// IsLenient reports whether p's moves are applied in lenient mode.
func IsLenient(p Policy) bool {
	l, ok := p.(Lenient)
	return ok && l.Lenient()
}

// AvailablePoints returns, in ascending order, the points holding at least
// one checker.
func AvailablePoints(s State) []int {
	points := make([]int, 0, Points)
	for i, c := range s {
		if c > 0 {
			points = append(points, i)
		}
	}
	return points
}
