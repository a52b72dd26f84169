package endgame

import "github.com/yourusername/bearoffsim/pkg/dice"

// Policy decides which checkers to move for a roll.
//
// Decide returns the moves to play, in order, given the position at the
// start of the turn. A roll grants two moves, four on doubles; sub-move k
// uses die roll[k%2]. Policies plan against a private copy of s and stop
// early when no checker is left to move.
type Policy interface {
	Decide(s State, roll dice.Roll) []Move
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(s State, roll dice.Roll) []Move

// Decide calls f(s, roll).
func (f PolicyFunc) Decide(s State, roll dice.Roll) []Move {
	return f(s, roll)
}

// planTurn runs the sub-move loop shared by the policies. pick chooses the
// start point for die given the current snapshot and its available points.
func planTurn(s State, dies []int, pick func(cur State, available []int, die int) int) []Move {
	var moves []Move
	cur := s
	for _, die := range dies {
		available := AvailablePoints(cur)
		if len(available) == 0 {
			break
		}
		start := pick(cur, available, die)
		moves = append(moves, Move{Start: start, Die: die})
		cur = applyMove(cur, start, die)
	}
	return moves
}

// RandomPolicy moves a checker from a uniformly chosen occupied point on
// every sub-move.
type RandomPolicy struct {
	src dice.Source
}

// NewRandomPolicy returns a RandomPolicy drawing from src.
func NewRandomPolicy(src dice.Source) *RandomPolicy {
	return &RandomPolicy{src: src}
}

// Decide implements Policy.
func (p *RandomPolicy) Decide(s State, roll dice.Roll) []Move {
	return planTurn(s, roll.Uses(), func(_ State, available []int, _ int) int {
		return available[p.src.UniformInt(0, len(available)-1)]
	})
}

// FurthestFirst always moves a checker from the lowest occupied point,
// the one furthest from the exit.
type FurthestFirst struct{}

// Decide implements Policy.
func (FurthestFirst) Decide(s State, roll dice.Roll) []Move {
	return planTurn(s, roll.Uses(), func(_ State, available []int, _ int) int {
		return available[0]
	})
}

// PipMatching prefers moves that bear a checker off with an exact roll.
// The dice are played high then low (high, low, high, low on doubles);
// each die goes to point 6-die when that point is occupied, otherwise to
// the lowest occupied point.
type PipMatching struct{}

// Decide implements Policy.
func (PipMatching) Decide(s State, roll dice.Roll) []Move {
	sorted := roll.Sorted()
	lo, hi := sorted[0], sorted[1]
	dies := []int{hi, lo}
	if roll.IsDouble() {
		dies = append(dies, hi, lo)
	}
	return planTurn(s, dies, func(cur State, available []int, die int) int {
		if exact := Points - die; cur[exact] > 0 {
			return exact
		}
		return available[0]
	})
}

// PipMatchingLegacy reproduces the first published pip-matching policy
// move for move. It differs from PipMatching in two ways:
//
//   - a sub-move that cannot bear off exactly is played with the low die,
//     so on a non-double the high die can go unused;
//   - the second sub-move's fallback point is read from the position at
//     the start of the turn rather than after the first sub-move, so it
//     may name a point the first sub-move emptied. Board.Move rejects
//     such a move with ErrInvalidMove, so games with this policy are
//     played in lenient mode (see Board.MoveLenient) and the emptied point
//     goes to -1.
type PipMatchingLegacy struct{}

// Lenient implements Lenient.
func (PipMatchingLegacy) Lenient() bool { return true }

// Decide implements Policy.
func (PipMatchingLegacy) Decide(s State, roll dice.Roll) []Move {
	sorted := roll.Sorted()
	lo, hi := sorted[0], sorted[1]

	initial := AvailablePoints(s)
	if len(initial) == 0 {
		return nil
	}

	first := Move{Start: initial[0], Die: lo}
	if s[Points-hi] > 0 {
		first = Move{Start: Points - hi, Die: hi}
	}
	s2 := applyMove(s, first.Start, first.Die)
	if len(AvailablePoints(s2)) == 0 {
		return []Move{first}
	}

	second := Move{Start: initial[0], Die: lo}
	if s2[Points-lo] > 0 {
		second = Move{Start: Points - lo, Die: lo}
	}
	s3 := applyMove(s2, second.Start, second.Die)
	moves := []Move{first, second}
	if !roll.IsDouble() {
		return moves
	}

	available := AvailablePoints(s3)
	if len(available) == 0 {
		return moves
	}
	third := Move{Start: available[0], Die: lo}
	if s3[Points-hi] > 0 {
		third = Move{Start: Points - hi, Die: hi}
	}
	s4 := applyMove(s3, third.Start, third.Die)

	available = AvailablePoints(s4)
	if len(available) == 0 {
		return append(moves, third)
	}
	fourth := Move{Start: available[0], Die: lo}
	if s4[Points-lo] > 0 {
		fourth = Move{Start: Points - lo, Die: lo}
	}
	return append(moves, third, fourth)
}
