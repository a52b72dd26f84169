package endgame

import (
	"fmt"

	"github.com/yourusername/bearoffsim/pkg/dice"
)

// DefaultStallTurns is the number of consecutive turns without progress
// after which a game is abandoned.
const DefaultStallTurns = 3

// TurnLog records one turn of a game.
type TurnLog struct {
	State    State     `json:"state"`     // Position before the turn
	Position int       `json:"position"`  // Bear-off position ID of State (-1 if a count is negative)
	Dice     dice.Roll `json:"dice"`      // Roll for the turn
	Moves    []Move    `json:"moves"`     // Moves played, in order
	BorneOff int       `json:"borne_off"` // Checkers already off before the turn
}

// Game is the outcome of one playout.
type Game struct {
	Turns int
	Log   []TurnLog
}

// Simulator plays games to completion.
type Simulator struct {
	Dice       dice.Source // Source for the dice rolls
	StallTurns int         // Turns without progress before ErrStall (0 = DefaultStallTurns)
	MaxTurns   int         // Hard turn limit (0 = none)
}

// Play rolls dice and applies p's moves to b until every checker is borne
// off. It returns the number of turns taken and a log entry per turn.
//
// Play fails with ErrConfiguration if the dice source misbehaves, with
// ErrInvalidMove if p returns an illegal move, and with ErrStall if the
// game stops making progress or exceeds MaxTurns. Moves of a lenient policy
// are applied with Board.MoveLenient.
func (s *Simulator) Play(b *Board, p Policy) (Game, error) {
	if s.Dice == nil {
		return Game{}, fmt.Errorf("%w: nil dice source", ErrConfiguration)
	}
	stallTurns := s.StallTurns
	if stallTurns <= 0 {
		stallTurns = DefaultStallTurns
	}

	move := b.Move
	if IsLenient(p) {
		move = b.MoveLenient
	}

	var g Game
	idle := 0
	for b.Remaining() > 0 {
		if s.MaxTurns > 0 && g.Turns >= s.MaxTurns {
			return g, fmt.Errorf("%w: %d checkers left after %d turns", ErrStall, b.Remaining(), g.Turns)
		}
		g.Turns++

		roll := dice.Throw(s.Dice)
		if !roll.Valid() {
			return g, fmt.Errorf("%w: dice source returned %v", ErrConfiguration, roll)
		}

		before := b.State()
		remaining := b.Remaining()
		moves := p.Decide(before, roll)
		g.Log = append(g.Log, TurnLog{
			State:    before,
			Position: b.Position(),
			Dice:     roll,
			Moves:    moves,
			BorneOff: b.BorneOff(),
		})

		for i, m := range moves {
			if err := move(m.Start, m.Die); err != nil {
				return g, fmt.Errorf("turn %d, move %d (%s) on %v: %w", g.Turns, i+1, m, before, err)
			}
		}

		if b.Remaining() < remaining || b.State() != before {
			idle = 0
			continue
		}
		idle++
		if idle >= stallTurns {
			return g, fmt.Errorf("%w: no progress for %d turns on %v", ErrStall, idle, before)
		}
	}
	return g, nil
}
