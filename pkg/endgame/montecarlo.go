package endgame

import (
	"context"
	"fmt"
	"math"

	"github.com/yourusername/bearoffsim/pkg/dice"
)

// DriverOptions controls a Monte Carlo run
type DriverOptions struct {
	StallTurns  int              // Passed to the Simulator (0 = DefaultStallTurns)
	MaxTurns    int              // Per-game turn limit (0 = none)
	DiscardLogs bool             // Keep only turn counts
	Progress    ProgressCallback // Called about 20 times per run (optional)
}

// Progress reports how far a run has got.
type Progress struct {
	Completed int     // Games finished so far
	Total     int     // Games requested
	Percent   float64 // 0-100
	Mean      float64 // Mean turns so far
	CI95      float64 // Half-width of the 95% confidence interval of Mean
}

// ProgressCallback receives periodic progress updates.
type ProgressCallback func(Progress)

// RunResult holds the turn count and log of every game in a run.
type RunResult struct {
	Turns []int
	Logs  [][]TurnLog // nil when DiscardLogs is set
}

// Summary summarizes the turn counts.
func (r *RunResult) Summary() Summary {
	return Summarize(r.Turns)
}

// Driver repeats playouts on one reused Board. A Driver is not safe for
// concurrent use; give each goroutine its own Driver and source.
type Driver struct {
	board *Board
	sim   Simulator
	opts  DriverOptions
}

// NewDriver returns a Driver whose board placements and dice both come
// from src.
func NewDriver(src dice.Source, opts DriverOptions) (*Driver, error) {
	board, err := NewBoard(src)
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}
	return &Driver{
		board: board,
		sim: Simulator{
			Dice:       src,
			StallTurns: opts.StallTurns,
			MaxTurns:   opts.MaxTurns,
		},
		opts: opts,
	}, nil
}

// Run plays n games with p, resetting the board to a fresh random
// placement before each one.
func (d *Driver) Run(n int, p Policy) (*RunResult, error) {
	return d.RunContext(context.Background(), n, p)
}

// RunContext is Run with cancellation checked between games.
func (d *Driver) RunContext(ctx context.Context, n int, p Policy) (*RunResult, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative iteration count %d", ErrConfiguration, n)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: nil policy", ErrConfiguration)
	}

	result := &RunResult{Turns: make([]int, 0, n)}
	if !d.opts.DiscardLogs {
		result.Logs = make([][]TurnLog, 0, n)
	}

	// Report progress approximately 20 times during the run
	every := n / 20
	if every < 1 {
		every = 1
	}

	var sum, sumSq float64
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := d.board.Reset(); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		game, err := d.sim.Play(d.board, p)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}

		result.Turns = append(result.Turns, game.Turns)
		if !d.opts.DiscardLogs {
			result.Logs = append(result.Logs, game.Log)
		}

		t := float64(game.Turns)
		sum += t
		sumSq += t * t
		if d.opts.Progress != nil && ((i+1)%every == 0 || i+1 == n) {
			completed := float64(i + 1)
			d.opts.Progress(Progress{
				Completed: i + 1,
				Total:     n,
				Percent:   100.0 * completed / float64(n),
				Mean:      sum / completed,
				CI95:      1.96 * calcStdDev(sum, sumSq, completed) / math.Sqrt(completed),
			})
		}
	}
	return result, nil
}

// calcStdDev calculates the sample standard deviation from a sum and sum
// of squares.
func calcStdDev(sum, sumSq, n float64) float64 {
	if n <= 1 {
		return 0
	}
	mean := sum / n
	variance := (sumSq/n - mean*mean) * n / (n - 1) // Bessel's correction
	if variance < 0 {
		variance = 0 // Handle numerical errors
	}
	return math.Sqrt(variance)
}
