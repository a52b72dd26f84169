package endgame

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/yourusername/bearoffsim/internal/bearoff"
	"github.com/yourusername/bearoffsim/pkg/dice"
)

// DistributionLength bounds the turn counts tracked by a Distribution.
// Every turn moves at least two pips and a full board holds at most 90, so
// no game lasts 64 turns.
const DistributionLength = 64

var errLenientExact = fmt.Errorf("%w: lenient policies leave the bear-off table", ErrConfiguration)

// Distribution holds P(turns = k) at index k.
type Distribution [DistributionLength]float64

// Moments returns the mean and standard deviation of the number of turns.
func (d Distribution) Moments() (mean, std float64) {
	x := make([]float64, DistributionLength)
	for i := range x {
		x[i] = float64(i)
	}
	return stat.PopMeanStdDev(x, d[:])
}

// Mass returns the total probability, 1 up to rounding.
func (d Distribution) Mass() float64 {
	return floats.Sum(d[:])
}

// Exact computes turn distributions for a deterministic policy by
// averaging over all 36 rolls each turn. Results are memoised by bear-off
// position, so one Exact can answer many queries cheaply. An Exact is not
// safe for concurrent use.
type Exact struct {
	policy Policy
	memo   map[int]*Distribution
}

// NewExact returns an Exact for p. p must be deterministic: a policy that
// makes random choices gets evaluated on one sample of its choices. Lenient
// policies reach states outside the bear-off table and are refused by
// Distribution and RandomStart.
func NewExact(p Policy) *Exact {
	return &Exact{policy: p, memo: make(map[int]*Distribution)}
}

// Distribution returns the distribution of the number of turns needed to
// bear off every checker in s.
func (e *Exact) Distribution(s State) (Distribution, error) {
	if IsLenient(e.policy) {
		return Distribution{}, errLenientExact
	}
	if !bearoff.Valid(s) {
		return Distribution{}, fmt.Errorf("%w: position %v needs 0-%d non-negative checkers", ErrConfiguration, s, Checkers)
	}
	d, err := e.distribution(s)
	if err != nil {
		return Distribution{}, err
	}
	return *d, nil
}

func (e *Exact) distribution(s State) (*Distribution, error) {
	id := bearoff.Index(s)
	if d, ok := e.memo[id]; ok {
		return d, nil
	}

	d := &Distribution{}
	if s.Total() == 0 {
		d[0] = 1
		e.memo[id] = d
		return d, nil
	}

	for a := 1; a <= 6; a++ {
		for b := 1; b <= 6; b++ {
			roll := dice.Roll{a, b}
			next := s
			for _, m := range e.policy.Decide(s, roll) {
				var err error
				if next, err = SimulateMove(next, m.Start, m.Die); err != nil {
					return nil, fmt.Errorf("position %v, roll %v: %w", s, roll, err)
				}
			}
			if next == s {
				return nil, fmt.Errorf("%w: no moves for roll %v on %v", ErrStall, roll, s)
			}
			sub, err := e.distribution(next)
			if err != nil {
				return nil, err
			}
			for k := 0; k < DistributionLength-1; k++ {
				d[k+1] += sub[k] / 36
			}
		}
	}
	e.memo[id] = d
	return d, nil
}

// RandomStart returns the turn distribution for a board of Checkers
// checkers placed uniformly at random, the starting condition of a
// Monte Carlo run.
func (e *Exact) RandomStart() (Distribution, error) {
	if IsLenient(e.policy) {
		return Distribution{}, errLenientExact
	}
	var mix Distribution
	placements := math.Pow(Points, Checkers)
	for id := 0; id < bearoff.NumPositions; id++ {
		s := State(bearoff.FromIndex(id))
		if s.Total() != Checkers {
			continue
		}
		d, err := e.distribution(s)
		if err != nil {
			return Distribution{}, err
		}
		w := float64(multinomial(s)) / placements
		floats.AddScaled(mix[:], w, d[:])
	}
	return mix, nil
}

// multinomial returns the number of placement sequences producing s.
func multinomial(s State) int {
	ways := 1
	left := s.Total()
	for _, c := range s {
		ways *= combin.Binomial(left, c)
		left -= c
	}
	return ways
}
