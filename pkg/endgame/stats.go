package endgame

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a sample of turn counts.
type Summary struct {
	N            int         `json:"n"`
	Mean         float64     `json:"mean"`
	StdDev       float64     `json:"std"`        // Population standard deviation
	SampleStdDev float64     `json:"sample_std"` // With Bessel's correction
	StdErr       float64     `json:"std_err"`    // Standard error of Mean
	CI95         float64     `json:"ci_95"`      // 95% confidence half-width
	Min          int         `json:"min"`
	Max          int         `json:"max"`
	Median       float64     `json:"median"`
	P90          float64     `json:"p90"`
	Histogram    map[int]int `json:"histogram"` // Turns -> games
}

// Summarize computes a Summary of turns. An empty sample gives a zero
// Summary.
func Summarize(turns []int) Summary {
	n := len(turns)
	if n == 0 {
		return Summary{}
	}

	x := make([]float64, n)
	hist := make(map[int]int)
	for i, t := range turns {
		x[i] = float64(t)
		hist[t]++
	}

	s := Summary{
		N:         n,
		Min:       int(floats.Min(x)),
		Max:       int(floats.Max(x)),
		Histogram: hist,
	}
	s.Mean, s.StdDev = stat.PopMeanStdDev(x, nil)
	if n > 1 {
		s.SampleStdDev = stat.StdDev(x, nil)
		s.StdErr = stat.StdErr(s.SampleStdDev, float64(n))
		s.CI95 = 1.96 * s.StdErr
	}

	sort.Float64s(x)
	s.Median = stat.Quantile(0.5, stat.Empirical, x, nil)
	s.P90 = stat.Quantile(0.9, stat.Empirical, x, nil)
	return s
}
