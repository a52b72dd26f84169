// Package bearoff numbers one-sided bear-off positions.
//
// A position is a count of checkers on each of six points, at most 15 in
// total. Points are given in race order: index 0 is furthest from the exit
// and index 5 is the last point before it (gnubg's 1-point). Every position
// maps to a dense ID in [0, NumPositions), compatible with gnubg's one-sided
// bear-off numbering.
package bearoff

import "sync"

const (
	// Points is the number of points covered by the index.
	Points = 6
	// Checkers is the maximum number of checkers in an indexed position.
	Checkers = 15
)

// NumPositions is C(21, 6), the number of indexable positions.
const NumPositions = 54264

// anCombination[n-1][r-1] = C(n, r)
var (
	anCombination   [40][25]int
	combinationOnce sync.Once
)

func initCombination() {
	for i := 0; i < 40; i++ {
		anCombination[i][0] = i + 1
	}
	for i := 1; i < 40; i++ {
		for j := 1; j < 25; j++ {
			anCombination[i][j] = anCombination[i-1][j-1] + anCombination[i-1][j]
		}
	}
}

// Combination returns C(n, r) for 1 <= n <= 40 and 1 <= r <= 25, and 0
// outside that table.
func Combination(n, r int) int {
	if n <= 0 || r <= 0 || n > 40 || r > 25 {
		return 0
	}
	combinationOnce.Do(initCombination)
	return anCombination[n-1][r-1]
}

func positionF(bits uint32, n, r int) int {
	if n == r {
		return 0
	}
	if bits&(1<<(n-1)) != 0 {
		return Combination(n-1, r) + positionF(bits, n-1, r-1)
	}
	return positionF(bits, n-1, r)
}

func positionInv(id, n, r int) uint32 {
	if r == 0 {
		return 0
	}
	if n == r {
		return (1 << n) - 1
	}
	c := Combination(n-1, r)
	if id >= c {
		return (1 << (n - 1)) | positionInv(id-c, n-1, r-1)
	}
	return positionInv(id, n-1, r)
}

// Valid reports whether counts is an indexable position.
func Valid(counts [Points]int) bool {
	total := 0
	for _, c := range counts {
		if c < 0 {
			return false
		}
		total += c
	}
	return total <= Checkers
}

// Index returns the ID of a position. counts must satisfy Valid.
func Index(counts [Points]int) int {
	// Lay the position out as a bit string, nearest-exit point first:
	// each checker is a 0 and each point boundary a 1.
	j := Points - 1
	for _, c := range counts {
		j += c
	}
	bits := uint32(1) << j
	for i := Points - 1; i > 0; i-- {
		j -= counts[i] + 1
		bits |= uint32(1) << j
	}
	return positionF(bits, Checkers+Points, Points)
}

// FromIndex returns the position with the given ID. id must be in
// [0, NumPositions).
func FromIndex(id int) [Points]int {
	bits := positionInv(id, Checkers+Points, Points)

	var nearFirst [Points]int
	j := Points - 1
	for i := 0; i < Checkers+Points; i++ {
		if bits&(1<<i) != 0 {
			if j == 0 {
				break
			}
			j--
		} else {
			nearFirst[j]++
		}
	}

	var counts [Points]int
	for i, c := range nearFirst {
		counts[Points-1-i] = c
	}
	return counts
}
