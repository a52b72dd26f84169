package bearoff

import (
	"testing"
)

func TestCombination(t *testing.T) {
	tests := []struct {
		n, r     int
		expected int
	}{
		{6, 1, 6},
		{6, 2, 15},
		{6, 3, 20},
		{6, 6, 1},
		{10, 3, 120},
		{21, 6, 54264}, // positions for 6 points, up to 15 checkers
		{0, 1, 0},
		{41, 1, 0},
	}

	for _, tt := range tests {
		result := Combination(tt.n, tt.r)
		if result != tt.expected {
			t.Errorf("Combination(%d, %d) = %d, expected %d", tt.n, tt.r, result, tt.expected)
		}
	}
}

func TestNumPositions(t *testing.T) {
	if got := Combination(Checkers+Points, Points); got != NumPositions {
		t.Errorf("C(21, 6) = %d, NumPositions = %d", got, NumPositions)
	}
}

func TestIndexKnownPositions(t *testing.T) {
	tests := []struct {
		counts [Points]int
		id     int
	}{
		{[Points]int{0, 0, 0, 0, 0, 0}, 0},
		{[Points]int{0, 0, 0, 0, 0, 1}, 1},
		{[Points]int{1, 0, 0, 0, 0, 0}, 6},
		{[Points]int{1, 1, 1, 1, 1, 1}, 637},
		{[Points]int{0, 0, 0, 0, 0, 15}, 38760},
		{[Points]int{3, 2, 1, 4, 0, 5}, 41551},
		{[Points]int{15, 0, 0, 0, 0, 0}, NumPositions - 1},
	}

	for _, tt := range tests {
		if got := Index(tt.counts); got != tt.id {
			t.Errorf("Index(%v) = %d, want %d", tt.counts, got, tt.id)
		}
		if got := FromIndex(tt.id); got != tt.counts {
			t.Errorf("FromIndex(%d) = %v, want %v", tt.id, got, tt.counts)
		}
	}
}

func TestRoundTripAllPositions(t *testing.T) {
	for id := 0; id < NumPositions; id++ {
		counts := FromIndex(id)
		if !Valid(counts) {
			t.Fatalf("FromIndex(%d) = %v is not a valid position", id, counts)
		}
		if got := Index(counts); got != id {
			t.Fatalf("round trip failed: id=%d, counts=%v, got=%d", id, counts, got)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		counts [Points]int
		want   bool
	}{
		{[Points]int{}, true},
		{[Points]int{5, 5, 5, 0, 0, 0}, true},
		{[Points]int{5, 5, 5, 0, 0, 1}, false},
		{[Points]int{0, -1, 0, 0, 0, 0}, false},
	}
	for _, tt := range tests {
		if got := Valid(tt.counts); got != tt.want {
			t.Errorf("Valid(%v) = %v, want %v", tt.counts, got, tt.want)
		}
	}
}
