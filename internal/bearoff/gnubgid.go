package bearoff

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// PositionIDLength is the length of a GNU Backgammon position ID string.
const PositionIDLength = 14

// ErrInvalidPositionID is returned when a position ID cannot be decoded
// into a bear-off position.
var ErrInvalidPositionID = errors.New("invalid position ID")

// The key is 80 bits: for each side (side to move first) and each of its
// 25 slots (ace point first, bar last), one 1-bit per checker followed by
// a 0-bit. Bits fill each byte from the least significant end.
type positionKey [10]byte

// PositionID returns the GNU Backgammon position ID for counts. The side
// to move holds counts on its home board; the opponent has borne off.
func PositionID(counts [Points]int) string {
	var key positionKey
	bit := 0
	for k := 0; k < Points; k++ {
		for c := 0; c < counts[Points-1-k]; c++ {
			key[bit/8] |= 1 << (bit % 8)
			bit++
		}
		bit++
	}
	return base64.RawStdEncoding.EncodeToString(key[:])
}

// FromPositionID decodes a GNU Backgammon position ID into the counts of
// the side to move. The opponent's checkers are ignored. It fails if the
// side to move has checkers outside its home board.
func FromPositionID(id string) ([Points]int, error) {
	var counts [Points]int
	if len(id) != PositionIDLength {
		return counts, fmt.Errorf("%w: %q is not %d characters", ErrInvalidPositionID, id, PositionIDLength)
	}
	raw, err := base64.RawStdEncoding.DecodeString(id)
	if err != nil || len(raw) != len(positionKey{}) {
		return counts, fmt.Errorf("%w: %q", ErrInvalidPositionID, id)
	}

	var board [2][25]int
	side, slot := 0, 0
	for bit := 0; bit < 8*len(raw) && side < 2; bit++ {
		if raw[bit/8]&(1<<(bit%8)) == 0 {
			if slot++; slot == 25 {
				side++
				slot = 0
			}
			continue
		}
		board[side][slot]++
	}

	total := 0
	for slot, n := range board[0] {
		if n == 0 {
			continue
		}
		if slot >= Points {
			return [Points]int{}, fmt.Errorf("%w: %q has checkers outside the home board", ErrInvalidPositionID, id)
		}
		counts[Points-1-slot] = n
		total += n
	}
	if total > Checkers {
		return [Points]int{}, fmt.Errorf("%w: %q has %d checkers", ErrInvalidPositionID, id, total)
	}
	return counts, nil
}
