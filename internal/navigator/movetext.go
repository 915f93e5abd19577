package navigator

import (
	"fmt"

	"github.com/park285/cheese-study/internal/fen"
)

// MoveText formats the move that produced frames[i] for a move list:
// "12. Nf3" for white, "12. .. Nf6" for a black move that opens the list, and
// the bare SAN for any other black move. The move number comes from the
// position after the move, so black's number is one less than the FEN counter.
func MoveText(frames []Frame, i int) string {
	if i <= 0 || i >= len(frames) {
		return ""
	}
	f := frames[i]
	pos, err := fen.ParsePosition(f.FEN)
	if err != nil {
		return f.SAN
	}
	mover := pos.Active.Opposite()
	number := pos.FullMove
	if mover == fen.Black {
		number--
		if i == 1 {
			return fmt.Sprintf("%d. .. %s", number, f.SAN)
		}
		return f.SAN
	}
	return fmt.Sprintf("%d. %s", number, f.SAN)
}

// MoveList formats frames[1:] with MoveText.
func MoveList(frames []Frame) []string {
	if len(frames) < 2 {
		return []string{}
	}
	out := make([]string, 0, len(frames)-1)
	for i := 1; i < len(frames); i++ {
		out = append(out, MoveText(frames, i))
	}
	return out
}
