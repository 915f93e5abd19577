package trainer

import (
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-study/internal/fen"
)

// moveSAN names the move from before to after. With valid squares it decodes
// the move directly; otherwise it searches the legal moves for one that
// produces after. It returns "" when no move fits.
func moveSAN(before, after string, from, to fen.Square, promote string) string {
	opt, err := nchess.FEN(before)
	if err != nil {
		return ""
	}
	pos := nchess.NewGame(opt).Position()
	if pos == nil {
		return ""
	}
	notation := nchess.AlgebraicNotation{}
	if from.Valid() && to.Valid() {
		uci := strings.ToLower(from.Name() + to.Name() + promote)
		if mv, err := (nchess.UCINotation{}).Decode(pos, uci); err == nil {
			return notation.Encode(pos, mv)
		}
	}
	target := boardField(after)
	if target == "" {
		return ""
	}
	for _, mv := range pos.ValidMoves() {
		m := mv
		if next := pos.Update(&m); next != nil && next.Board().String() == target {
			return notation.Encode(pos, &m)
		}
	}
	return ""
}

func boardField(position string) string {
	fields := strings.Fields(position)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
