package trainer

import (
	"context"
	"errors"

	"github.com/park285/cheese-study/internal/fen"
)

// Mode selects how moves are judged and who answers them.
type Mode int

const (
	// ModeOpening checks moves against a stored repertoire; the opponent
	// replies with the repertoire move.
	ModeOpening Mode = iota
	// ModeEndgame accepts any legal move; the engine replies.
	ModeEndgame
)

func (m Mode) String() string {
	if m == ModeEndgame {
		return "endgame"
	}
	return "opening"
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// ParseMode accepts "opening" and "endgame".
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "opening", "":
		return ModeOpening, true
	case "endgame":
		return ModeEndgame, true
	default:
		return ModeOpening, false
	}
}

// Outcome is the backend's verdict on a player move. A rejected move has
// Correct false and no FEN.
type Outcome struct {
	Correct bool
	FEN     string
	SAN     string
	Note    string
	End     bool
}

// Reply is the other side's move.
type Reply struct {
	FEN  string
	SAN  string
	Note string
}

// Backend judges player moves and produces replies.
type Backend interface {
	Move(ctx context.Context, position string, from, to fen.Square, promote string) (Outcome, error)
	Reply(ctx context.Context, position string) (Reply, error)
	SaveNote(ctx context.Context, position, note string) error
}

// State is a copy of the trainer state for rendering.
type State struct {
	Seq      uint64      `json:"seq"`
	Mode     Mode        `json:"mode"`
	Player   fen.Color   `json:"player"`
	Flipped  bool        `json:"flipped"`
	FEN      string      `json:"fen"`
	Note     string      `json:"note,omitempty"`
	Ply      int         `json:"ply"`
	Plies    int         `json:"plies"`
	Moves    []string    `json:"moves"`
	Selected *fen.Square `json:"selected,omitempty"`
	Complete bool        `json:"complete"`
	Waiting  bool        `json:"waiting"`
	Err      string      `json:"error,omitempty"`
}

// CanMove reports whether the player may select and move a piece.
func (s State) CanMove() bool {
	active, _ := fen.ActiveColor(s.FEN)
	return active == s.Player && s.Ply == s.Plies-1 && !s.Complete && !s.Waiting
}

var (
	ErrBusy      = errors.New("a move is already in flight")
	ErrNotViewed = errors.New("note target is no longer displayed")
)
