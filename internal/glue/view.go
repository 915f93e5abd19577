package glue

import (
	"github.com/park285/cheese-study/internal/boardview"
	"github.com/park285/cheese-study/internal/drill"
	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/journal"
	"github.com/park285/cheese-study/internal/msgcat"
	"github.com/park285/cheese-study/internal/trainer"
)

// View is what every front-end draws: the board, a title, a status line, the
// move list and the comment of the displayed position. Current indexes Moves
// and is -1 at the first position. Detail carries the controller state for
// browsers.
type View struct {
	Source   string      `json:"source"`
	Seq      uint64      `json:"seq"`
	Mode     string      `json:"mode"`
	FEN      string      `json:"fen"`
	Flipped  bool        `json:"flipped"`
	Selected *fen.Square `json:"selected,omitempty"`
	Title    string      `json:"title"`
	Status   string      `json:"status"`
	Help     string      `json:"help"`
	Moves    []string    `json:"moves"`
	Current  int         `json:"current"`
	Comment  string      `json:"comment,omitempty"`
	Err      string      `json:"error,omitempty"`
	Detail   any         `json:"detail,omitempty"`
}

// Orientation of the board for this view.
func (v View) Orientation() boardview.Orientation {
	if v.Flipped {
		return boardview.BlackBottom
	}
	return boardview.WhiteBottom
}

// Drawable lays out the board. A bad FEN yields an empty board.
func (v View) Drawable() boardview.Drawable {
	ps, err := fen.Placements(v.FEN)
	if err != nil {
		ps = nil
	}
	return boardview.Render(ps, v.Orientation(), v.Selected)
}

// Latest returns a reducer that replaces the stored view unless it is an
// older notification from the same source.
func Latest(next View) func(View) View {
	return func(cur View) View {
		if cur.Source == next.Source && next.Seq < cur.Seq {
			return cur
		}
		return next
	}
}

var trainerTitles = map[trainer.Mode]string{
	trainer.ModeOpening: "Opening trainer",
	trainer.ModeEndgame: "Endgame trainer",
}

func colorName(c fen.Color) string {
	switch c {
	case fen.White:
		return "White"
	case fen.Black:
		return "Black"
	default:
		return ""
	}
}

// DrillView renders a drill state.
func DrillView(st drill.State, msgs *msgcat.Catalog) View {
	v := View{
		Source:   "drill:" + st.SessionID,
		Seq:      st.Seq,
		Mode:     "drill",
		FEN:      st.FEN,
		Flipped:  st.Flipped,
		Selected: st.Selected,
		Title: msgs.Text("drill.title", map[string]any{
			"Title": st.DrillName, "Index": st.FrameIndex + 1, "Count": st.FrameCount,
		}),
		Help:    msgs.Text("help.drill", nil),
		Moves:   []string{},
		Current: -1,
		Comment: st.Comment,
		Detail:  st,
	}
	switch st.Stage {
	case drill.StagePre:
		v.Status = msgs.Text("drill.pre", nil)
	case drill.StageMain:
		if st.LastAttempt != nil && !st.Correct {
			v.Status = msgs.Text("drill.wrong", map[string]any{"Move": st.LastAttempt.String()})
		} else {
			v.Status = msgs.Text("drill.main", map[string]any{"Color": colorName(st.ActiveColor)})
		}
	case drill.StagePost:
		v.Status = msgs.Text("drill.post", map[string]any{"Comment": st.Comment})
	case drill.StageComplete:
		v.Status = msgs.Text("drill.complete", nil)
	}
	return v
}

// TrainerView renders a trainer state.
func TrainerView(st trainer.State, msgs *msgcat.Catalog) View {
	v := View{
		Source:   "trainer",
		Seq:      st.Seq,
		Mode:     st.Mode.String(),
		FEN:      st.FEN,
		Flipped:  st.Flipped,
		Selected: st.Selected,
		Title:    trainerTitles[st.Mode],
		Help:     msgs.Text("help.trainer", nil),
		Moves:    st.Moves,
		Current:  st.Ply - 1,
		Comment:  st.Note,
		Detail:   st,
	}
	if st.Err != "" {
		v.Err = msgs.Text("error.generic", map[string]any{"Err": st.Err})
	}
	switch {
	case st.Complete && st.Ply == st.Plies-1:
		v.Status = msgs.Text("trainer.complete", nil)
	case st.Waiting:
		v.Status = msgs.Text("trainer.waiting", nil)
	case st.CanMove():
		v.Status = msgs.Text("trainer.your_move", map[string]any{"Color": colorName(st.Player)})
	default:
		v.Status = msgs.Text("trainer.browsing", map[string]any{"Ply": st.Ply, "Plies": st.Plies - 1})
	}
	return v
}

// JournalView renders a journal state.
func JournalView(st journal.State, msgs *msgcat.Catalog) View {
	nav := st.Nav
	v := View{
		Source:   "journal",
		Seq:      st.Seq,
		Mode:     "journal",
		FEN:      nav.Frame.FEN,
		Flipped:  st.Flipped,
		Selected: st.Selected,
		Help:     msgs.Text("help.journal", nil),
		Moves:    nav.Moves,
		Current:  nav.Cursor.Ply - 1,
		Comment:  nav.Frame.Note,
		Detail:   st,
	}
	if v.Moves == nil {
		v.Moves = []string{}
	}
	if v.Comment == "" && nav.Cursor.Ply == 0 {
		v.Comment = nav.Variation.Comment
	}
	if st.Game != nil {
		v.Title = msgs.Text("journal.header", st.Game)
	} else {
		v.Title = st.GameID
	}
	switch {
	case nav.Editing:
		v.Status = msgs.Text("journal.editing", map[string]any{"FEN": nav.Variation.Frames[0].FEN})
	case nav.Cursor.Depth > 0:
		v.Status = msgs.Text("journal.side_line", map[string]any{"Depth": nav.Cursor.Depth})
	case !st.Opening.IsZero():
		v.Status = msgs.Text("journal.opening", st.Opening)
	}
	if st.Err != "" {
		v.Err = msgs.Text("error.generic", map[string]any{"Err": st.Err})
	}
	return v
}
