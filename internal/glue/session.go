package glue

import (
	"context"
	"fmt"
	"sync"

	"github.com/park285/cheese-study/internal/drill"
	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/journal"
	"github.com/park285/cheese-study/internal/msgcat"
	"github.com/park285/cheese-study/internal/trainer"
)

// Session is a controller a front-end can drive with keys and board clicks.
type Session interface {
	View() View
	HandleKey(ctx context.Context, key string) (bool, error)
	ClickPiece(ctx context.Context, color fen.Color, sq fen.Square) error
	ClickSquare(ctx context.Context, sq fen.Square) error
}

// Commenter is implemented by sessions that take free text for the displayed
// position: a trainer note or the comment of a journal variation draft.
type Commenter interface {
	Comment(ctx context.Context, text string) error
}

// Click dispatches a click on a board square to ClickPiece or ClickSquare
// depending on what the current view shows there.
func Click(ctx context.Context, s Session, sq fen.Square) error {
	if !sq.Valid() {
		return fmt.Errorf("invalid square %v", sq)
	}
	grid, err := fen.ParseBoard(s.View().FEN)
	if err != nil {
		return err
	}
	if p := grid.At(sq); p != fen.NoPiece {
		return s.ClickPiece(ctx, p.Color(), sq)
	}
	return s.ClickSquare(ctx, sq)
}

// DrillSession steps through a list of drills. The drill controller is
// replaced for each drill, so the adapter builds it.
type DrillSession struct {
	mu      sync.Mutex
	drills  []drill.Drill
	idx     int
	ctrl    *drill.Controller
	opts    []drill.Option
	msgs    *msgcat.Catalog
	publish func(View)
}

// NewDrillSession starts the first drill. publish receives every view change.
func NewDrillSession(drills []drill.Drill, msgs *msgcat.Catalog, publish func(View), opts ...drill.Option) (*DrillSession, error) {
	if len(drills) == 0 {
		return nil, drill.ErrNoFrames
	}
	s := &DrillSession{drills: drills, opts: opts, msgs: msgs, publish: publish}
	if err := s.load(0); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DrillSession) load(i int) error {
	s.mu.Lock()
	if s.ctrl != nil {
		s.ctrl.Stop()
	}
	opts := append(append([]drill.Option(nil), s.opts...), drill.WithObserver(func(st drill.State) {
		if s.publish != nil {
			s.publish(DrillView(st, s.msgs))
		}
	}))
	ctrl, err := drill.NewController(s.drills[i], opts...)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.idx = i
	s.ctrl = ctrl
	s.mu.Unlock()
	ctrl.Begin()
	return nil
}

func (s *DrillSession) controller() *drill.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl
}

// Stop cancels the pending reveal of the current drill.
func (s *DrillSession) Stop() { s.controller().Stop() }

func (s *DrillSession) View() View { return DrillView(s.controller().State(), s.msgs) }

// HandleKey: ArrowRight or Enter continues after a solved frame, n and p move
// between drills, r restarts the current one.
func (s *DrillSession) HandleKey(_ context.Context, key string) (bool, error) {
	c := s.controller()
	s.mu.Lock()
	idx, count := s.idx, len(s.drills)
	s.mu.Unlock()
	switch key {
	case "ArrowRight", "Enter":
		if c.State().Stage == drill.StageComplete {
			return true, s.load((idx + 1) % count)
		}
		return c.Advance(), nil
	case "n":
		return true, s.load((idx + 1) % count)
	case "p":
		return true, s.load((idx + count - 1) % count)
	case "r":
		c.Begin()
		return true, nil
	default:
		return false, nil
	}
}

func (s *DrillSession) ClickPiece(_ context.Context, color fen.Color, sq fen.Square) error {
	s.controller().ClickPiece(color, sq)
	return nil
}

func (s *DrillSession) ClickSquare(_ context.Context, sq fen.Square) error {
	s.controller().ClickSquare(sq)
	return nil
}

// TrainerSession adapts a trainer. r resets the line and f flips the board.
type TrainerSession struct {
	T    *trainer.Trainer
	Msgs *msgcat.Catalog
}

func (s TrainerSession) View() View { return TrainerView(s.T.State(), s.Msgs) }

func (s TrainerSession) HandleKey(_ context.Context, key string) (bool, error) {
	switch key {
	case "r":
		s.T.Reset()
		return true, nil
	case "f":
		s.T.Flip()
		return true, nil
	default:
		return s.T.HandleKey(key), nil
	}
}

func (s TrainerSession) ClickPiece(ctx context.Context, color fen.Color, sq fen.Square) error {
	return s.T.ClickPiece(ctx, color, sq)
}

func (s TrainerSession) ClickSquare(ctx context.Context, sq fen.Square) error {
	return s.T.ClickSquare(ctx, sq)
}

func (s TrainerSession) Comment(ctx context.Context, text string) error {
	return s.T.UpdateNote(ctx, text)
}

// JournalSession adapts a journal session.
type JournalSession struct {
	J    *journal.Session
	Msgs *msgcat.Catalog
}

func (s JournalSession) View() View { return JournalView(s.J.State(), s.Msgs) }

func (s JournalSession) HandleKey(ctx context.Context, key string) (bool, error) {
	return s.J.HandleKey(ctx, key)
}

func (s JournalSession) ClickPiece(ctx context.Context, color fen.Color, sq fen.Square) error {
	return s.J.ClickPiece(ctx, color, sq)
}

func (s JournalSession) ClickSquare(ctx context.Context, sq fen.Square) error {
	return s.J.ClickSquare(ctx, sq)
}

func (s JournalSession) Comment(_ context.Context, text string) error {
	s.J.SetDraftComment(text)
	return nil
}
