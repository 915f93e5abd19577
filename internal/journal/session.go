// Package journal is the game journal viewer: browse a stored game, step into
// annotated side lines and record new annotated variations.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/park285/cheese-study/internal/eco"
	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/navigator"
	"github.com/park285/cheese-study/internal/obslog"
	"github.com/park285/cheese-study/pkg/studydto"
)

// Backend is what the journal needs from the study server.
type Backend interface {
	navigator.Backend
	GamesMetadata(ctx context.Context) ([]studydto.GameMeta, error)
	// PlayMove asks the server to apply a move and returns the resulting frame.
	PlayMove(ctx context.Context, position string, from, to fen.Square, promote string) (navigator.Frame, error)
}

// State is a copy of the session for rendering.
type State struct {
	Seq      uint64              `json:"seq"`
	GameID   string              `json:"game_id"`
	Game     *studydto.GameMeta  `json:"game,omitempty"`
	Games    []studydto.GameMeta `json:"games"`
	Opening  eco.Opening         `json:"opening"`
	Flipped  bool                `json:"flipped"`
	Selected *fen.Square         `json:"selected,omitempty"`
	Draft    string              `json:"draft_comment,omitempty"`
	Nav      navigator.Snapshot  `json:"nav"`
	Err      string              `json:"error,omitempty"`
}

var ErrNotLoaded = errors.New("journal: no game loaded")

// Session serializes every operation, including the backend calls made by
// navigation, behind one lock.
type Session struct {
	mu sync.Mutex

	backend Backend
	nav     *navigator.Navigator
	gameID  string
	games   []studydto.GameMeta
	opening eco.Opening

	flipped  bool
	selected *fen.Square
	draft    string
	errMsg   string
	seq      uint64

	observer func(State)
	logger   *zap.Logger
}

type Option func(*Session)

func WithObserver(fn func(State)) Option { return func(s *Session) { s.observer = fn } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithFlipped(v bool) Option { return func(s *Session) { s.flipped = v } }

func New(backend Backend, opts ...Option) *Session {
	s := &Session{backend: backend, logger: obslog.L()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the game and the games list concurrently. A failed games list
// is logged and leaves the previous list; a failed game leaves the session as
// it was.
func (s *Session) Load(ctx context.Context, gameID string) error {
	var (
		root    *navigator.Variation
		games   []studydto.GameMeta
		metaErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.backend.FetchVariation(gctx, navigator.GameRef(gameID))
		if err != nil {
			return fmt.Errorf("load game %q: %w", gameID, err)
		}
		root = v
		return nil
	})
	g.Go(func() error {
		games, metaErr = s.backend.GamesMetadata(gctx)
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	if metaErr != nil {
		s.logger.Warn("journal_games_metadata_failed", zap.Error(metaErr))
	} else if games != nil {
		s.games = games
	}
	if err != nil {
		return s.failLocked(err)
	}
	if s.nav == nil {
		nav, nerr := navigator.New(s.backend, root, navigator.WithLogger(s.logger))
		if nerr != nil {
			return s.failLocked(nerr)
		}
		s.nav = nav
	} else if rerr := s.nav.ReplaceRoot(root); rerr != nil {
		return s.failLocked(rerr)
	}
	s.gameID = gameID
	s.selected = nil
	s.draft = ""
	s.errMsg = ""
	s.relabelLocked()
	st := s.changedLocked()
	s.mu.Unlock()
	s.logger.Info("journal_loaded", zap.String("game", gameID), zap.Int("plies", len(root.Frames)-1), zap.Int("games", len(st.Games)))
	s.notify(st)
	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// HandleKey maps the viewer keys: ArrowLeft/ArrowRight browse, Enter steps into
// the first side line, n starts a variation, Escape drops it, s saves it, c
// collapses to the parent line and f flips the board. It reports whether the
// key was consumed.
func (s *Session) HandleKey(ctx context.Context, key string) (bool, error) {
	switch key {
	case "ArrowLeft":
		return s.apply(func(n *navigator.Navigator) (bool, error) { return n.Retreat(), nil })
	case "ArrowRight":
		return s.apply(func(n *navigator.Navigator) (bool, error) { return n.Advance(), nil })
	case "c":
		return s.apply(func(n *navigator.Navigator) (bool, error) { return n.Collapse(), nil })
	case "Enter":
		return true, s.StepInto(ctx, 0)
	case "n":
		return s.apply(func(n *navigator.Navigator) (bool, error) { return true, n.BeginEditingVariation() })
	case "Escape":
		return s.apply(func(n *navigator.Navigator) (bool, error) {
			if !n.Editing() {
				return false, nil
			}
			return true, n.AbandonEdit()
		})
	case "s":
		return true, s.FinalizeEdit(ctx, "")
	case "f":
		s.Flip()
		return true, nil
	default:
		return false, nil
	}
}

// Seek jumps to a ply of the displayed line.
func (s *Session) Seek(ply int) error {
	_, err := s.apply(func(n *navigator.Navigator) (bool, error) { return true, n.Seek(ply) })
	return err
}

// StepInto enters the i-th side line stored at the displayed position.
func (s *Session) StepInto(ctx context.Context, i int) error {
	_, err := s.apply(func(n *navigator.Navigator) (bool, error) {
		alts := n.Current().Alternatives
		if i < 0 || i >= len(alts) {
			return false, nil
		}
		return true, n.StepIntoVariation(ctx, navigator.LineRef(alts[i].LineID))
	})
	return err
}

// SetDraftComment keeps the comment that FinalizeEdit sends when called with "".
func (s *Session) SetDraftComment(text string) {
	s.mu.Lock()
	s.draft = text
	st := s.changedLocked()
	s.mu.Unlock()
	s.notify(st)
}

// FinalizeEdit saves the edited variation. An empty comment uses the draft.
func (s *Session) FinalizeEdit(ctx context.Context, comment string) error {
	_, err := s.apply(func(n *navigator.Navigator) (bool, error) {
		if comment == "" {
			comment = s.draft
		}
		err := n.FinalizeEdit(ctx, comment)
		if err == nil || errors.Is(err, navigator.ErrStaleParent) {
			s.draft = ""
		}
		return true, err
	})
	return err
}

func (s *Session) Flip() {
	s.mu.Lock()
	s.flipped = !s.flipped
	st := s.changedLocked()
	s.mu.Unlock()
	s.notify(st)
}

// ClickPiece selects a piece of the side to move while editing. Clicking the
// other side with a selection plays the capture.
func (s *Session) ClickPiece(ctx context.Context, color fen.Color, sq fen.Square) error {
	s.mu.Lock()
	if s.nav == nil || !s.nav.Editing() {
		s.mu.Unlock()
		return nil
	}
	active := s.nav.Current().ActiveColor()
	if color != active {
		if s.selected == nil {
			s.mu.Unlock()
			return nil
		}
		from := *s.selected
		s.mu.Unlock()
		return s.playMove(ctx, from, sq)
	}
	if s.selected != nil && *s.selected == sq {
		s.selected = nil
	} else {
		v := sq
		s.selected = &v
	}
	st := s.changedLocked()
	s.mu.Unlock()
	s.notify(st)
	return nil
}

// ClickSquare plays the selected piece to an empty square while editing.
func (s *Session) ClickSquare(ctx context.Context, sq fen.Square) error {
	s.mu.Lock()
	if s.nav == nil || !s.nav.Editing() || s.selected == nil {
		s.mu.Unlock()
		return nil
	}
	from := *s.selected
	s.mu.Unlock()
	return s.playMove(ctx, from, sq)
}

func (s *Session) playMove(ctx context.Context, from, to fen.Square) error {
	_, err := s.apply(func(n *navigator.Navigator) (bool, error) {
		if !n.Editing() {
			return false, nil
		}
		position := n.Current().FEN
		frame, err := s.backend.PlayMove(ctx, position, from, to, promotionFor(position, from))
		if err == nil {
			err = n.RecordMove(frame.SAN, frame)
		}
		if err != nil {
			s.selected = nil
		}
		return true, err
	})
	return err
}

// apply runs fn under the lock and publishes the result. Errors are kept in
// State.Err until the next successful operation.
func (s *Session) apply(fn func(n *navigator.Navigator) (bool, error)) (bool, error) {
	s.mu.Lock()
	if s.nav == nil {
		s.mu.Unlock()
		return false, ErrNotLoaded
	}
	changed, err := fn(s.nav)
	if err != nil {
		s.logger.Debug("journal_op_failed", zap.Error(err))
		return changed, s.failLocked(err)
	}
	if !changed {
		s.mu.Unlock()
		return false, nil
	}
	s.errMsg = ""
	s.selected = nil
	s.relabelLocked()
	st := s.changedLocked()
	s.mu.Unlock()
	s.notify(st)
	return true, nil
}

// failLocked records err, publishes and unlocks.
func (s *Session) failLocked(err error) error {
	s.errMsg = err.Error()
	if s.nav != nil {
		s.relabelLocked()
	}
	st := s.changedLocked()
	s.mu.Unlock()
	s.notify(st)
	return err
}

// relabelLocked names the opening of the main line up to the cursor. Inside
// side lines the last main-line label stays.
func (s *Session) relabelLocked() {
	snap := s.nav.Snapshot()
	if snap.Cursor.Depth != 0 {
		return
	}
	frames := snap.Variation.Frames
	sans := lo.Map(frames[1:snap.Cursor.Ply+1], func(f navigator.Frame, _ int) string { return f.SAN })
	s.opening = eco.Label(frames[0].FEN, sans)
}

func (s *Session) changedLocked() State {
	s.seq++
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{
		Seq:     s.seq,
		GameID:  s.gameID,
		Games:   append([]studydto.GameMeta(nil), s.games...),
		Opening: s.opening,
		Flipped: s.flipped,
		Draft:   s.draft,
		Err:     s.errMsg,
	}
	if meta, ok := lo.Find(s.games, func(m studydto.GameMeta) bool { return m.ID == s.gameID }); ok {
		st.Game = &meta
	}
	if s.selected != nil {
		v := *s.selected
		st.Selected = &v
	}
	if s.nav != nil {
		st.Nav = s.nav.Snapshot()
	}
	return st
}

func (s *Session) notify(st State) {
	if s.observer != nil {
		s.observer(st)
	}
}

func promotionFor(position string, from fen.Square) string {
	g, err := fen.ParseBoard(position)
	if err != nil {
		return ""
	}
	switch p := g.At(from); {
	case p == fen.Piece('P') && from.Rank == 1, p == fen.Piece('p') && from.Rank == 6:
		return "Q"
	default:
		return ""
	}
}
