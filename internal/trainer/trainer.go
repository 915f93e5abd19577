// Package trainer plays through a line against the backend: the player moves,
// the backend judges the move and the opponent (repertoire or engine) replies.
package trainer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-study/internal/drill"
	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/navigator"
	"github.com/park285/cheese-study/internal/obslog"
)

const DefaultOpponentDelay = 500 * time.Millisecond

// Trainer is safe for concurrent use. Backend calls run without the lock; a
// response that arrives after Reset or Stop is dropped.
type Trainer struct {
	mu sync.Mutex

	backend Backend
	mode    Mode
	player  fen.Color
	start   string
	flipped bool

	nav      *navigator.Navigator
	selected *fen.Square
	complete bool
	inflight bool
	replying bool
	errMsg   string

	epoch   uint64
	pending drill.Timer
	seq     uint64

	ctx      context.Context
	clock    drill.Clock
	delay    time.Duration
	observer func(State)
	logger   *zap.Logger
}

type Option func(*Trainer)

func WithMode(m Mode) Option { return func(t *Trainer) { t.mode = m } }

// WithPlayer sets the side the player trains. Black means the opponent opens.
func WithPlayer(c fen.Color) Option {
	return func(t *Trainer) {
		if c != fen.NoColor {
			t.player = c
		}
	}
}

// WithStartFEN sets the initial position.
func WithStartFEN(s string) Option {
	return func(t *Trainer) {
		if s != "" {
			t.start = s
		}
	}
}

// WithOpponentDelay sets the pause before the reply is requested.
func WithOpponentDelay(d time.Duration) Option {
	return func(t *Trainer) {
		if d >= 0 {
			t.delay = d
		}
	}
}

func WithClock(c drill.Clock) Option {
	return func(t *Trainer) {
		if c != nil {
			t.clock = c
		}
	}
}

func WithObserver(fn func(State)) Option { return func(t *Trainer) { t.observer = fn } }

func WithLogger(l *zap.Logger) Option {
	return func(t *Trainer) {
		if l != nil {
			t.logger = l
		}
	}
}

func New(backend Backend, opts ...Option) (*Trainer, error) {
	t := &Trainer{
		backend: backend,
		player:  fen.White,
		start:   fen.StartFEN,
		delay:   DefaultOpponentDelay,
		ctx:     context.Background(),
		clock:   drill.RealClock,
		logger:  obslog.L(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if _, err := fen.ParsePosition(t.start); err != nil {
		return nil, fmt.Errorf("start position: %w", err)
	}
	t.flipped = t.player == fen.Black
	if err := t.resetLocked(); err != nil {
		return nil, err
	}
	return t, nil
}

// Start binds the session context used by delayed replies and, when the
// opponent is to move, schedules its first move.
func (t *Trainer) Start(ctx context.Context) {
	t.mu.Lock()
	if ctx != nil {
		t.ctx = ctx
	}
	t.maybeScheduleReplyLocked()
	st := t.changedLocked()
	t.mu.Unlock()
	t.logger.Info("trainer_start", zap.Stringer("mode", t.mode), zap.Stringer("player", t.player))
	t.notify(st)
}

// Stop drops any pending reply and ignores responses still in flight.
func (t *Trainer) Stop() {
	t.mu.Lock()
	t.epoch++
	t.stopPendingLocked()
	t.replying = false
	t.inflight = false
	t.mu.Unlock()
}

// Reset returns to the start position.
func (t *Trainer) Reset() {
	t.mu.Lock()
	if err := t.resetLocked(); err != nil {
		t.errMsg = err.Error()
	}
	t.maybeScheduleReplyLocked()
	st := t.changedLocked()
	t.mu.Unlock()
	t.logger.Debug("trainer_reset", zap.Uint64("seq", st.Seq))
	t.notify(st)
}

// SetPlayer switches sides and resets.
func (t *Trainer) SetPlayer(c fen.Color) {
	if c == fen.NoColor {
		return
	}
	t.mu.Lock()
	t.player = c
	t.flipped = c == fen.Black
	t.mu.Unlock()
	t.Reset()
}

// Flip turns the board around without changing sides.
func (t *Trainer) Flip() {
	t.mu.Lock()
	t.flipped = !t.flipped
	st := t.changedLocked()
	t.mu.Unlock()
	t.notify(st)
}

func (t *Trainer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

// Back shows the previous position.
func (t *Trainer) Back() bool {
	t.mu.Lock()
	if !t.nav.Retreat() {
		t.mu.Unlock()
		return false
	}
	t.selected = nil
	t.maybeScheduleReplyLocked()
	st := t.changedLocked()
	t.mu.Unlock()
	t.notify(st)
	return true
}

// Forward shows the next position. At the tip of a completed line it resets.
func (t *Trainer) Forward() bool {
	t.mu.Lock()
	if t.nav.Advance() {
		t.maybeScheduleReplyLocked()
		st := t.changedLocked()
		t.mu.Unlock()
		t.notify(st)
		return true
	}
	done := t.complete
	t.mu.Unlock()
	if done {
		t.Reset()
		return true
	}
	return false
}

// HandleKey maps ArrowLeft and ArrowRight.
func (t *Trainer) HandleKey(key string) bool {
	switch key {
	case "ArrowLeft":
		return t.Back()
	case "ArrowRight":
		return t.Forward()
	default:
		return false
	}
}

// ClickPiece toggles the selection on the player's own pieces. Clicking an
// opponent piece with a selection tries the capture.
func (t *Trainer) ClickPiece(ctx context.Context, color fen.Color, sq fen.Square) error {
	t.mu.Lock()
	if !t.canMoveLocked() {
		t.mu.Unlock()
		return nil
	}
	if color != t.player {
		if t.selected == nil {
			t.mu.Unlock()
			return nil
		}
		from := *t.selected
		t.mu.Unlock()
		return t.TryMove(ctx, from, sq)
	}
	if t.selected != nil && *t.selected == sq {
		t.selected = nil
	} else {
		s := sq
		t.selected = &s
	}
	st := t.changedLocked()
	t.mu.Unlock()
	t.notify(st)
	return nil
}

// ClickSquare moves the selected piece to an empty square.
func (t *Trainer) ClickSquare(ctx context.Context, sq fen.Square) error {
	t.mu.Lock()
	if !t.canMoveLocked() || t.selected == nil {
		t.mu.Unlock()
		return nil
	}
	from := *t.selected
	t.mu.Unlock()
	return t.TryMove(ctx, from, sq)
}

// TryMove sends the move to the backend. A correct move is recorded and, unless
// the line ends there, the reply is scheduled. A wrong move clears the
// selection. Network errors are published in State.Err and change nothing else.
func (t *Trainer) TryMove(ctx context.Context, from, to fen.Square) error {
	t.mu.Lock()
	if !t.canMoveLocked() {
		t.mu.Unlock()
		return navigator.ErrNotPlayerTurn
	}
	if t.inflight {
		t.mu.Unlock()
		return ErrBusy
	}
	position := t.nav.Current().FEN
	promote := ""
	if isPromotion(position, from) {
		promote = "Q"
	}
	epoch := t.epoch
	t.inflight = true
	t.mu.Unlock()

	out, err := t.backend.Move(ctx, position, from, to, promote)

	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		t.logger.Debug("trainer_stale_move", zap.Uint64("epoch", epoch))
		return nil
	}
	t.inflight = false
	if err != nil {
		t.errMsg = err.Error()
		st := t.changedLocked()
		t.mu.Unlock()
		t.logger.Warn("trainer_move_failed", zap.String("from", from.Name()), zap.String("to", to.Name()), zap.Error(err))
		t.notify(st)
		return err
	}
	t.errMsg = ""
	t.selected = nil
	if !out.Correct || out.FEN == "" {
		st := t.changedLocked()
		t.mu.Unlock()
		t.logger.Debug("trainer_move_rejected", zap.String("from", from.Name()), zap.String("to", to.Name()))
		t.notify(st)
		return nil
	}
	san := out.SAN
	if san == "" {
		san = moveSAN(position, out.FEN, from, to, promote)
	}
	if san == "" {
		san = from.Name() + to.Name()
	}
	err = t.recordAtTipLocked(func() error {
		return t.nav.RecordMove(san, navigator.Frame{FEN: out.FEN, Note: out.Note})
	})
	if err != nil {
		t.errMsg = err.Error()
		st := t.changedLocked()
		t.mu.Unlock()
		t.notify(st)
		return err
	}
	t.epoch++
	if out.End {
		t.complete = true
		t.logger.Info("trainer_line_complete", zap.Int("plies", len(t.nav.Active().Frames)-1))
	} else {
		t.maybeScheduleReplyLocked()
	}
	st := t.changedLocked()
	t.mu.Unlock()
	t.notify(st)
	return nil
}

// UpdateNote stores a note for the displayed position. The local frame is
// updated only after the backend accepts it.
func (t *Trainer) UpdateNote(ctx context.Context, note string) error {
	t.mu.Lock()
	position := t.nav.Current().FEN
	cursor := t.nav.Cursor()
	epoch := t.epoch
	t.mu.Unlock()

	err := t.backend.SaveNote(ctx, position, note)

	t.mu.Lock()
	if err != nil {
		t.errMsg = err.Error()
		st := t.changedLocked()
		t.mu.Unlock()
		t.logger.Warn("trainer_note_failed", zap.Error(err))
		t.notify(st)
		return err
	}
	if epoch != t.epoch || t.nav.Cursor() != cursor {
		t.mu.Unlock()
		return ErrNotViewed
	}
	t.errMsg = ""
	t.nav.SetNote(note)
	st := t.changedLocked()
	t.mu.Unlock()
	t.notify(st)
	return nil
}

func (t *Trainer) resetLocked() error {
	t.epoch++
	t.stopPendingLocked()
	root := &navigator.Variation{Frames: []navigator.Frame{{FEN: t.start}}}
	nav, err := navigator.New(nil, root, navigator.WithPlayer(t.player), navigator.WithLogger(t.logger))
	if err != nil {
		return err
	}
	t.nav = nav
	t.selected = nil
	t.complete = false
	t.inflight = false
	t.replying = false
	t.errMsg = ""
	return nil
}

func (t *Trainer) canMoveLocked() bool {
	return !t.complete && !t.replying && t.nav.AtTip() && t.nav.PlayerToMove()
}

// maybeScheduleReplyLocked arms the opponent timer when the tip of the line
// has the opponent to move. The displayed ply does not matter.
func (t *Trainer) maybeScheduleReplyLocked() {
	if t.complete || t.replying {
		return
	}
	if tip, _ := t.tipLocked(); tip.ActiveColor() == t.player {
		return
	}
	t.replying = true
	epoch := t.epoch
	t.pending = t.clock.AfterFunc(t.delay, func() { t.playReply(epoch) })
}

func (t *Trainer) playReply(epoch uint64) {
	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		t.logger.Debug("trainer_stale_timer", zap.Uint64("epoch", epoch))
		return
	}
	t.pending = nil
	tip, _ := t.tipLocked()
	position := tip.FEN
	ctx := t.ctx
	t.mu.Unlock()

	reply, err := t.backend.Reply(ctx, position)

	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		t.logger.Debug("trainer_stale_reply", zap.Uint64("epoch", epoch))
		return
	}
	t.replying = false
	if err == nil {
		san := reply.SAN
		if san == "" {
			san = moveSAN(position, reply.FEN, fen.Square{Rank: -1}, fen.Square{Rank: -1}, "")
		}
		if san == "" {
			san = "?"
		}
		err = t.recordAtTipLocked(func() error {
			return t.nav.RecordReply(san, navigator.Frame{FEN: reply.FEN, Note: reply.Note})
		})
	}
	if err != nil {
		t.errMsg = err.Error()
		t.logger.Warn("trainer_reply_failed", zap.Stringer("mode", t.mode), zap.Error(err))
	} else {
		t.errMsg = ""
		t.epoch++
	}
	st := t.changedLocked()
	t.mu.Unlock()
	t.notify(st)
}

func (t *Trainer) tipLocked() (navigator.Frame, int) {
	frames := t.nav.Active().Frames
	n := len(frames) - 1
	return frames[n], n
}

// recordAtTipLocked runs record with the cursor on the last frame of the line
// and then puts the cursor back on the ply the user was viewing.
func (t *Trainer) recordAtTipLocked(record func() error) error {
	viewed := t.nav.Cursor().Ply
	_, tip := t.tipLocked()
	if viewed == tip {
		return record()
	}
	if err := t.nav.Seek(tip); err != nil {
		return err
	}
	err := record()
	if serr := t.nav.Seek(viewed); serr != nil && err == nil {
		err = serr
	}
	return err
}

func (t *Trainer) stopPendingLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *Trainer) changedLocked() State {
	t.seq++
	return t.stateLocked()
}

func (t *Trainer) stateLocked() State {
	snap := t.nav.Snapshot()
	st := State{
		Seq:      t.seq,
		Mode:     t.mode,
		Player:   t.player,
		Flipped:  t.flipped,
		FEN:      snap.Frame.FEN,
		Note:     snap.Frame.Note,
		Ply:      snap.Cursor.Ply,
		Plies:    len(snap.Variation.Frames),
		Moves:    snap.Moves,
		Complete: t.complete,
		Waiting:  t.inflight || t.replying,
		Err:      t.errMsg,
	}
	if t.selected != nil {
		s := *t.selected
		st.Selected = &s
	}
	return st
}

func (t *Trainer) notify(st State) {
	if t.observer != nil {
		t.observer(st)
	}
}

// isPromotion reports whether the piece on from is a pawn about to reach the
// last rank.
func isPromotion(position string, from fen.Square) bool {
	g, err := fen.ParseBoard(position)
	if err != nil {
		return false
	}
	switch g.At(from) {
	case fen.Piece('P'):
		return from.Rank == 1
	case fen.Piece('p'):
		return from.Rank == 6
	default:
		return false
	}
}
