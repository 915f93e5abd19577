// Package drill runs move drills: each frame shows a lead-in position, reveals
// the question after a short pause, and accepts exactly one answer.
package drill

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/obslog"
)

const (
	DefaultFirstReveal = 1000 * time.Millisecond
	DefaultNextReveal  = 0
)

// Controller drives one drill through PRE, MAIN and POST for every frame.
// All methods are safe for concurrent use; the observer is called after the
// lock is released, once per state change.
type Controller struct {
	mu sync.Mutex

	drill     Drill
	sessionID string
	idx       int
	stage     Stage
	selected  *fen.Square
	last      *Move
	correct   bool

	// epoch invalidates timers scheduled before the latest transition
	epoch   uint64
	pending Timer
	seq     uint64

	clock       Clock
	firstReveal time.Duration
	nextReveal  time.Duration
	observer    func(State)
	logger      *zap.Logger
}

type Option func(*Controller)

func WithClock(c Clock) Option {
	return func(ctl *Controller) {
		if c != nil {
			ctl.clock = c
		}
	}
}

// WithRevealDelays sets the PRE pause for the first frame and for later frames.
func WithRevealDelays(first, next time.Duration) Option {
	return func(ctl *Controller) {
		ctl.firstReveal = first
		ctl.nextReveal = next
	}
}

// WithObserver registers the state-change callback.
func WithObserver(fn func(State)) Option {
	return func(ctl *Controller) { ctl.observer = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(ctl *Controller) {
		if l != nil {
			ctl.logger = l
		}
	}
}

func NewController(d Drill, opts ...Option) (*Controller, error) {
	if len(d.Frames) == 0 {
		return nil, ErrNoFrames
	}
	c := &Controller{
		drill:       d,
		clock:       RealClock,
		firstReveal: DefaultFirstReveal,
		nextReveal:  DefaultNextReveal,
		logger:      obslog.L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Begin starts (or restarts) the session at the first frame.
func (c *Controller) Begin() {
	c.mu.Lock()
	c.sessionID = uuid.NewString()
	c.idx = 0
	c.enterPreLocked(c.firstReveal)
	st := c.changedLocked()
	c.mu.Unlock()
	c.logger.Info("drill_begin", zap.String("drill", c.drill.ID), zap.String("session", st.SessionID), zap.Int("frames", len(c.drill.Frames)))
	c.notify(st)
}

// Stop cancels any pending reveal. The state is left as is.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.epoch++
	c.stopPendingLocked()
	c.mu.Unlock()
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// ClickPiece handles a click on an occupied square. A piece of the side to
// move toggles the selection; clicking an enemy piece with a selection is a
// capture attempt.
func (c *Controller) ClickPiece(color fen.Color, sq fen.Square) {
	c.mu.Lock()
	if c.stage != StageMain {
		c.mu.Unlock()
		return
	}
	frame := c.drill.Frames[c.idx]
	if color != frame.ActiveColor {
		if c.selected == nil {
			c.mu.Unlock()
			return
		}
		c.submitLocked(Move{From: *c.selected, To: sq})
		st := c.changedLocked()
		c.mu.Unlock()
		c.notify(st)
		return
	}
	if c.selected != nil && *c.selected == sq {
		c.selected = nil
	} else {
		s := sq
		c.selected = &s
	}
	st := c.changedLocked()
	c.mu.Unlock()
	c.notify(st)
}

// ClickSquare handles a click on an empty square: with a selection it submits
// the move, otherwise it does nothing.
func (c *Controller) ClickSquare(sq fen.Square) {
	c.mu.Lock()
	if c.stage != StageMain || c.selected == nil {
		c.mu.Unlock()
		return
	}
	c.submitLocked(Move{From: *c.selected, To: sq})
	st := c.changedLocked()
	c.mu.Unlock()
	c.notify(st)
}

// SubmitMove checks m against the expected answer. A match moves to POST; a
// miss stays in MAIN with the selection cleared.
func (c *Controller) SubmitMove(m Move) (bool, error) {
	c.mu.Lock()
	if c.stage != StageMain {
		c.mu.Unlock()
		return false, ErrWrongStage
	}
	ok := c.submitLocked(m)
	st := c.changedLocked()
	c.mu.Unlock()
	c.notify(st)
	return ok, nil
}

// Advance leaves POST for the next frame, or completes the session after the
// last frame. It reports whether anything changed.
func (c *Controller) Advance() bool {
	c.mu.Lock()
	if c.stage != StagePost {
		c.mu.Unlock()
		return false
	}
	if c.idx < len(c.drill.Frames)-1 {
		c.idx++
		c.enterPreLocked(c.nextReveal)
	} else {
		c.epoch++
		c.stage = StageComplete
		c.selected = nil
		c.logger.Info("drill_complete", zap.String("drill", c.drill.ID), zap.String("session", c.sessionID))
	}
	st := c.changedLocked()
	c.mu.Unlock()
	c.notify(st)
	return true
}

func (c *Controller) submitLocked(m Move) bool {
	frame := c.drill.Frames[c.idx]
	attempt := m
	c.last = &attempt
	c.correct = m == frame.Expected
	c.selected = nil
	c.logger.Debug("drill_attempt",
		zap.String("drill", c.drill.ID),
		zap.Int("frame", c.idx),
		zap.String("move", m.String()),
		zap.Bool("correct", c.correct),
	)
	if c.correct {
		c.epoch++
		c.stage = StagePost
	}
	return c.correct
}

func (c *Controller) enterPreLocked(delay time.Duration) {
	c.epoch++
	c.stopPendingLocked()
	c.stage = StagePre
	c.selected = nil
	c.last = nil
	c.correct = false
	if delay <= 0 {
		c.enterMainLocked()
		return
	}
	epoch := c.epoch
	c.pending = c.clock.AfterFunc(delay, func() { c.reveal(epoch) })
}

func (c *Controller) reveal(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.stage != StagePre {
		c.mu.Unlock()
		c.logger.Debug("drill_stale_timer", zap.Uint64("epoch", epoch))
		return
	}
	c.pending = nil
	c.enterMainLocked()
	st := c.changedLocked()
	c.mu.Unlock()
	c.notify(st)
}

func (c *Controller) enterMainLocked() {
	c.epoch++
	c.stage = StageMain
}

func (c *Controller) stopPendingLocked() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

// changedLocked stamps a new sequence number so observers can drop
// notifications that arrive out of order.
func (c *Controller) changedLocked() State {
	c.seq++
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	st := State{
		Seq:        c.seq,
		SessionID:  c.sessionID,
		DrillID:    c.drill.ID,
		DrillName:  c.drill.Name,
		FrameIndex: c.idx,
		FrameCount: len(c.drill.Frames),
		Stage:      c.stage,
		Correct:    c.correct,
	}
	frame := c.drill.Frames[c.idx]
	st.Flipped = frame.ActiveColor == fen.Black
	switch c.stage {
	case StagePre:
		st.FEN = frame.Lead
	case StageMain:
		st.FEN = frame.Question
		st.ActiveColor = frame.ActiveColor
		st.Comment = frame.QuestionComment
	case StagePost, StageComplete:
		st.FEN = frame.Answer
		st.ActiveColor = frame.ActiveColor
		st.Comment = frame.AnswerComment
	default:
		st.FEN = frame.Lead
	}
	if c.selected != nil {
		s := *c.selected
		st.Selected = &s
	}
	if c.last != nil {
		m := *c.last
		st.LastAttempt = &m
	}
	return st
}

func (c *Controller) notify(st State) {
	if c.observer != nil {
		c.observer(st)
	}
}
