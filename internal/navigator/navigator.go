// Package navigator walks a stack of variations: a root line plus the
// sub-variations the user has stepped into or is editing.
//
// Invariants held after every call:
//   - the stack is never empty,
//   - 0 <= cursor.Depth < len(stack) and 0 <= cursor.Ply < len(active frames),
//   - pushing never modifies the parent and popping removes exactly the top.
//
// A failed backend call leaves the state exactly as it was.
//
// Navigator is not safe for concurrent use; session controllers serialize access.
package navigator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/obslog"
)

type level struct {
	v   *Variation
	ply int
}

type Navigator struct {
	backend Backend
	stack   []level
	player  fen.Color
	logger  *zap.Logger

	editing bool
	// parent ply to restore when the edit ends
	editOrigin int
}

type Option func(*Navigator)

// WithPlayer restricts RecordMove outside editing to positions where c is to move.
func WithPlayer(c fen.Color) Option {
	return func(n *Navigator) { n.player = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(n *Navigator) {
		if l != nil {
			n.logger = l
		}
	}
}

// New starts a navigator at ply 0 of root. backend may be nil when the session
// never steps into stored lines or submits annotations.
func New(backend Backend, root *Variation, opts ...Option) (*Navigator, error) {
	if root == nil || len(root.Frames) == 0 {
		return nil, ErrEmptyVariation
	}
	n := &Navigator{
		backend: backend,
		stack:   []level{{v: root.clone()}},
		logger:  obslog.L(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

func (n *Navigator) top() *level { return &n.stack[len(n.stack)-1] }

// Cursor returns the current position.
func (n *Navigator) Cursor() Cursor {
	return Cursor{Depth: len(n.stack) - 1, Ply: n.top().ply}
}

// Current returns a copy of the displayed frame.
func (n *Navigator) Current() Frame {
	t := n.top()
	return t.v.Frames[t.ply].clone()
}

// Active returns a copy of the active variation.
func (n *Navigator) Active() *Variation { return n.top().v.clone() }

// Root returns a copy of the root variation.
func (n *Navigator) Root() *Variation { return n.stack[0].v.clone() }

// Editing reports whether the active variation is a draft being edited.
func (n *Navigator) Editing() bool { return n.editing }

// Player is the color RecordMove is restricted to, or fen.NoColor.
func (n *Navigator) Player() fen.Color { return n.player }

// AtTip reports whether the cursor is on the last ply of the active variation.
func (n *Navigator) AtTip() bool {
	t := n.top()
	return t.ply == len(t.v.Frames)-1
}

// PlayerToMove reports whether the displayed position has the player to move.
// Always true when no player is configured.
func (n *Navigator) PlayerToMove() bool {
	if n.player == fen.NoColor {
		return true
	}
	return n.Current().ActiveColor() == n.player
}

// Advance moves one ply forward. At the last ply it does nothing; leaving a
// sub-variation is always an explicit Collapse or Retreat.
func (n *Navigator) Advance() bool {
	t := n.top()
	if t.ply >= len(t.v.Frames)-1 {
		return false
	}
	t.ply++
	return true
}

// Retreat moves one ply back. At ply 0 of a sub-variation it pops back to the
// parent at the parent's saved ply. At ply 0 of the root, or of a draft being
// edited, it does nothing; drafts end through AbandonEdit or FinalizeEdit.
func (n *Navigator) Retreat() bool {
	t := n.top()
	if t.ply > 0 {
		t.ply--
		return true
	}
	if len(n.stack) == 1 || n.editing {
		return false
	}
	n.pop()
	return true
}

// Collapse leaves the active sub-variation and resumes the parent where it was.
func (n *Navigator) Collapse() bool {
	if len(n.stack) == 1 || n.editing {
		return false
	}
	n.pop()
	return true
}

// Seek jumps to ply within the active variation.
func (n *Navigator) Seek(ply int) error {
	t := n.top()
	if ply < 0 || ply >= len(t.v.Frames) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrPlyOutOfRange, ply, len(t.v.Frames))
	}
	t.ply = ply
	return nil
}

// StepIntoVariation loads ref from the backend and pushes it at ply 0.
func (n *Navigator) StepIntoVariation(ctx context.Context, ref VariationRef) error {
	if n.editing {
		return ErrEditing
	}
	if n.backend == nil {
		return ErrNoBackend
	}
	v, err := n.backend.FetchVariation(ctx, ref)
	if err != nil {
		n.logger.Warn("nav_step_into_failed", zap.String("ref", ref.String()), zap.Error(err))
		return fmt.Errorf("fetch variation %s: %w", ref, err)
	}
	if v == nil || len(v.Frames) == 0 {
		return fmt.Errorf("fetch variation %s: %w", ref, ErrEmptyVariation)
	}
	pushed := v.clone()
	if pushed.Ref.IsLocal() {
		pushed.Ref = ref
	}
	n.stack = append(n.stack, level{v: pushed})
	n.logger.Debug("nav_step_into", zap.String("ref", ref.String()), zap.Int("depth", len(n.stack)-1), zap.Int("frames", len(pushed.Frames)))
	return nil
}

// BeginEditingVariation starts a draft that replaces the move leading to the
// displayed frame. The parent steps back one ply and the draft is seeded with
// that position, move cleared.
func (n *Navigator) BeginEditingVariation() error {
	if n.editing {
		return ErrEditing
	}
	t := n.top()
	if t.ply == 0 {
		return ErrAtVariationRoot
	}
	n.editOrigin = t.ply
	t.ply--
	seed := Frame{FEN: t.v.Frames[t.ply].FEN}
	n.stack = append(n.stack, level{v: &Variation{Frames: []Frame{seed}}})
	n.editing = true
	n.logger.Debug("nav_edit_begin", zap.Int("depth", len(n.stack)-1), zap.String("fen", seed.FEN))
	return nil
}

// RecordMove appends the player's move at the tip of the active variation and
// moves the cursor onto it. While editing, recording from an earlier ply
// discards the draft's later moves.
func (n *Navigator) RecordMove(san string, next Frame) error {
	if !n.editing && !n.PlayerToMove() {
		return ErrNotPlayerTurn
	}
	return n.record(san, next)
}

// RecordReply appends a move made by the other side (opponent or engine).
// Outside editing it requires that the player is not to move.
func (n *Navigator) RecordReply(san string, next Frame) error {
	if !n.editing && n.player != fen.NoColor && n.PlayerToMove() {
		return ErrPlayerTurn
	}
	return n.record(san, next)
}

func (n *Navigator) record(san string, next Frame) error {
	if san == "" {
		san = next.SAN
	}
	if san == "" {
		return ErrMissingMove
	}
	t := n.top()
	if t.ply != len(t.v.Frames)-1 {
		if !n.editing {
			return ErrNotAtTip
		}
		t.v.Frames = t.v.Frames[:t.ply+1]
	}
	f := next.clone()
	f.SAN = san
	t.v.Frames = append(t.v.Frames, f)
	t.ply = len(t.v.Frames) - 1
	return nil
}

// SetNote replaces the note of the displayed frame.
func (n *Navigator) SetNote(note string) {
	t := n.top()
	t.v.Frames[t.ply].Note = note
}

// AbandonEdit drops the draft and restores the parent cursor.
func (n *Navigator) AbandonEdit() error {
	if !n.editing {
		return ErrNotEditing
	}
	n.pop()
	n.top().ply = n.editOrigin
	n.editing = false
	n.logger.Debug("nav_edit_abandon", zap.Int("depth", len(n.stack)-1))
	return nil
}

// FinalizeEdit submits the draft as an annotation. On acknowledgement the draft
// is dropped and the parent is reloaded from the backend. If submission fails
// nothing changes. If only the reload fails the draft is still dropped, since
// the annotation is persisted, and ErrStaleParent is returned.
func (n *Navigator) FinalizeEdit(ctx context.Context, comment string) error {
	if !n.editing {
		return ErrNotEditing
	}
	if n.backend == nil {
		return ErrNoBackend
	}
	draft := n.top().v
	if len(draft.Frames) < 2 {
		return ErrNothingToSubmit
	}
	ann := Annotation{FEN: draft.Frames[0].FEN, SANSeq: draft.SANs(), Comment: comment}
	if err := n.backend.SubmitAnnotation(ctx, ann); err != nil {
		n.logger.Warn("nav_edit_submit_failed", zap.Int("moves", len(ann.SANSeq)), zap.Error(err))
		return fmt.Errorf("submit annotation: %w", err)
	}

	parent := n.stack[len(n.stack)-2]
	var (
		fresh     *Variation
		reloadErr error
	)
	if !parent.v.Ref.IsLocal() {
		fresh, reloadErr = n.backend.RefreshVariation(ctx, parent.v.Ref)
		if reloadErr == nil && (fresh == nil || len(fresh.Frames) == 0) {
			reloadErr = ErrEmptyVariation
		}
	}

	n.pop()
	n.editing = false
	t := n.top()
	if fresh != nil && reloadErr == nil {
		t.v = fresh.clone()
		if t.v.Ref.IsLocal() {
			t.v.Ref = parent.v.Ref
		}
	}
	t.ply = min(n.editOrigin, len(t.v.Frames)-1)
	n.logger.Info("nav_edit_finalized",
		zap.String("parent", parent.v.Ref.String()),
		zap.Int("moves", len(ann.SANSeq)),
		zap.Bool("reloaded", fresh != nil && reloadErr == nil),
	)
	if reloadErr != nil {
		return fmt.Errorf("%w: %v", ErrStaleParent, reloadErr)
	}
	return nil
}

// ReplaceRoot swaps the root variation, clearing every sub-variation and edit.
func (n *Navigator) ReplaceRoot(root *Variation) error {
	if root == nil || len(root.Frames) == 0 {
		return ErrEmptyVariation
	}
	n.stack = []level{{v: root.clone()}}
	n.editing = false
	n.editOrigin = 0
	return nil
}

func (n *Navigator) pop() {
	n.stack = n.stack[:len(n.stack)-1]
}

// Snapshot copies the state needed to draw the current view.
func (n *Navigator) Snapshot() Snapshot {
	t := n.top()
	trail := make([]VariationRef, len(n.stack))
	for i, l := range n.stack {
		trail[i] = l.v.Ref
	}
	active := t.v.clone()
	return Snapshot{
		Cursor:    n.Cursor(),
		Editing:   n.editing,
		Frame:     active.Frames[t.ply],
		Variation: *active,
		Trail:     trail,
		Moves:     MoveList(active.Frames),
	}
}
