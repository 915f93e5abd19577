package navigator

import (
	"context"
	"errors"

	"github.com/park285/cheese-study/internal/fen"
)

// Alternative is a sibling move recorded at a frame, reachable through its line.
type Alternative struct {
	SAN    string `json:"san"`
	LineID string `json:"line_id"`
}

// Frame is one position in a variation. SAN is the move that produced it and is
// empty for the first frame of a variation.
type Frame struct {
	FEN          string        `json:"fen"`
	SAN          string        `json:"san,omitempty"`
	Note         string        `json:"note,omitempty"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// ActiveColor is the side to move in the frame's position, or fen.NoColor when
// the FEN is unreadable.
func (f Frame) ActiveColor() fen.Color {
	c, err := fen.ActiveColor(f.FEN)
	if err != nil {
		return fen.NoColor
	}
	return c
}

func (f Frame) clone() Frame {
	out := f
	if f.Alternatives != nil {
		out.Alternatives = append([]Alternative(nil), f.Alternatives...)
	}
	return out
}

// RefKind names the backend resource a variation was loaded from.
type RefKind string

const (
	RefLocal RefKind = ""
	RefGame  RefKind = "game"
	RefLine  RefKind = "line"
)

// VariationRef identifies a variation on the backend. The zero value marks a
// variation that only exists client-side.
type VariationRef struct {
	Kind RefKind `json:"kind"`
	ID   string  `json:"id,omitempty"`
}

// IsLocal reports whether the variation cannot be reloaded from the backend.
func (r VariationRef) IsLocal() bool { return r.Kind == RefLocal }

func (r VariationRef) String() string {
	if r.IsLocal() {
		return "local"
	}
	if r.ID == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + ":" + r.ID
}

// LineRef is shorthand for a stored line.
func LineRef(id string) VariationRef { return VariationRef{Kind: RefLine, ID: id} }

// GameRef is shorthand for a game. An empty id means the backend's current game.
func GameRef(id string) VariationRef { return VariationRef{Kind: RefGame, ID: id} }

// Variation is an ordered list of frames starting at a root position.
type Variation struct {
	Ref     VariationRef `json:"ref"`
	Frames  []Frame      `json:"frames"`
	Comment string       `json:"comment,omitempty"`
}

// SANs returns the moves of frames[1:].
func (v *Variation) SANs() []string {
	if v == nil || len(v.Frames) < 2 {
		return nil
	}
	out := make([]string, 0, len(v.Frames)-1)
	for _, f := range v.Frames[1:] {
		out = append(out, f.SAN)
	}
	return out
}

func (v *Variation) clone() *Variation {
	out := &Variation{Ref: v.Ref, Comment: v.Comment, Frames: make([]Frame, len(v.Frames))}
	for i, f := range v.Frames {
		out.Frames[i] = f.clone()
	}
	return out
}

// Annotation is what FinalizeEdit sends to the backend.
type Annotation struct {
	FEN     string   `json:"fen"`
	SANSeq  []string `json:"san_seq"`
	Comment string   `json:"comment_text"`
}

// Backend loads variations and persists annotations.
type Backend interface {
	// FetchVariation may be served from a cache.
	FetchVariation(ctx context.Context, ref VariationRef) (*Variation, error)
	// RefreshVariation always goes to the source of truth.
	RefreshVariation(ctx context.Context, ref VariationRef) (*Variation, error)
	SubmitAnnotation(ctx context.Context, a Annotation) error
}

// Cursor points at the displayed frame.
type Cursor struct {
	Depth int `json:"depth"`
	Ply   int `json:"ply"`
}

// Snapshot is a read-only copy of the navigator state for rendering.
type Snapshot struct {
	Cursor    Cursor         `json:"cursor"`
	Editing   bool           `json:"editing"`
	Frame     Frame          `json:"frame"`
	Variation Variation      `json:"variation"`
	Trail     []VariationRef `json:"trail"`
	Moves     []string       `json:"moves"`
}

// Errors
var (
	ErrEmptyVariation  = errors.New("variation has no frames")
	ErrEditing         = errors.New("not allowed while editing a variation")
	ErrNotEditing      = errors.New("no variation is being edited")
	ErrAtVariationRoot = errors.New("no move to branch from at ply 0")
	ErrNotAtTip        = errors.New("cursor is not at the last ply")
	ErrNotPlayerTurn   = errors.New("not the player's turn")
	ErrPlayerTurn      = errors.New("it is the player's turn")
	ErrNothingToSubmit = errors.New("edited variation has no moves")
	ErrPlyOutOfRange   = errors.New("ply out of range")
	ErrMissingMove     = errors.New("move is required")
	ErrStaleParent     = errors.New("annotation saved but parent variation could not be reloaded")
	ErrNoBackend       = errors.New("no backend configured")
)
