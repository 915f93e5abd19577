package studyapi

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/navigator"
	"github.com/park285/cheese-study/pkg/studydto"
)

// NavigatorBackend serves navigator variations from games and stored lines.
type NavigatorBackend struct {
	client *Client
}

func NewNavigatorBackend(c *Client) *NavigatorBackend {
	return &NavigatorBackend{client: c}
}

func (b *NavigatorBackend) FetchVariation(ctx context.Context, ref navigator.VariationRef) (*navigator.Variation, error) {
	switch ref.Kind {
	case navigator.RefGame:
		g, err := b.client.Game(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return GameVariation(ref, g)
	case navigator.RefLine:
		l, err := b.client.Line(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return VariationFromEntries(ref, l.Moves, l.Comment)
	default:
		return nil, fmt.Errorf("fetch %s: unsupported variation kind", ref)
	}
}

// RefreshVariation is FetchVariation; the client keeps no cache of its own.
func (b *NavigatorBackend) RefreshVariation(ctx context.Context, ref navigator.VariationRef) (*navigator.Variation, error) {
	return b.FetchVariation(ctx, ref)
}

func (b *NavigatorBackend) SubmitAnnotation(ctx context.Context, a navigator.Annotation) error {
	return b.client.NewAnnotation(ctx, studydto.AnnotationRequest{
		FEN:         a.FEN,
		SANSeq:      a.SANSeq,
		CommentText: a.Comment,
	})
}

// GameVariation turns a game payload into a root variation. A game without
// moves becomes a single frame at its FEN.
func GameVariation(ref navigator.VariationRef, g *studydto.Game) (*navigator.Variation, error) {
	if g == nil {
		return nil, navigator.ErrEmptyVariation
	}
	entries := g.Moves
	if len(entries) == 0 && g.FEN != "" {
		entries = []studydto.LineEntry{{FEN: g.FEN}}
	}
	return VariationFromEntries(ref, entries, g.Comment)
}

// VariationFromEntries converts line entries into navigator frames. Every FEN
// must parse.
func VariationFromEntries(ref navigator.VariationRef, entries []studydto.LineEntry, comment string) (*navigator.Variation, error) {
	if len(entries) == 0 {
		return nil, navigator.ErrEmptyVariation
	}
	v := &navigator.Variation{Ref: ref, Comment: comment, Frames: make([]navigator.Frame, 0, len(entries))}
	for i, e := range entries {
		if _, err := fen.ParsePosition(e.FEN); err != nil {
			return nil, fmt.Errorf("%s entry %d: %w", ref, i, err)
		}
		note := e.Comment
		if note == "" {
			note = e.Note
		}
		f := navigator.Frame{FEN: e.FEN, Note: note}
		if i > 0 {
			f.SAN = e.SAN
		}
		if len(e.Variations) > 0 {
			f.Alternatives = lo.Map(e.Variations, func(a studydto.Alternative, _ int) navigator.Alternative {
				return navigator.Alternative{SAN: a.SAN, LineID: a.LineID}
			})
		}
		v.Frames = append(v.Frames, f)
	}
	return v, nil
}

// EntriesFromVariation is the inverse of VariationFromEntries, used when a
// variation is cached.
func EntriesFromVariation(v *navigator.Variation) []studydto.LineEntry {
	if v == nil {
		return nil
	}
	return lo.Map(v.Frames, func(f navigator.Frame, _ int) studydto.LineEntry {
		e := studydto.LineEntry{FEN: f.FEN, SAN: f.SAN, Comment: f.Note}
		if p, err := fen.ParsePosition(f.FEN); err == nil {
			e.FullMoveCounter = p.FullMove
			e.ActiveColor = p.Active.String()
		}
		if len(f.Alternatives) > 0 {
			e.Variations = lo.Map(f.Alternatives, func(a navigator.Alternative, _ int) studydto.Alternative {
				return studydto.Alternative{SAN: a.SAN, LineID: a.LineID}
			})
		}
		return e
	})
}
