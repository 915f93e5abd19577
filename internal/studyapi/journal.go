package studyapi

import (
	"context"

	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/navigator"
	"github.com/park285/cheese-study/pkg/studydto"
)

// JournalBackend serves the journal viewer. Variations come from lines, which
// may be a cache in front of the client.
type JournalBackend struct {
	navigator.Backend
	client *Client
}

// NewJournalBackend uses lines for variations; nil means the client itself.
func NewJournalBackend(c *Client, lines navigator.Backend) *JournalBackend {
	if lines == nil {
		lines = NewNavigatorBackend(c)
	}
	return &JournalBackend{Backend: lines, client: c}
}

func (b *JournalBackend) GamesMetadata(ctx context.Context) ([]studydto.GameMeta, error) {
	return b.client.GamesMetadata(ctx)
}

// PlayMove returns ErrIllegalMove when the server rejects the move.
func (b *JournalBackend) PlayMove(ctx context.Context, position string, from, to fen.Square, promote string) (navigator.Frame, error) {
	res, err := b.client.Move(ctx, studydto.MoveRequest{FEN: position, From: from.Name(), To: to.Name(), Promote: promote})
	if err != nil {
		return navigator.Frame{}, err
	}
	if _, err := fen.ParsePosition(res.FEN); err != nil {
		return navigator.Frame{}, err
	}
	san := res.SAN
	if san == "" {
		san = from.Name() + to.Name()
	}
	return navigator.Frame{FEN: res.FEN, SAN: san, Note: res.Note}, nil
}
