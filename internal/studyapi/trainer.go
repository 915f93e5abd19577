package studyapi

import (
	"context"
	"errors"

	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/trainer"
	"github.com/park285/cheese-study/pkg/studydto"
)

// TrainerBackend adapts the client to trainer.Backend. In opening mode the
// backend judges moves against the repertoire and the reply comes from
// opponent-move; in endgame mode every legal move is accepted and the engine
// replies.
type TrainerBackend struct {
	client *Client
	mode   trainer.Mode
}

func NewTrainerBackend(c *Client, mode trainer.Mode) *TrainerBackend {
	return &TrainerBackend{client: c, mode: mode}
}

func (b *TrainerBackend) Move(ctx context.Context, position string, from, to fen.Square, promote string) (trainer.Outcome, error) {
	res, err := b.client.Move(ctx, studydto.MoveRequest{
		FEN:     position,
		From:    from.Name(),
		To:      to.Name(),
		Promote: promote,
	})
	if errors.Is(err, ErrIllegalMove) {
		return trainer.Outcome{}, nil
	}
	if err != nil {
		return trainer.Outcome{}, err
	}
	out := trainer.Outcome{FEN: res.FEN, SAN: res.SAN, Note: res.Note, End: bool(res.End)}
	switch b.mode {
	case trainer.ModeEndgame:
		out.Correct = res.FEN != ""
	default:
		out.Correct = bool(res.Correct)
	}
	return out, nil
}

func (b *TrainerBackend) Reply(ctx context.Context, position string) (trainer.Reply, error) {
	var (
		r   *studydto.Reply
		err error
	)
	if b.mode == trainer.ModeEndgame {
		r, err = b.client.Engine(ctx, position)
	} else {
		r, err = b.client.OpponentMove(ctx, position)
	}
	if err != nil {
		return trainer.Reply{}, err
	}
	return trainer.Reply{FEN: r.FEN, SAN: r.SAN, Note: r.Note}, nil
}

func (b *TrainerBackend) SaveNote(ctx context.Context, position, note string) error {
	return b.client.Note(ctx, position, note)
}
