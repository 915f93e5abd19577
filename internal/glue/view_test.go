package glue

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-study/internal/boardview"
	"github.com/park285/cheese-study/internal/drill"
	"github.com/park285/cheese-study/internal/eco"
	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/journal"
	"github.com/park285/cheese-study/internal/msgcat"
	"github.com/park285/cheese-study/internal/navigator"
	"github.com/park285/cheese-study/internal/trainer"
	"github.com/park285/cheese-study/pkg/studydto"
)

func newDrillSession(t *testing.T) (*DrillSession, *Store[View]) {
	t.Helper()
	cat, err := drill.DefaultCatalog()
	require.NoError(t, err)
	store := NewStore(View{})
	s, err := NewDrillSession(cat.Drills(), msgcat.Default(), func(v View) { store.Dispatch(Latest(v)) },
		drill.WithRevealDelays(0, 0))
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s, store
}

func TestDrillSessionFlow(t *testing.T) {
	s, store := newDrillSession(t)
	ctx := context.Background()

	v := s.View()
	assert.Equal(t, "Sicilian Defense (1/2)", v.Title)
	assert.Equal(t, "Black to play. Find the move.", v.Status)
	assert.True(t, v.Flipped)
	assert.Equal(t, boardview.BlackBottom, v.Orientation())
	assert.Equal(t, v.Seq, store.Get().Seq)

	require.NoError(t, Click(ctx, s, fen.MustSquare("D7")))
	require.NotNil(t, s.View().Selected)
	require.NoError(t, Click(ctx, s, fen.MustSquare("D6")))
	assert.Equal(t, "D7D6 is not it. Try again.", s.View().Status)

	require.NoError(t, Click(ctx, s, fen.MustSquare("C7")))
	require.NoError(t, Click(ctx, s, fen.MustSquare("C5")))
	v = s.View()
	assert.Equal(t, "1...c5, the Sicilian Defense.", v.Status)
	assert.Equal(t, v.Status, store.Get().Status)

	handled, err := s.HandleKey(ctx, "ArrowRight")
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "Sicilian Defense (2/2)", s.View().Title)

	_, err = s.HandleKey(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, "French Defense (1/1)", s.View().Title)
	assert.Equal(t, "French Defense (1/1)", store.Get().Title, "new drill source replaces the view")

	_, err = s.HandleKey(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "Sicilian Defense (1/2)", s.View().Title)

	handled, err = s.HandleKey(ctx, "x")
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestClickRejectsBadInput(t *testing.T) {
	s, _ := newDrillSession(t)
	assert.Error(t, Click(context.Background(), s, fen.Square{Rank: 9, File: 0}))
}

func TestLatestDropsOlderFromSameSource(t *testing.T) {
	cur := View{Source: "trainer", Seq: 5, Status: "new"}
	assert.Equal(t, "new", Latest(View{Source: "trainer", Seq: 4, Status: "old"})(cur).Status)
	assert.Equal(t, "other", Latest(View{Source: "journal", Seq: 1, Status: "other"})(cur).Status)
	assert.Equal(t, "same", Latest(View{Source: "trainer", Seq: 5, Status: "same"})(cur).Status)
}

func TestTrainerView(t *testing.T) {
	msgs := msgcat.Default()
	st := trainer.State{Seq: 3, Mode: trainer.ModeEndgame, Player: fen.White, FEN: fen.StartFEN, Ply: 0, Plies: 1, Moves: []string{}}
	v := TrainerView(st, msgs)
	assert.Equal(t, "Endgame trainer", v.Title)
	assert.Equal(t, "Your move (White).", v.Status)
	assert.Equal(t, -1, v.Current)
	assert.Equal(t, "endgame", v.Mode)

	st.Waiting = true
	assert.Equal(t, "Waiting for the reply...", TrainerView(st, msgs).Status)

	st.Waiting = false
	st.Complete = true
	st.Err = "boom"
	v = TrainerView(st, msgs)
	assert.Equal(t, "Line complete. ArrowRight starts over.", v.Status)
	assert.Equal(t, "boom", v.Err)
}

func TestJournalView(t *testing.T) {
	msgs := msgcat.Default()
	frames := []navigator.Frame{{FEN: fen.StartFEN}, {FEN: "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", SAN: "e4", Note: "best by test"}}
	st := journal.State{
		Seq:     2,
		GameID:  "g2",
		Game:    &studydto.GameMeta{ID: "g2", White: "Tal", Black: "Botvinnik", Date: "1960.03.15", Result: "1/2-1/2"},
		Opening: eco.Opening{Code: "B00", Title: "King's Pawn Game"},
		Nav: navigator.Snapshot{
			Cursor:    navigator.Cursor{Ply: 1},
			Frame:     frames[1],
			Variation: navigator.Variation{Ref: navigator.GameRef("g2"), Frames: frames, Comment: "Candidates"},
			Moves:     []string{"1. e4"},
		},
	}
	v := JournalView(st, msgs)
	assert.Equal(t, "Tal - Botvinnik, 1960.03.15 (1/2-1/2)", v.Title)
	assert.Equal(t, "B00 King's Pawn Game", v.Status)
	assert.Equal(t, "best by test", v.Comment)
	assert.Equal(t, 0, v.Current)

	st.Nav.Cursor = navigator.Cursor{Depth: 1, Ply: 0}
	st.Nav.Frame = frames[0]
	v = JournalView(st, msgs)
	assert.Equal(t, "Side line 1. c returns to the parent.", v.Status)
	assert.Equal(t, "Candidates", v.Comment)
}

func TestStoreFeedsHub(t *testing.T) {
	h := NewHub()
	store := NewStore(View{})
	var mu sync.Mutex
	var errs []error
	store.Subscribe(func(v View) {
		mu.Lock()
		errs = append(errs, h.Broadcast("view", v))
		mu.Unlock()
	})
	store.Dispatch(Latest(View{Source: "journal", Seq: 1}))
	require.Len(t, errs, 1)
	assert.NoError(t, errs[0])
}
