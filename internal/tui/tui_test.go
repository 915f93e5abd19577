package tui

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"

	"github.com/park285/cheese-study/internal/boardview"
	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/glue"
)

func TestKeyName(t *testing.T) {
	cases := []struct {
		ev   *tcell.EventKey
		want string
	}{
		{tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone), "ArrowLeft"},
		{tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone), "ArrowRight"},
		{tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), "Enter"},
		{tcell.NewEventKey(tcell.KeyEsc, 0, tcell.ModNone), "Escape"},
		{tcell.NewEventKey(tcell.KeyRune, 'n', tcell.ModNone), "n"},
		{tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, KeyName(tc.ev))
	}
}

func TestFormatMoves(t *testing.T) {
	got := FormatMoves([]string{"1. e4", "c5", "2. Nf3"}, 1)
	assert.Equal(t, "1. e4 [black:yellow]c5[-:-]\n2. Nf3", got)
	assert.Equal(t, "1. .. e5", FormatMoves([]string{"1. .. e5"}, -1))
	assert.Equal(t, "", FormatMoves(nil, -1))
}

func TestBoardClickDispatch(t *testing.T) {
	var (
		pieces []fen.Square
		empty  []fen.Square
		colors []fen.Color
	)
	b := NewBoard(boardview.Handlers{
		OnPieceClick: func(c fen.Color, sq fen.Square) {
			colors = append(colors, c)
			pieces = append(pieces, sq)
		},
		OnEmptySquareClick: func(sq fen.Square) { empty = append(empty, sq) },
	})
	b.SetView(glue.View{FEN: fen.StartFEN})

	// row 6, col 4 is e2 with white at the bottom
	assert.True(t, b.Click(4*cellW+1, 6))
	assert.True(t, b.Click(4*cellW, 4))
	assert.False(t, b.Click(8*cellW, 0))
	assert.False(t, b.Click(-1, 0))

	assert.Equal(t, []fen.Square{fen.MustSquare("E2")}, pieces)
	assert.Equal(t, []fen.Color{fen.White}, colors)
	assert.Equal(t, []fen.Square{fen.MustSquare("E4")}, empty)

	b.SetView(glue.View{FEN: fen.StartFEN, Flipped: true})
	assert.True(t, b.Click(3*cellW, 1))
	assert.Equal(t, fen.MustSquare("E2"), pieces[len(pieces)-1])
}
