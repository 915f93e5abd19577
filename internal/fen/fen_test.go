package fen

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sortPlacements = cmpopts.SortSlices(func(a, b Placement) bool {
	if a.Rank != b.Rank {
		return a.Rank < b.Rank
	}
	if a.File != b.File {
		return a.File < b.File
	}
	return a.Piece < b.Piece
})

func TestRoundTripEveryPieceEverySquare(t *testing.T) {
	for i := 0; i < len(pieceLetters); i++ {
		p := Piece(pieceLetters[i])
		for r := 0; r < 8; r++ {
			for f := 0; f < 8; f++ {
				want := []Placement{{Piece: p, Rank: r, File: f}}
				g, err := FromPlacements(want)
				require.NoError(t, err)
				board := FormatBoard(g)
				parsed, err := ParseBoard(board)
				require.NoError(t, err, "board %q", board)
				if diff := cmp.Diff(want, ToPlacements(parsed), sortPlacements); diff != "" {
					t.Fatalf("%s at (%d,%d) via %q (-want +got):\n%s", p, r, f, board, diff)
				}
			}
		}
	}
}

func TestRoundTripRandomBoards(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 200; n++ {
		var want []Placement
		used := map[Square]bool{}
		count := rng.Intn(33)
		for len(want) < count {
			sq := Square{Rank: rng.Intn(8), File: rng.Intn(8)}
			if used[sq] {
				continue
			}
			used[sq] = true
			want = append(want, Placement{Piece: Piece(pieceLetters[rng.Intn(len(pieceLetters))]), Rank: sq.Rank, File: sq.File})
		}
		g, err := FromPlacements(want)
		require.NoError(t, err)
		parsed, err := ParseBoard(FormatBoard(g) + " w - - 0 1")
		require.NoError(t, err)
		if diff := cmp.Diff(want, ToPlacements(parsed), sortPlacements, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestParseBoardEndgameExample(t *testing.T) {
	g, err := ParseBoard("8/8/8/3k4/8/4K3/3P4/8")
	require.NoError(t, err)
	got := ToPlacements(g)
	want := []Placement{
		{Piece: 'k', Rank: 3, File: 3},
		{Piece: 'K', Rank: 5, File: 4},
		{Piece: 'P', Rank: 6, File: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("placements (-want +got):\n%s", diff)
	}
}

func TestParseBoardRejectsMalformed(t *testing.T) {
	cases := map[string]struct {
		fen  string
		rank int
	}{
		"short rank":  {"rnbqkbnr/ppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", 1},
		"long rank":   {"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR", 2},
		"overflow":    {"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNRR", 7},
		"bad letter":  {"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBXKBNR", 7},
		"seven ranks": {"8/8/8/8/8/8/8", -1},
		"empty":       {"", -1},
		"zero run":    {"8/8/8/8/8/8/8/07", 7},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBoard(tc.fen)
			var fe *FormatError
			require.True(t, errors.As(err, &fe), "want FormatError, got %v", err)
			assert.Equal(t, tc.rank, fe.Rank)
		})
	}
}

func TestActiveColor(t *testing.T) {
	c, err := ActiveColor("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	require.NoError(t, err)
	assert.Equal(t, Black, c)

	c, err = ActiveColor(StartFEN)
	require.NoError(t, err)
	assert.Equal(t, White, c)

	_, err = ActiveColor("8/8/8/8/8/8/8/8")
	assert.Error(t, err)
	_, err = ActiveColor("8/8/8/8/8/8/8/8 x")
	assert.Error(t, err)
}

func TestParsePositionDefaultsAndFormat(t *testing.T) {
	pos, err := ParsePosition("8/8/8/3k4/8/4K3/3P4/8")
	require.NoError(t, err)
	assert.Equal(t, White, pos.Active)
	assert.Equal(t, "-", pos.Castling)
	assert.Equal(t, 1, pos.FullMove)
	assert.Equal(t, "8/8/8/3k4/8/4K3/3P4/8 w - - 0 1", pos.String())

	pos, err = ParsePosition("rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w KQkq c6 0 2")
	require.NoError(t, err)
	assert.Equal(t, "c6", pos.EnPassant)
	assert.Equal(t, 2, pos.FullMove)
	assert.Equal(t, "rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w KQkq c6 0 2", pos.String())

	_, err = ParsePosition(StartFEN + " extra")
	assert.Error(t, err)
	_, err = ParsePosition("8/8/8/8/8/8/8/8 w - - x 1")
	assert.Error(t, err)
}

func TestSquareNames(t *testing.T) {
	sq, err := ParseSquare("C7")
	require.NoError(t, err)
	assert.Equal(t, Square{Rank: 1, File: 2}, sq)
	assert.Equal(t, "C7", sq.Name())

	sq, err = ParseSquare("h1")
	require.NoError(t, err)
	assert.Equal(t, Square{Rank: 7, File: 7}, sq)

	for _, bad := range []string{"", "I1", "A9", "A0", "C77"} {
		_, err := ParseSquare(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsStartPosition(t *testing.T) {
	assert.True(t, IsStartPosition(StartFEN))
	assert.False(t, IsStartPosition("8/8/8/3k4/8/4K3/3P4/8 w - - 0 1"))
	assert.False(t, IsStartPosition("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1"))
}
