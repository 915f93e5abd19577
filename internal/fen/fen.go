// Package fen decodes and encodes the board and side-to-move fields of
// Forsyth-Edwards Notation.
//
// Coordinates are fixed: Rank 0 is the first FEN row (the eighth rank) and
// File 0 is the a-file. Board orientation is a rendering concern and never
// leaks into this package.
package fen

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Piece is one of the twelve FEN piece letters, or NoPiece for an empty square.
type Piece byte

const NoPiece Piece = 0

const pieceLetters = "pnbrqkPNBRQK"

// Valid reports whether p is one of the twelve piece letters.
func (p Piece) Valid() bool {
	return p != NoPiece && strings.IndexByte(pieceLetters, byte(p)) >= 0
}

// Color returns White for uppercase letters and Black for lowercase ones.
func (p Piece) Color() Color {
	switch {
	case p >= 'A' && p <= 'Z':
		return White
	case p >= 'a' && p <= 'z':
		return Black
	default:
		return NoColor
	}
}

// Kind returns the lowercase letter of the piece type.
func (p Piece) Kind() byte {
	if p >= 'A' && p <= 'Z' {
		return byte(p) + ('a' - 'A')
	}
	return byte(p)
}

func (p Piece) String() string {
	if p == NoPiece {
		return "."
	}
	return string(rune(p))
}

// Color is the side to move as written in the second FEN field.
type Color byte

const (
	NoColor Color = 0
	White   Color = 'w'
	Black   Color = 'b'
)

func (c Color) String() string {
	switch c {
	case White:
		return "w"
	case Black:
		return "b"
	default:
		return "-"
	}
}

// Opposite returns the other side. NoColor stays NoColor.
func (c Color) Opposite() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// ParseColor accepts "w"/"b" and the long forms "white"/"black".
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "w", "white":
		return White, nil
	case "b", "black":
		return Black, nil
	default:
		return NoColor, fmt.Errorf("invalid color %q", s)
	}
}

// Grid is an 8x8 board indexed as Grid[rank][file].
type Grid [8][8]Piece

// At returns the piece on sq, or NoPiece when sq is off the board.
func (g Grid) At(sq Square) Piece {
	if !sq.Valid() {
		return NoPiece
	}
	return g[sq.Rank][sq.File]
}

// Placement is one occupied square.
type Placement struct {
	Piece Piece `json:"piece"`
	Rank  int   `json:"rank"`
	File  int   `json:"file"`
}

// Square returns the square the placement occupies.
func (p Placement) Square() Square { return Square{Rank: p.Rank, File: p.File} }

// Position holds all six FEN fields.
type Position struct {
	Board     Grid
	Active    Color
	Castling  string
	EnPassant string
	HalfMove  int
	FullMove  int
}

// ParseBoard decodes the board field of fen. Anything after the first space is
// ignored.
func ParseBoard(fen string) (Grid, error) {
	var g Grid
	field := strings.TrimSpace(fen)
	if i := strings.IndexByte(field, ' '); i >= 0 {
		field = field[:i]
	}
	if field == "" {
		return g, &FormatError{FEN: fen, Rank: -1, Reason: "empty board field"}
	}
	rows := strings.Split(field, "/")
	if len(rows) != 8 {
		return g, &FormatError{FEN: fen, Rank: -1, Reason: fmt.Sprintf("expected 8 ranks, got %d", len(rows))}
	}
	for r, row := range rows {
		file := 0
		for i := 0; i < len(row); i++ {
			ch := row[i]
			switch {
			case ch >= '1' && ch <= '8':
				file += int(ch - '0')
			case Piece(ch).Valid():
				if file < 8 {
					g[r][file] = Piece(ch)
				}
				file++
			default:
				return g, &FormatError{FEN: fen, Rank: r, Reason: fmt.Sprintf("unexpected character %q", ch)}
			}
			if file > 8 {
				return g, &FormatError{FEN: fen, Rank: r, Reason: "rank expands past 8 squares"}
			}
		}
		if file != 8 {
			return g, &FormatError{FEN: fen, Rank: r, Reason: fmt.Sprintf("rank expands to %d squares", file)}
		}
	}
	return g, nil
}

// ToPlacements lists the occupied squares in row-major order.
func ToPlacements(g Grid) []Placement {
	out := make([]Placement, 0, 32)
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if p := g[r][f]; p != NoPiece {
				out = append(out, Placement{Piece: p, Rank: r, File: f})
			}
		}
	}
	return out
}

// FromPlacements builds a grid from placements. Later entries win on conflicts.
func FromPlacements(ps []Placement) (Grid, error) {
	var g Grid
	for _, p := range ps {
		if !p.Piece.Valid() {
			return g, fmt.Errorf("invalid piece %q", byte(p.Piece))
		}
		if !p.Square().Valid() {
			return g, fmt.Errorf("placement %s out of range (%d,%d)", p.Piece, p.Rank, p.File)
		}
		g[p.Rank][p.File] = p.Piece
	}
	return g, nil
}

// FormatBoard encodes g as a FEN board field.
func FormatBoard(g Grid) string {
	var b strings.Builder
	b.Grow(72)
	for r := 0; r < 8; r++ {
		if r > 0 {
			b.WriteByte('/')
		}
		empty := 0
		for f := 0; f < 8; f++ {
			p := g[r][f]
			if p == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteByte(byte('0' + empty))
				empty = 0
			}
			b.WriteByte(byte(p))
		}
		if empty > 0 {
			b.WriteByte(byte('0' + empty))
		}
	}
	return b.String()
}

// Placements parses fen and returns its placements.
func Placements(fen string) ([]Placement, error) {
	g, err := ParseBoard(fen)
	if err != nil {
		return nil, err
	}
	return ToPlacements(g), nil
}

// ActiveColor returns the second space-delimited field of fen.
func ActiveColor(fen string) (Color, error) {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return NoColor, &FormatError{FEN: fen, Rank: -1, Reason: "missing active color field"}
	}
	switch fields[1] {
	case "w":
		return White, nil
	case "b":
		return Black, nil
	default:
		return NoColor, &FormatError{FEN: fen, Rank: -1, Reason: fmt.Sprintf("invalid active color %q", fields[1])}
	}
}

// ParsePosition decodes all six fields. Missing trailing fields take the
// usual defaults ("w", "-", "-", 0, 1).
func ParsePosition(fen string) (Position, error) {
	pos := Position{Active: White, Castling: "-", EnPassant: "-", FullMove: 1}
	board, err := ParseBoard(fen)
	if err != nil {
		return pos, err
	}
	pos.Board = board

	fields := strings.Fields(fen)
	if len(fields) > 6 {
		return pos, &FormatError{FEN: fen, Rank: -1, Reason: fmt.Sprintf("expected at most 6 fields, got %d", len(fields))}
	}
	if len(fields) > 1 {
		if pos.Active, err = ActiveColor(fen); err != nil {
			return pos, err
		}
	}
	if len(fields) > 2 {
		pos.Castling = fields[2]
	}
	if len(fields) > 3 {
		pos.EnPassant = fields[3]
	}
	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return pos, &FormatError{FEN: fen, Rank: -1, Reason: fmt.Sprintf("invalid half-move clock %q", fields[4])}
		}
		pos.HalfMove = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return pos, &FormatError{FEN: fen, Rank: -1, Reason: fmt.Sprintf("invalid full-move counter %q", fields[5])}
		}
		pos.FullMove = n
	}
	return pos, nil
}

// String encodes the position as a six-field FEN.
func (p Position) String() string {
	active := p.Active
	if active == NoColor {
		active = White
	}
	castling := p.Castling
	if castling == "" {
		castling = "-"
	}
	ep := p.EnPassant
	if ep == "" {
		ep = "-"
	}
	full := p.FullMove
	if full < 1 {
		full = 1
	}
	return fmt.Sprintf("%s %s %s %s %d %d", FormatBoard(p.Board), active, castling, ep, p.HalfMove, full)
}

// IsStartPosition reports whether fen has the standard initial board with
// white to move.
func IsStartPosition(fen string) bool {
	pos, err := ParsePosition(fen)
	if err != nil {
		return false
	}
	start, _ := ParseBoard(StartFEN)
	return pos.Board == start && pos.Active == White
}

func (c Color) MarshalText() ([]byte, error) {
	if c == NoColor {
		return []byte{}, nil
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*c = NoColor
		return nil
	}
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (p Piece) MarshalText() ([]byte, error) {
	if p == NoPiece {
		return []byte{}, nil
	}
	return []byte{byte(p)}, nil
}

func (p *Piece) UnmarshalText(b []byte) error {
	switch {
	case len(b) == 0:
		*p = NoPiece
	case len(b) == 1 && Piece(b[0]).Valid():
		*p = Piece(b[0])
	default:
		return fmt.Errorf("invalid piece %q", b)
	}
	return nil
}
