// Package boardview turns a list of piece placements into a drawable 8x8 grid.
// Render is pure; the PNG and terminal front-ends consume its output.
package boardview

import (
	"github.com/park285/cheese-study/internal/fen"
)

// Orientation selects which side sits at the bottom of the screen.
type Orientation int

const (
	WhiteBottom Orientation = iota
	BlackBottom
)

// OrientationFor returns BlackBottom for black and WhiteBottom otherwise.
func OrientationFor(c fen.Color) Orientation {
	if c == fen.Black {
		return BlackBottom
	}
	return WhiteBottom
}

func (o Orientation) String() string {
	if o == BlackBottom {
		return "black"
	}
	return "white"
}

// Flip returns the other orientation.
func (o Orientation) Flip() Orientation {
	if o == BlackBottom {
		return WhiteBottom
	}
	return BlackBottom
}

// ToScreen maps a board square to a screen column and row (row 0 at the top).
// BlackBottom is a full 180 degree rotation.
func (o Orientation) ToScreen(sq fen.Square) (col, row int) {
	if o == BlackBottom {
		return 7 - sq.File, 7 - sq.Rank
	}
	return sq.File, sq.Rank
}

// FromScreen is the inverse of ToScreen.
func (o Orientation) FromScreen(col, row int) fen.Square {
	if o == BlackBottom {
		return fen.Square{Rank: 7 - row, File: 7 - col}
	}
	return fen.Square{Rank: row, File: col}
}

const (
	LightFill = "#ffffb3"
	DarkFill  = "#00b33c"
)

// Cell is one screen square.
type Cell struct {
	Square   fen.Square
	Col      int
	Row      int
	Light    bool
	Fill     string
	Piece    fen.Piece
	Selected bool
}

// Drawable is the render output: 64 cells in screen row-major order.
type Drawable struct {
	Orientation Orientation
	Cells       [64]Cell
	Selected    *fen.Square
}

// Render lays placements out for the given orientation. selected may be nil.
func Render(placements []fen.Placement, orientation Orientation, selected *fen.Square) Drawable {
	d := Drawable{Orientation: orientation}
	if selected != nil && selected.Valid() {
		sq := *selected
		d.Selected = &sq
	}
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			sq := orientation.FromScreen(col, row)
			light := (sq.File+sq.Rank)%2 == 0
			fill := DarkFill
			if light {
				fill = LightFill
			}
			d.Cells[row*8+col] = Cell{
				Square:   sq,
				Col:      col,
				Row:      row,
				Light:    light,
				Fill:     fill,
				Selected: d.Selected != nil && *d.Selected == sq,
			}
		}
	}
	for _, p := range placements {
		if !p.Piece.Valid() || !p.Square().Valid() {
			continue
		}
		col, row := orientation.ToScreen(p.Square())
		d.Cells[row*8+col].Piece = p.Piece
	}
	return d
}

// CellAt returns the cell at a screen position.
func (d Drawable) CellAt(col, row int) (Cell, bool) {
	if col < 0 || col >= 8 || row < 0 || row >= 8 {
		return Cell{}, false
	}
	return d.Cells[row*8+col], true
}

// CellFor returns the cell showing sq.
func (d Drawable) CellFor(sq fen.Square) (Cell, bool) {
	if !sq.Valid() {
		return Cell{}, false
	}
	col, row := d.Orientation.ToScreen(sq)
	return d.Cells[row*8+col], true
}

// Handlers receive click callbacks. Either field may be nil.
type Handlers struct {
	OnPieceClick       func(color fen.Color, sq fen.Square)
	OnEmptySquareClick func(sq fen.Square)
}

// Click dispatches a click on a screen cell. It reports whether the position
// was on the board.
func (d Drawable) Click(col, row int, h Handlers) bool {
	cell, ok := d.CellAt(col, row)
	if !ok {
		return false
	}
	if cell.Piece != fen.NoPiece {
		if h.OnPieceClick != nil {
			h.OnPieceClick(cell.Piece.Color(), cell.Square)
		}
		return true
	}
	if h.OnEmptySquareClick != nil {
		h.OnEmptySquareClick(cell.Square)
	}
	return true
}

// HitTest converts pixel coordinates relative to the board origin into a
// screen cell.
func HitTest(px, py, cellSize int) (col, row int, ok bool) {
	if cellSize <= 0 || px < 0 || py < 0 {
		return 0, 0, false
	}
	col, row = px/cellSize, py/cellSize
	if col >= 8 || row >= 8 {
		return 0, 0, false
	}
	return col, row, true
}
