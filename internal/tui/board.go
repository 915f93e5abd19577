// Package tui is the terminal front-end: a board primitive, the move list and
// comment panels, redrawn from store notifications.
package tui

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/park285/cheese-study/internal/boardview"
	"github.com/park285/cheese-study/internal/glue"
)

// Cells are three columns wide and one row high so pieces sit centred.
const (
	cellW   = 3
	cellH   = 1
	marginX = 2 // rank labels
)

var (
	lightBG    = tcell.NewHexColor(0xffffb3)
	darkBG     = tcell.NewHexColor(0x00b33c)
	selectedBG = tcell.NewHexColor(0xff7a3c)
	pieceFG    = tcell.NewHexColor(0x101010)
	labelFG    = tcell.ColorGray
)

// BoardUI draws a glue.View board and turns mouse clicks into board clicks.
type BoardUI struct {
	Box *tview.Box

	mu      sync.Mutex
	drawn   boardview.Drawable
	onClick boardview.Handlers
}

func NewBoard(h boardview.Handlers) *BoardUI {
	b := &BoardUI{Box: tview.NewBox(), onClick: h}
	b.drawn = boardview.Render(nil, boardview.WhiteBottom, nil)
	b.Box.SetDrawFunc(b.draw)
	b.Box.SetMouseCapture(func(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
		if action != tview.MouseLeftClick {
			return action, event
		}
		x, y, _, _ := b.Box.GetInnerRect()
		mx, my := event.Position()
		if b.Click(mx-x-marginX, my-y) {
			return tview.MouseConsumed, nil
		}
		return action, event
	})
	return b
}

// SetView replaces the board shown on the next draw.
func (b *BoardUI) SetView(v glue.View) {
	d := v.Drawable()
	b.mu.Lock()
	b.drawn = d
	b.mu.Unlock()
}

// Click handles a click at character offset (px, py) from the first board
// cell. It reports whether the offset was on the board.
func (b *BoardUI) Click(px, py int) bool {
	col, row, ok := cellAt(px, py)
	if !ok {
		return false
	}
	b.mu.Lock()
	d := b.drawn
	b.mu.Unlock()
	return d.Click(col, row, b.onClick)
}

func cellAt(px, py int) (col, row int, ok bool) {
	if px < 0 || py < 0 {
		return 0, 0, false
	}
	col, _, okc := boardview.HitTest(px, 0, cellW)
	row, _, okr := boardview.HitTest(py, 0, cellH)
	return col, row, okc && okr
}

func (b *BoardUI) draw(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	b.mu.Lock()
	d := b.drawn
	b.mu.Unlock()

	label := tcell.StyleDefault.Foreground(labelFG)
	for row := 0; row < 8; row++ {
		first, _ := d.CellAt(0, row)
		screen.SetContent(x, y+row*cellH, rune('8'-first.Square.Rank), nil, label)
		for col := 0; col < 8; col++ {
			cell, _ := d.CellAt(col, row)
			bg := darkBG
			if cell.Light {
				bg = lightBG
			}
			if cell.Selected {
				bg = selectedBG
			}
			// outline glyphs are white pieces, filled glyphs black
			style := tcell.StyleDefault.Background(bg).Foreground(pieceFG)
			left := x + marginX + col*cellW
			screen.SetContent(left, y+row*cellH, ' ', nil, style)
			screen.SetContent(left+1, y+row*cellH, boardview.Rune(cell.Piece), nil, style)
			screen.SetContent(left+2, y+row*cellH, ' ', nil, style)
		}
	}
	for col := 0; col < 8; col++ {
		cell, _ := d.CellAt(col, 7)
		screen.SetContent(x+marginX+col*cellW+1, y+8*cellH, rune('a'+cell.Square.File), nil, label)
	}
	return x, y, width, height
}
