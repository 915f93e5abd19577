package boardview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/cheese-study/internal/fen"
)

// PNGOptions controls RenderPNG. Zero values fall back to defaults.
type PNGOptions struct {
	SquareSize int
	Title      string
	Status     string
	LastMove   *MoveHighlight
}

// MoveHighlight marks the from/to squares of the last move.
type MoveHighlight struct {
	From fen.Square
	To   fen.Square
}

// Image geometry. The browser viewer maps clicks with the same margins.
const (
	DefaultSquareSize = 64
	SideMargin        = 28
	TopMargin         = 72
	bottomMargin      = 28

	headerHeight  = 36
	headerRadius  = 10
	headerPadding = 18
	headerGap     = 14
	shadowOffset  = 4
)

var (
	lightSquare     = color.RGBA{0xff, 0xff, 0xb3, 0xff}
	darkSquare      = color.RGBA{0x00, 0xb3, 0x3c, 0xff}
	selectedFill    = color.NRGBA{R: 255, G: 120, B: 60, A: 150}
	lastMoveFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	headerFill      = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	headerShadow    = color.NRGBA{A: 50}
	titleColor      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	statusColor     = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	backgroundColor = color.NRGBA{R: 245, G: 245, B: 240, A: 255}
	coordinateColor = color.NRGBA{R: 40, G: 44, B: 60, A: 255}
)

var labelFace = basicfont.Face7x13

const ellipsis = "..."

var errSquareTooSmall = errors.New("square size too small")

// canvas draws one Drawable onto an RGBA image.
type canvas struct {
	img    *image.RGBA
	d      Drawable
	square int
	board  image.Rectangle
}

func newCanvas(d Drawable, square int) *canvas {
	if square <= 0 {
		square = DefaultSquareSize
	}
	side := 8 * square
	board := image.Rect(SideMargin, TopMargin, SideMargin+side, TopMargin+side)
	img := image.NewRGBA(image.Rect(0, 0, side+2*SideMargin, TopMargin+side+bottomMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)
	return &canvas{img: img, d: d, square: square, board: board}
}

// RenderPNG rasterizes d. It checks ctx before drawing and before encoding.
func RenderPNG(ctx context.Context, d Drawable, opts PNGOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.SquareSize > 0 && opts.SquareSize < 8 {
		return nil, errSquareTooSmall
	}
	c := newCanvas(d, opts.SquareSize)

	c.header(opts.Title, opts.Status)
	c.squares()
	if lm := opts.LastMove; lm != nil {
		c.tint(lm.From, lastMoveFill)
		c.tint(lm.To, lastMoveFill)
	}
	if d.Selected != nil {
		c.tint(*d.Selected, selectedFill)
	}
	if err := c.pieces(); err != nil {
		return nil, err
	}
	c.coordinates()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *canvas) cell(col, row int) image.Rectangle {
	p := c.board.Min.Add(image.Pt(col*c.square, row*c.square))
	return image.Rectangle{Min: p, Max: p.Add(image.Pt(c.square, c.square))}
}

func (c *canvas) fill(r image.Rectangle, clr color.Color, op imagedraw.Op) {
	imagedraw.Draw(c.img, r, image.NewUniform(clr), image.Point{}, op)
}

func (c *canvas) squares() {
	for _, cell := range c.d.Cells {
		clr := darkSquare
		if cell.Light {
			clr = lightSquare
		}
		c.fill(c.cell(cell.Col, cell.Row), clr, imagedraw.Src)
	}
}

func (c *canvas) tint(sq fen.Square, clr color.Color) {
	if !sq.Valid() {
		return
	}
	col, row := c.d.Orientation.ToScreen(sq)
	c.fill(c.cell(col, row), clr, imagedraw.Over)
}

func (c *canvas) pieces() error {
	for _, cell := range c.d.Cells {
		if cell.Piece == fen.NoPiece {
			continue
		}
		glyph, err := renderPieceImage(cell.Piece, c.square)
		if err != nil {
			return err
		}
		imagedraw.Draw(c.img, c.cell(cell.Col, cell.Row), glyph, image.Point{}, imagedraw.Over)
	}
	return nil
}

// coordinates labels ranks on the left and files below the board.
func (c *canvas) coordinates() {
	ascent := labelFace.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		sq := c.d.Orientation.FromScreen(i, i)
		rankY := c.board.Min.Y + i*c.square + (c.square+ascent)/2
		c.textCentered(strconv.Itoa(8-sq.Rank), c.board.Min.X-SideMargin/2, rankY, coordinateColor)
		fileX := c.board.Min.X + i*c.square + c.square/2
		c.textCentered(string(rune('a'+sq.File)), fileX, c.board.Max.Y+ascent+4, coordinateColor)
	}
}

// header draws a rounded panel above the board with the title on the left
// and the status on the right. The status gets at most half the width.
func (c *canvas) header(title, status string) {
	title, status = strings.TrimSpace(title), strings.TrimSpace(status)
	if title == "" && status == "" {
		return
	}
	bottom := c.board.Min.Y - headerGap
	panel := image.Rect(c.board.Min.X, bottom-headerHeight, c.board.Max.X, bottom)
	c.roundedPanel(panel.Add(image.Pt(0, shadowOffset)), headerShadow)
	c.roundedPanel(panel, headerFill)

	inner := image.Rect(panel.Min.X+headerPadding, panel.Min.Y, panel.Max.X-headerPadding, panel.Max.Y)
	baseline := inner.Min.Y + (inner.Dy()+labelFace.Metrics().Ascent.Ceil()-labelFace.Metrics().Descent.Ceil())/2
	if status == "" {
		c.textCentered(fitText(title, inner.Dx()), (inner.Min.X+inner.Max.X)/2, baseline, titleColor)
		return
	}
	status = fitText(status, inner.Dx()/2)
	statusW := textWidth(status)
	c.text(status, inner.Max.X-statusW, baseline, statusColor)
	c.text(fitText(title, inner.Dx()-statusW-headerPadding), inner.Min.X, baseline, titleColor)
}

func (c *canvas) roundedPanel(r image.Rectangle, clr color.Color) {
	imagedraw.DrawMask(c.img, r, image.NewUniform(clr), image.Point{}, roundedMask{r: r, radius: headerRadius}, r.Min, imagedraw.Over)
}

func (c *canvas) text(s string, x, baseline int, clr color.Color) {
	if s == "" {
		return
	}
	dr := font.Drawer{Dst: c.img, Src: image.NewUniform(clr), Face: labelFace, Dot: fixed.P(x, baseline)}
	dr.DrawString(s)
}

func (c *canvas) textCentered(s string, centerX, baseline int, clr color.Color) {
	c.text(s, centerX-textWidth(s)/2, baseline, clr)
}

func textWidth(s string) int {
	return font.MeasureString(labelFace, s).Round()
}

// fitText shortens s with a trailing ellipsis until it fits in width pixels.
func fitText(s string, width int) string {
	s = strings.TrimSpace(s)
	if s == "" || textWidth(s) <= width {
		return s
	}
	if textWidth(ellipsis) > width {
		return ""
	}
	runes := []rune(s)
	for n := len(runes) - 1; n > 0; n-- {
		if cand := string(runes[:n]) + ellipsis; textWidth(cand) <= width {
			return cand
		}
	}
	return ellipsis
}

// roundedMask is an alpha mask that is opaque inside r with its corners
// rounded to radius.
type roundedMask struct {
	r      image.Rectangle
	radius int
}

func (m roundedMask) ColorModel() color.Model { return color.AlphaModel }

func (m roundedMask) Bounds() image.Rectangle { return m.r }

func (m roundedMask) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(m.r) {
		return color.Transparent
	}
	rad := m.radius
	if half := min(m.r.Dx(), m.r.Dy()) / 2; rad > half {
		rad = half
	}
	cx := clamp(x, m.r.Min.X+rad, m.r.Max.X-rad-1)
	cy := clamp(y, m.r.Min.Y+rad, m.r.Max.Y-rad-1)
	if dx, dy := x-cx, y-cy; dx*dx+dy*dy > rad*rad {
		return color.Transparent
	}
	return color.Opaque
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
