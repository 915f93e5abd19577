package boardview

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-study/internal/fen"
)

// point is a glyph vertex inside a unit square, y pointing up.
type point struct{ X, Y float64 }

var glyphOutlines = map[byte][]point{
	'p': {
		{0.3, 0.1}, {0.45, 0.2}, {0.45, 0.3}, {0.45, 0.4}, {0.37, 0.4}, {0.45, 0.5}, {0.5, 0.6},
		{0.55, 0.5}, {0.63, 0.4}, {0.55, 0.4}, {0.55, 0.3}, {0.55, 0.2}, {0.7, 0.1},
	},
	'n': {
		{0.23, 0.1}, {0.3, 0.3}, {0.4, 0.4}, {0.45, 0.6}, {0.25, 0.45}, {0.15, 0.5}, {0.2, 0.6},
		{0.3, 0.7}, {0.33, 0.8}, {0.4, 0.75}, {0.6, 0.7}, {0.7, 0.55}, {0.66, 0.3}, {0.73, 0.1},
	},
	'b': {
		{0.2, 0.1}, {0.23, 0.15}, {0.35, 0.2}, {0.2, 0.5}, {0.23, 0.6}, {0.47, 0.8}, {0.43, 0.84},
		{0.5, 0.88}, {0.57, 0.84}, {0.53, 0.8}, {0.77, 0.6}, {0.8, 0.5}, {0.65, 0.2}, {0.77, 0.15},
		{0.8, 0.1},
	},
	'r': {
		{0.13, 0.1}, {0.13, 0.15}, {0.25, 0.15}, {0.25, 0.55}, {0.17, 0.55}, {0.17, 0.7},
		{0.29, 0.7}, {0.29, 0.65}, {0.35, 0.65}, {0.35, 0.7}, {0.47, 0.7}, {0.47, 0.65},
		{0.53, 0.65}, {0.53, 0.7}, {0.65, 0.7}, {0.65, 0.65}, {0.71, 0.65}, {0.71, 0.7},
		{0.83, 0.7}, {0.83, 0.55}, {0.75, 0.55}, {0.75, 0.15}, {0.87, 0.15}, {0.87, 0.1},
	},
	'q': {
		{0.15, 0.1}, {0.2, 0.25}, {0.1, 0.55}, {0.25, 0.45}, {0.2, 0.65}, {0.4, 0.5}, {0.5, 0.7},
		{0.6, 0.5}, {0.8, 0.65}, {0.75, 0.45}, {0.9, 0.55}, {0.8, 0.25}, {0.85, 0.1},
	},
	'k': {
		{0.15, 0.1}, {0.15, 0.15}, {0.25, 0.2}, {0.15, 0.5}, {0.25, 0.6}, {0.475, 0.6},
		{0.475, 0.65}, {0.425, 0.65}, {0.425, 0.7}, {0.475, 0.7}, {0.475, 0.75}, {0.525, 0.75},
		{0.525, 0.70}, {0.575, 0.70}, {0.575, 0.65}, {0.525, 0.65}, {0.525, 0.60}, {0.75, 0.60},
		{0.85, 0.5}, {0.75, 0.2}, {0.85, 0.15}, {0.85, 0.1},
	},
}

const (
	whiteGlyphFill = "#ffffff"
	blackGlyphFill = "#000000"
	glyphStroke    = "#000000"
)

// GlyphPoints returns the outline of piece scaled into a size x size box with
// screen coordinates (y down).
func GlyphPoints(piece fen.Piece, size float64) ([][2]float64, error) {
	outline, ok := glyphOutlines[piece.Kind()]
	if !ok || !piece.Valid() {
		return nil, fmt.Errorf("no glyph for piece %q", byte(piece))
	}
	out := make([][2]float64, len(outline))
	for i, p := range outline {
		out[i] = [2]float64{p.X * size, (1 - p.Y) * size}
	}
	return out, nil
}

// glyphSVG renders the piece outline as a standalone SVG document.
func glyphSVG(piece fen.Piece, size int) ([]byte, error) {
	pts, err := GlyphPoints(piece, float64(size))
	if err != nil {
		return nil, err
	}
	coords := make([]string, len(pts))
	for i, p := range pts {
		coords[i] = fmt.Sprintf("%.2f,%.2f", p[0], p[1])
	}
	fill := blackGlyphFill
	if piece.Color() == fen.White {
		fill = whiteGlyphFill
	}
	stroke := float64(size) / 48
	if stroke < 1 {
		stroke = 1
	}
	svg := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
			`<polygon points="%s" fill="%s" stroke="%s" stroke-width="%.2f"/></svg>`,
		size, size, size, size, strings.Join(coords, " "), fill, glyphStroke, stroke,
	)
	return []byte(svg), nil
}

var runes = map[fen.Piece]rune{
	'K': '♔', 'Q': '♕', 'R': '♖', 'B': '♗', 'N': '♘', 'P': '♙',
	'k': '♚', 'q': '♛', 'r': '♜', 'b': '♝', 'n': '♞', 'p': '♟',
}

// Rune returns the terminal glyph for piece, or a space for an empty square.
func Rune(piece fen.Piece) rune {
	if r, ok := runes[piece]; ok {
		return r
	}
	return ' '
}
