package fen

import (
	"fmt"
	"strings"
)

// Square addresses one cell of the grid using the same coordinates as Placement.
type Square struct {
	Rank int
	File int
}

// Valid reports whether the square lies on the board.
func (s Square) Valid() bool {
	return s.Rank >= 0 && s.Rank < 8 && s.File >= 0 && s.File < 8
}

// Name returns the square in the uppercase form the study backend uses, e.g. "C7".
func (s Square) Name() string {
	if !s.Valid() {
		return ""
	}
	return fmt.Sprintf("%c%d", 'A'+s.File, 8-s.Rank)
}

func (s Square) String() string { return s.Name() }

// ParseSquare accepts "C7" or "c7".
func ParseSquare(name string) (Square, error) {
	n := strings.TrimSpace(name)
	if len(n) != 2 {
		return Square{}, fmt.Errorf("invalid square %q", name)
	}
	file := n[0]
	if file >= 'a' && file <= 'h' {
		file -= 'a' - 'A'
	}
	if file < 'A' || file > 'H' || n[1] < '1' || n[1] > '8' {
		return Square{}, fmt.Errorf("invalid square %q", name)
	}
	return Square{Rank: 8 - int(n[1]-'0'), File: int(file - 'A')}, nil
}

// MustSquare is ParseSquare for literals. It panics on bad input.
func MustSquare(name string) Square {
	sq, err := ParseSquare(name)
	if err != nil {
		panic(err)
	}
	return sq
}

// MarshalText encodes the square as its name so JSON carries "C7".
func (s Square) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid square (%d,%d)", s.Rank, s.File)
	}
	return []byte(s.Name()), nil
}

func (s *Square) UnmarshalText(b []byte) error {
	sq, err := ParseSquare(string(b))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}
