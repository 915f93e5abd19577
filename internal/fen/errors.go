package fen

import "fmt"

// FormatError reports a malformed FEN string. Rank is the offending board row,
// or -1 when the problem is outside the board field.
type FormatError struct {
	FEN    string
	Rank   int
	Reason string
}

func (e *FormatError) Error() string {
	if e.Rank >= 0 {
		return fmt.Sprintf("fen: rank %d: %s (%q)", e.Rank, e.Reason, e.FEN)
	}
	return fmt.Sprintf("fen: %s (%q)", e.Reason, e.FEN)
}
