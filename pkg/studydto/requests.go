package studydto

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// MoveRequest is the body of POST move. Squares are upper-case names ("E2").
type MoveRequest struct {
	FEN     string `json:"fen"`
	From    string `json:"from"`
	To      string `json:"to"`
	Promote string `json:"promote,omitempty"`
}

// MoveResult covers both trainer responses: the opening trainer fills
// Correct, End and Note; the endgame trainer and the journal only FEN and SAN.
type MoveResult struct {
	FEN     string `json:"fen"`
	SAN     string `json:"san,omitempty"`
	Correct Flag   `json:"correct"`
	End     Flag   `json:"end"`
	Note    string `json:"note,omitempty"`
}

// FENRequest is the body of POST engine and POST opponent-move(s).
type FENRequest struct {
	FEN string `json:"fen"`
}

// Reply is a single move played by the other side.
type Reply struct {
	FEN  string `json:"fen"`
	SAN  string `json:"san,omitempty"`
	Note string `json:"note,omitempty"`
}

// Replies is the frame bundle of POST opponent-moves.
type Replies struct {
	Moves []Reply `json:"moves"`
}

// AnnotationRequest is the body of POST new-annotation.
type AnnotationRequest struct {
	FEN         string   `json:"fen"`
	SANSeq      []string `json:"san_seq"`
	CommentText string   `json:"comment_text"`
}

// NoteRequest is the body of POST note.
type NoteRequest struct {
	FEN  string `json:"fen"`
	Note string `json:"note"`
}

// Flag decodes a JSON bool that some servers send as a string ("true").
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = false
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseBool(s)
		if err != nil {
			*f = false
			return nil
		}
		*f = Flag(v)
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Flag(v)
	return nil
}
