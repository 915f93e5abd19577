package studydto

// Alternative is a sibling move stored as its own line.
type Alternative struct {
	SAN    string `json:"san"`
	LineID string `json:"line_id"`
}

// LineEntry is one position of a stored line. FullMoveCounter and
// ActiveColor describe the position after SAN was played; the first entry
// of a line is the starting position and has no SAN.
type LineEntry struct {
	FEN             string        `json:"fen"`
	SAN             string        `json:"san,omitempty"`
	FullMoveCounter int           `json:"full_move_counter,omitempty"`
	ActiveColor     string        `json:"active_color,omitempty"`
	Comment         string        `json:"comment,omitempty"`
	Note            string        `json:"note,omitempty"`
	Variations      []Alternative `json:"variations,omitempty"`
}

// Line is the body of GET line?id=.
type Line struct {
	ID      string      `json:"id"`
	Moves   []LineEntry `json:"moves"`
	Comment string      `json:"comment,omitempty"`
}

// GameMeta is one row of GET games-metadata.
type GameMeta struct {
	ID     string `json:"id"`
	White  string `json:"white"`
	Black  string `json:"black"`
	Date   string `json:"date"`
	Result string `json:"result"`
}

// Game is the body of GET game and GET game?id=.
type Game struct {
	GameMeta
	FEN     string      `json:"fen,omitempty"`
	Moves   []LineEntry `json:"moves"`
	Comment string      `json:"comment,omitempty"`
}

// Position is the single-position snapshot returned by info, next-move,
// prev-move and goto-move.
type Position struct {
	FEN             string `json:"fen"`
	SAN             string `json:"san,omitempty"`
	FullMoveCounter int    `json:"full_move_counter,omitempty"`
	ActiveColor     string `json:"active_color,omitempty"`
	Comment         string `json:"comment,omitempty"`
}
