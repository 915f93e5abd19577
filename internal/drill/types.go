package drill

import (
	"errors"
	"fmt"

	"github.com/park285/cheese-study/internal/fen"
)

// Move is a from/to square pair as the player clicks it.
type Move struct {
	From fen.Square `json:"from"`
	To   fen.Square `json:"to"`
}

func (m Move) String() string { return m.From.Name() + m.To.Name() }

// ParseMove accepts "C7C5" or "c7-c5".
func ParseMove(s string) (Move, error) {
	clean := make([]byte, 0, 4)
	for i := 0; i < len(s); i++ {
		if c := s[i]; c != '-' && c != ' ' {
			clean = append(clean, c)
		}
	}
	if len(clean) != 4 {
		return Move{}, fmt.Errorf("invalid move %q", s)
	}
	from, err := fen.ParseSquare(string(clean[:2]))
	if err != nil {
		return Move{}, err
	}
	to, err := fen.ParseSquare(string(clean[2:]))
	if err != nil {
		return Move{}, err
	}
	return Move{From: from, To: to}, nil
}

// Frame is one exercise: the lead-in position, the question position and the
// position after the expected answer.
type Frame struct {
	Lead            string
	Question        string
	Answer          string
	ActiveColor     fen.Color
	Expected        Move
	QuestionComment string
	AnswerComment   string
}

// Drill is a named sequence of frames.
type Drill struct {
	ID     string
	Name   string
	Tags   []string
	Frames []Frame
}

// Stage of the current frame.
type Stage int

const (
	StageIdle Stage = iota
	StagePre
	StageMain
	StagePost
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StagePre:
		return "pre"
	case StageMain:
		return "main"
	case StagePost:
		return "post"
	case StageComplete:
		return "complete"
	default:
		return "idle"
	}
}

func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// State is a copy of the controller state for rendering.
type State struct {
	Seq         uint64      `json:"seq"`
	SessionID   string      `json:"session_id"`
	DrillID     string      `json:"drill_id"`
	DrillName   string      `json:"drill_name"`
	FrameIndex  int         `json:"frame_index"`
	FrameCount  int         `json:"frame_count"`
	Stage       Stage       `json:"stage"`
	FEN         string      `json:"fen"`
	ActiveColor fen.Color   `json:"active_color"`
	Selected    *fen.Square `json:"selected,omitempty"`
	Comment     string      `json:"comment,omitempty"`
	LastAttempt *Move       `json:"last_attempt,omitempty"`
	Correct     bool        `json:"correct"`
	// Flipped shows black at the bottom when the frame's solver is black, in
	// every stage. ActiveColor stays empty in PRE so nothing is clickable.
	Flipped bool `json:"flipped"`
}

// Errors
var (
	ErrNoFrames   = errors.New("drill has no frames")
	ErrWrongStage = errors.New("action not allowed in the current stage")
	ErrNotStarted = errors.New("drill session not started")
)
