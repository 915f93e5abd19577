// Package eco names the opening of a move sequence.
package eco

import (
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/park285/cheese-study/internal/fen"
)

// Opening is an ECO classification.
type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

func (o Opening) IsZero() bool { return o.Code == "" }

func (o Opening) String() string {
	if o.IsZero() {
		return ""
	}
	if o.Title == "" {
		return o.Code
	}
	return o.Code + " " + o.Title
}

var book = sync.OnceValue(func() *opening.BookECO { return opening.NewBookECO() })

// Label replays sans from rootFEN and returns the most specific opening that
// matches. Lines that do not start from the initial position, and SAN that
// does not replay, yield the zero Opening.
func Label(rootFEN string, sans []string) Opening {
	if !fen.IsStartPosition(rootFEN) || len(sans) == 0 {
		return Opening{}
	}
	game := nchess.NewGame()
	for _, san := range sans {
		san = strings.TrimSpace(san)
		if san == "" {
			return Opening{}
		}
		if err := game.PushNotationMove(san, nchess.AlgebraicNotation{}, nil); err != nil {
			return Opening{}
		}
	}
	b := book()
	if b == nil {
		return Opening{}
	}
	if o := b.Find(game.Moves()); o != nil {
		return Opening{Code: o.Code(), Title: o.Title()}
	}
	return Opening{}
}
