package tui

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/park285/cheese-study/internal/boardview"
	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/glue"
	"github.com/park285/cheese-study/internal/obslog"
)

// App lays out the board, the move list, the comment panel, a status line and
// a comment input. Keys and clicks go to the session on their own goroutine
// so network calls never block drawing.
type App struct {
	app     *tview.Application
	board   *BoardUI
	title   *tview.TextView
	moves   *tview.TextView
	comment *tview.TextView
	status  *tview.TextView
	input   *tview.InputField
	layout  *tview.Flex

	session glue.Session
	store   *glue.Store[glue.View]
	ctx     context.Context
	logger  *zap.Logger
}

// New builds the UI. The store must be the one the session publishes into.
func New(ctx context.Context, session glue.Session, store *glue.Store[glue.View]) *App {
	a := &App{
		app:     tview.NewApplication(),
		session: session,
		store:   store,
		ctx:     ctx,
		logger:  obslog.L(),
	}
	a.board = NewBoard(boardview.Handlers{
		OnPieceClick: func(c fen.Color, sq fen.Square) {
			a.async("click_piece", func() error { return a.session.ClickPiece(a.ctx, c, sq) })
		},
		OnEmptySquareClick: func(sq fen.Square) {
			a.async("click_square", func() error { return a.session.ClickSquare(a.ctx, sq) })
		},
	})

	a.title = tview.NewTextView().SetDynamicColors(true)
	a.moves = tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	a.moves.SetBorder(true).SetTitle(" Moves ")
	a.comment = tview.NewTextView().SetWrap(true).SetWordWrap(true)
	a.comment.SetBorder(true).SetTitle(" Comment ")
	a.status = tview.NewTextView().SetDynamicColors(true)
	a.input = tview.NewInputField().SetLabel("comment> ")
	a.input.SetDoneFunc(a.commentDone)

	side := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.moves, 0, 2, false).
		AddItem(a.comment, 0, 1, false)
	body := tview.NewFlex().
		AddItem(a.board.Box, 8*cellW+marginX+1, 0, true).
		AddItem(side, 0, 1, false)
	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.title, 1, 0, false).
		AddItem(body, 8*cellH+3, 0, true).
		AddItem(a.status, 2, 0, false)
	if _, ok := session.(glue.Commenter); ok {
		a.layout.AddItem(a.input, 1, 0, false)
	}

	a.app.SetRoot(a.layout, true).EnableMouse(true).SetFocus(a.board.Box)
	a.board.Box.SetInputCapture(a.handleKey)
	return a
}

// Run draws the current view, follows store updates and blocks until the
// user quits or ctx ends.
func (a *App) Run() error {
	a.render(a.store.Get())
	unsubscribe := a.store.Subscribe(func(v glue.View) {
		go a.app.QueueUpdateDraw(func() { a.render(v) })
	})
	defer unsubscribe()

	go func() {
		<-a.ctx.Done()
		a.app.Stop()
	}()
	return a.app.Run()
}

func (a *App) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	if ev.Key() == tcell.KeyRune {
		switch ev.Rune() {
		case 'q':
			a.app.Stop()
			return nil
		case '/':
			if _, ok := a.session.(glue.Commenter); ok {
				a.input.SetText(a.store.Get().Comment)
				a.app.SetFocus(a.input)
				return nil
			}
		}
	}
	key := KeyName(ev)
	if key == "" {
		return ev
	}
	a.async("key", func() error {
		_, err := a.session.HandleKey(a.ctx, key)
		return err
	})
	return nil
}

func (a *App) commentDone(k tcell.Key) {
	defer a.app.SetFocus(a.board.Box)
	if k != tcell.KeyEnter {
		return
	}
	c, ok := a.session.(glue.Commenter)
	if !ok {
		return
	}
	text := strings.TrimSpace(a.input.GetText())
	a.input.SetText("")
	a.async("comment", func() error { return c.Comment(a.ctx, text) })
}

// async runs fn off the UI goroutine. Session errors already show up in the
// published view, so they are only logged.
func (a *App) async(op string, fn func() error) {
	go func() {
		if err := fn(); err != nil {
			a.logger.Debug("tui_op_failed", zap.String("op", op), zap.Error(err))
		}
	}()
}

func (a *App) render(v glue.View) {
	a.board.SetView(v)
	a.title.SetText(fmt.Sprintf("[::b]%s[::-]  %s", tview.Escape(v.Title), tview.Escape(v.Help)))
	a.moves.SetText(FormatMoves(v.Moves, v.Current))
	a.moves.ScrollToEnd()
	a.comment.SetText(v.Comment)
	status := tview.Escape(v.Status)
	if v.Err != "" {
		status += "\n[red]" + tview.Escape(v.Err) + "[-]"
	}
	a.status.SetText(status)
}

// KeyName maps a key event to the names sessions understand: the browser key
// names for arrows, Enter and Escape, and the character for printable runes.
func KeyName(ev *tcell.EventKey) string {
	switch ev.Key() {
	case tcell.KeyLeft:
		return "ArrowLeft"
	case tcell.KeyRight:
		return "ArrowRight"
	case tcell.KeyEnter:
		return "Enter"
	case tcell.KeyEsc:
		return "Escape"
	case tcell.KeyRune:
		if r := ev.Rune(); unicode.IsPrint(r) {
			return string(r)
		}
	}
	return ""
}

// FormatMoves lays the move list out one move number per line and highlights
// the move at index current.
func FormatMoves(moves []string, current int) string {
	var b strings.Builder
	for i, m := range moves {
		if i > 0 {
			if startsNumbered(m) {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		text := tview.Escape(m)
		if i == current {
			text = "[black:yellow]" + text + "[-:-]"
		}
		b.WriteString(text)
	}
	return b.String()
}

func startsNumbered(m string) bool {
	return m != "" && m[0] >= '0' && m[0] <= '9'
}
