package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/glue"
)

const fenAfterE4 = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"

type fakeSession struct {
	mu      sync.Mutex
	store   *glue.Store[glue.View]
	view    glue.View
	keys    []string
	pieces  []fen.Square
	empties []fen.Square
	comment string
}

func newFake(store *glue.Store[glue.View]) *fakeSession {
	s := &fakeSession{store: store, view: glue.View{Source: "fake", Seq: 1, FEN: fen.StartFEN, Title: "Test"}}
	store.Set(s.view)
	return s
}

func (s *fakeSession) View() glue.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *fakeSession) HandleKey(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	s.keys = append(s.keys, key)
	if key == "x" {
		s.mu.Unlock()
		return false, errors.New("busy")
	}
	if key != "ArrowRight" {
		s.mu.Unlock()
		return false, nil
	}
	s.view.Seq++
	s.view.FEN = fenAfterE4
	v := s.view
	s.mu.Unlock()
	s.store.Dispatch(glue.Latest(v))
	return true, nil
}

func (s *fakeSession) ClickPiece(_ context.Context, _ fen.Color, sq fen.Square) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pieces = append(s.pieces, sq)
	return nil
}

func (s *fakeSession) ClickSquare(_ context.Context, sq fen.Square) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.empties = append(s.empties, sq)
	return nil
}

func (s *fakeSession) Comment(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comment = text
	return nil
}

func (s *fakeSession) snapshot() (keys []string, pieces, empties []fen.Square) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...), append([]fen.Square(nil), s.pieces...), append([]fen.Square(nil), s.empties...)
}

func newTestServer(t *testing.T) (*fakeSession, *glue.Store[glue.View], *httptest.Server) {
	t.Helper()
	store := glue.NewStore(glue.View{})
	sess := newFake(store)
	v := New(sess, store, nil)
	srv := httptest.NewServer(v.Handler())
	t.Cleanup(func() {
		v.Close()
		srv.Close()
	})
	return sess, store, srv
}

func TestBoardPNGAndState(t *testing.T) {
	_, _, srv := newTestServer(t)

	res, err := http.Get(srv.URL + "/board.png")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
	_, err = png.Decode(res.Body)
	require.NoError(t, err)

	res2, err := http.Get(srv.URL + "/state")
	require.NoError(t, err)
	defer res2.Body.Close()
	var v glue.View
	require.NoError(t, json.NewDecoder(res2.Body).Decode(&v))
	assert.Equal(t, "Test", v.Title)
	assert.Equal(t, fen.StartFEN, v.FEN)
}

func TestKeyEndpoint(t *testing.T) {
	sess, store, srv := newTestServer(t)

	res, err := http.Get(srv.URL + "/key?key=ArrowRight")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)

	res, err = http.Post(srv.URL+"/key?key=ArrowRight", "text/plain", nil)
	require.NoError(t, err)
	var out struct {
		Handled bool      `json:"handled"`
		View    glue.View `json:"view"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	res.Body.Close()
	assert.True(t, out.Handled)
	assert.Equal(t, fenAfterE4, out.View.FEN)
	assert.Equal(t, fenAfterE4, store.Get().FEN)

	res, err = http.Post(srv.URL+"/key?key=x", "text/plain", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res, err = http.Post(srv.URL+"/key", "text/plain", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	keys, _, _ := sess.snapshot()
	assert.Equal(t, []string{"ArrowRight", "x"}, keys)
}

func TestClickAndComment(t *testing.T) {
	sess, _, srv := newTestServer(t)

	for _, sq := range []string{"e2", "e4"} {
		res, err := http.Post(srv.URL+"/click?square="+sq, "text/plain", nil)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
	}
	res, err := http.Post(srv.URL+"/click?square=z9", "text/plain", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	_, pieces, empties := sess.snapshot()
	assert.Equal(t, []fen.Square{fen.MustSquare("e2")}, pieces)
	assert.Equal(t, []fen.Square{fen.MustSquare("e4")}, empties)

	res, err = http.Post(srv.URL+"/comment", "text/plain", strings.NewReader("  solid  "))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	sess.mu.Lock()
	assert.Equal(t, "solid", sess.comment)
	sess.mu.Unlock()
}

func TestIndex(t *testing.T) {
	_, _, srv := newTestServer(t)
	res, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(res.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "/ws")

	res2, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	res2.Body.Close()
	assert.Equal(t, http.StatusNotFound, res2.StatusCode)
}

func TestWebsocketPushesViewsAndRoutesKeys(t *testing.T) {
	sess, _, srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var env struct {
		Type string    `json:"type"`
		Data glue.View `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &env))
	assert.Equal(t, "view", env.Type)
	assert.Equal(t, fen.StartFEN, env.Data.FEN)

	require.NoError(t, wsjson.Write(ctx, conn, glue.Inbound{Type: "key", Key: "ArrowRight"}))
	require.NoError(t, wsjson.Read(ctx, conn, &env))
	assert.Equal(t, fenAfterE4, env.Data.FEN)

	require.NoError(t, wsjson.Write(ctx, conn, glue.Inbound{Type: "click", Square: "e7"}))
	require.Eventually(t, func() bool {
		_, pieces, _ := sess.snapshot()
		return len(pieces) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
