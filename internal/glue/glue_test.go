package glue

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type counter struct {
	Seq   uint64
	Label string
}

func TestStoreDispatchAndSubscribe(t *testing.T) {
	s := NewStore(counter{Label: "init"})
	var got []counter
	unsub := s.Subscribe(func(c counter) { got = append(got, c) })

	v := s.Dispatch(func(c counter) counter { c.Seq++; return c })
	assert.Equal(t, uint64(1), v.Seq)
	s.Set(counter{Seq: 7, Label: "set"})
	assert.Equal(t, counter{Seq: 7, Label: "set"}, s.Get())

	unsub()
	unsub()
	s.Dispatch(func(c counter) counter { c.Seq++; return c })

	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, "set", got[1].Label)
	assert.Equal(t, uint64(8), s.Get().Seq)
}

func TestStoreDeliversInDispatchOrder(t *testing.T) {
	s := NewStore(0)
	var (
		mu   sync.Mutex
		seen []int
	)
	s.Subscribe(func(v int) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Dispatch(func(v int) int { return v + 1 })
		}()
	}
	wg.Wait()

	require.Len(t, seen, 50)
	for i, v := range seen {
		assert.Equal(t, i+1, v)
	}
}

func dialHub(t *testing.T, h *Hub) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubSendsLatestThenBroadcasts(t *testing.T) {
	h := NewHub()
	require.NoError(t, h.Broadcast("state", counter{Seq: 1, Label: "first"}))

	conn, ctx := dialHub(t, h)

	var env Envelope
	require.NoError(t, wsjson.Read(ctx, conn, &env))
	assert.Equal(t, "state", env.Type)
	assert.Equal(t, uint64(1), env.Seq)
	var c counter
	require.NoError(t, json.Unmarshal(env.Data, &c))
	assert.Equal(t, "first", c.Label)

	waitClients(t, h, 1)
	require.NoError(t, h.Broadcast("state", counter{Seq: 2, Label: "second"}))
	require.NoError(t, wsjson.Read(ctx, conn, &env))
	assert.Equal(t, uint64(2), env.Seq)
	require.NoError(t, json.Unmarshal(env.Data, &c))
	assert.Equal(t, "second", c.Label)
}

func TestHubInbound(t *testing.T) {
	got := make(chan Inbound, 1)
	h := NewHub(WithInbound(func(_ context.Context, msg Inbound) { got <- msg }))
	conn, ctx := dialHub(t, h)

	require.NoError(t, wsjson.Write(ctx, conn, Inbound{Type: "key", Key: "ArrowRight"}))
	select {
	case msg := <-got:
		assert.Equal(t, Inbound{Type: "key", Key: "ArrowRight"}, msg)
	case <-ctx.Done():
		t.Fatal("no inbound message")
	}
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	conn, ctx := dialHub(t, h)
	waitClients(t, h, 1)

	h.Close()
	assert.Equal(t, 0, h.Clients())
	assert.Error(t, h.Broadcast("state", counter{}))

	_, _, err := conn.Read(ctx)
	assert.Error(t, err)
}
