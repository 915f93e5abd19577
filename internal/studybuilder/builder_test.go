package studybuilder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-study/internal/config"
	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/linecache"
	"github.com/park285/cheese-study/internal/navigator"
	"github.com/park285/cheese-study/pkg/studydto"
)

const (
	fenAfterE4  = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	endgameFEN  = "8/8/8/8/8/8/4P3/4K2k w - - 0 1"
	testTimeout = 2 * time.Second
)

func testConfig(baseURL string) *config.AppConfig {
	return &config.AppConfig{
		BaseURL:       baseURL,
		Timeout:       testTimeout,
		RetryMax:      1,
		LineCacheTTL:  time.Hour,
		PlayerColor:   "w",
		OpponentDelay: time.Hour,
	}
}

func studyServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/game", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, studydto.Game{
			GameMeta: studydto.GameMeta{ID: r.URL.Query().Get("id"), White: "Morphy", Black: "Anderssen"},
			Moves:    []studydto.LineEntry{{FEN: fen.StartFEN}, {FEN: fenAfterE4, SAN: "e4"}},
		})
	})
	mux.HandleFunc("/games-metadata", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []studydto.GameMeta{{ID: "g1", White: "Morphy", Black: "Anderssen"}})
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, studydto.Position{FEN: endgameFEN})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBuildDrillOffline(t *testing.T) {
	cfg := testConfig("")
	d, err := New(context.Background(), cfg, ModeDrill, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	assert.Nil(t, d.Client)

	s, err := d.Build(context.Background(), Options{Mode: ModeDrill, Filter: "french"})
	require.NoError(t, err)
	assert.Equal(t, "French Defense (1/1)", s.View().Title)
	assert.Equal(t, "French Defense (1/1)", d.Store.Get().Title)

	_, err = d.Build(context.Background(), Options{Mode: ModeDrill, Filter: "najdorf"})
	assert.Error(t, err)
	_, err = d.Build(context.Background(), Options{Mode: "puzzle"})
	assert.Error(t, err)
}

func TestBackendModesNeedBaseURL(t *testing.T) {
	_, err := New(context.Background(), testConfig(""), ModeJournal, nil)
	assert.ErrorIs(t, err, config.ErrNoBaseURL)
}

func TestBuildJournalWithLineCache(t *testing.T) {
	mr := miniredis.RunT(t)
	srv := studyServer(t)
	cfg := testConfig(srv.URL)
	cfg.RedisURL = "redis://" + mr.Addr()

	ctx := context.Background()
	d, err := New(ctx, cfg, ModeJournal, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	require.NotNil(t, d.Redis)

	s, err := d.Build(ctx, Options{Mode: ModeJournal, GameID: "g1"})
	require.NoError(t, err)
	v := s.View()
	assert.Equal(t, "Morphy - Anderssen", v.Title)
	assert.Equal(t, []string{"1. e4"}, v.Moves)
	assert.Equal(t, fen.StartFEN, d.Store.Get().FEN)
	assert.True(t, mr.Exists(linecache.Key(navigator.GameRef("g1"))))

	handled, err := s.HandleKey(ctx, "ArrowRight")
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, fenAfterE4, d.Store.Get().FEN)
}

func TestBuildEndgameTrainerStartsFromServerPosition(t *testing.T) {
	srv := studyServer(t)
	ctx := context.Background()
	d, err := New(ctx, testConfig(srv.URL), ModeEndgame, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	assert.Nil(t, d.Redis)

	s, err := d.Build(ctx, Options{Mode: ModeEndgame})
	require.NoError(t, err)
	v := s.View()
	assert.Equal(t, endgameFEN, v.FEN)
	assert.Equal(t, "Endgame trainer", v.Title)
	assert.Equal(t, "Your move (White).", v.Status)

	_, err = d.Build(ctx, Options{Mode: ModeOpening, Player: "purple"})
	assert.Error(t, err)
}
