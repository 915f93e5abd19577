// Package viewer serves the current study view to a browser: a PNG of the
// board, the view as JSON, key and click endpoints, and a websocket that
// pushes every change.
package viewer

import (
	"context"
	_ "embed"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-study/internal/boardview"
	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/glue"
	"github.com/park285/cheese-study/internal/obslog"
)

//go:embed index.html
var indexHTML []byte

// Server routes browser requests to a session and its view store.
type Server struct {
	session glue.Session
	store   *glue.Store[glue.View]
	hub     *glue.Hub
	logger  *zap.Logger

	unsubscribe func()
}

// New connects the hub to the store. Close releases both.
func New(session glue.Session, store *glue.Store[glue.View], logger *zap.Logger) *Server {
	if logger == nil {
		logger = obslog.L()
	}
	s := &Server{session: session, store: store, logger: logger}
	s.hub = glue.NewHub(
		glue.WithInbound(s.inbound),
		glue.WithHubLogger(logger),
	)
	s.unsubscribe = store.Subscribe(func(v glue.View) {
		if err := s.hub.Broadcast("view", v); err != nil {
			s.logger.Debug("viewer_broadcast_skipped", zap.Error(err))
		}
	})
	_ = s.hub.Broadcast("view", store.Get())
	return s
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.index)
	mux.HandleFunc("/board.png", s.boardPNG)
	mux.HandleFunc("/state", s.state)
	mux.HandleFunc("/key", s.key)
	mux.HandleFunc("/click", s.click)
	mux.HandleFunc("/comment", s.comment)
	mux.Handle("/ws", s.hub)
	return accessLog(s.logger, mux)
}

// Close stops broadcasting and disconnects browsers.
func (s *Server) Close() {
	s.unsubscribe()
	s.hub.Close()
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) boardPNG(w http.ResponseWriter, r *http.Request) {
	v := s.store.Get()
	img, err := boardview.RenderPNG(r.Context(), v.Drawable(), boardview.PNGOptions{Title: v.Title, Status: v.Status})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img)
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Get())
}

func (s *Server) key(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("key"))
	if name == "" {
		writeError(w, http.StatusBadRequest, errMissing("key"))
		return
	}
	handled, err := s.session.HandleKey(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"handled": handled, "view": s.store.Get()})
}

func (s *Server) click(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sq, err := fen.ParseSquare(r.URL.Query().Get("square"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := glue.Click(r.Context(), s.session, sq); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Get())
}

func (s *Server) comment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	c, ok := s.session.(glue.Commenter)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 16<<10))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := c.Comment(r.Context(), strings.TrimSpace(string(body))); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Get())
}

func (s *Server) inbound(ctx context.Context, msg glue.Inbound) {
	var err error
	switch msg.Type {
	case "key":
		_, err = s.session.HandleKey(ctx, msg.Key)
	case "click":
		var sq fen.Square
		if sq, err = fen.ParseSquare(msg.Square); err == nil {
			err = glue.Click(ctx, s.session, sq)
		}
	default:
		s.logger.Debug("viewer_inbound_unknown", zap.String("type", msg.Type))
		return
	}
	if err != nil {
		s.logger.Debug("viewer_inbound_failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

type errMissing string

func (e errMissing) Error() string { return "missing " + string(e) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLog(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("viewer_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)),
		)
	})
}
