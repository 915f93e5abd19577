// Package studyapi is the JSON client for the study backend.
package studyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/obslog"
	"github.com/park285/cheese-study/pkg/studydto"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

const requestIDHeader = "X-Request-Id"

var (
	// ErrEmptyResponse is returned when the backend answers with a falsy body
	// (empty, null, false, 0, "" or {}).
	ErrEmptyResponse = errors.New("studyapi: empty response")
	// ErrIllegalMove is returned by Move when the backend rejects the move.
	ErrIllegalMove = errors.New("studyapi: illegal move")
)

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("study api error: status=%d body=%s", e.Status, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool { return shouldRetryStatus(e.Status) }

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider
	logger  *zap.Logger

	defaultTimeout time.Duration
	retryMax       int
	retryBase      time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the total number of attempts for idempotent requests.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithRetryBackoff sets the first backoff step; later steps double.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryBase = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
		retryBase:      100 * time.Millisecond,
		logger:         obslog.L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// Info fetches the position the backend currently has loaded.
func (c *Client) Info(ctx context.Context) (*studydto.Position, error) {
	var out studydto.Position
	if err := c.doJSON(ctx, call{method: fasthttp.MethodGet, path: "/info", out: &out, idempotent: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentGame fetches the backend's current game.
func (c *Client) CurrentGame(ctx context.Context) (*studydto.Game, error) {
	return c.Game(ctx, "")
}

// Game fetches a game by id. An empty id means the current game.
func (c *Client) Game(ctx context.Context, id string) (*studydto.Game, error) {
	var q [][2]string
	if id != "" {
		q = append(q, [2]string{"id", id})
	}
	var out studydto.Game
	if err := c.doJSON(ctx, call{method: fasthttp.MethodGet, path: "/game", query: q, out: &out, idempotent: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GamesMetadata(ctx context.Context) ([]studydto.GameMeta, error) {
	var out []studydto.GameMeta
	err := c.doJSON(ctx, call{method: fasthttp.MethodGet, path: "/games-metadata", out: &out, idempotent: true})
	if errors.Is(err, ErrEmptyResponse) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Line(ctx context.Context, id string) (*studydto.Line, error) {
	var out studydto.Line
	q := [][2]string{{"id", id}}
	if err := c.doJSON(ctx, call{method: fasthttp.MethodGet, path: "/line", query: q, out: &out, idempotent: true}); err != nil {
		return nil, err
	}
	if out.ID == "" {
		out.ID = id
	}
	return &out, nil
}

// Move asks the backend to play a move. A falsy answer is ErrIllegalMove.
func (c *Client) Move(ctx context.Context, req studydto.MoveRequest) (*studydto.MoveResult, error) {
	var out studydto.MoveResult
	err := c.doJSON(ctx, call{method: fasthttp.MethodPost, path: "/move", in: req, out: &out})
	if errors.Is(err, ErrEmptyResponse) {
		return nil, ErrIllegalMove
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) NextMove(ctx context.Context) (*studydto.Position, error) {
	return c.step(ctx, "/next-move")
}

func (c *Client) PrevMove(ctx context.Context) (*studydto.Position, error) {
	return c.step(ctx, "/prev-move")
}

func (c *Client) step(ctx context.Context, path string) (*studydto.Position, error) {
	var out studydto.Position
	if err := c.doJSON(ctx, call{method: fasthttp.MethodPost, path: path, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// GotoMove jumps the backend's game to the position after the given move.
func (c *Client) GotoMove(ctx context.Context, fullMoveCounter int, active fen.Color) (*studydto.Game, error) {
	q := [][2]string{
		{"fullMoveCounter", strconv.Itoa(fullMoveCounter)},
		{"activeColor", active.String()},
	}
	var out studydto.Game
	if err := c.doJSON(ctx, call{method: fasthttp.MethodPost, path: "/goto-move", query: q, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// NewAnnotation stores a variation with a comment. Any 2xx is an acknowledgement.
func (c *Client) NewAnnotation(ctx context.Context, req studydto.AnnotationRequest) error {
	if req.SANSeq == nil {
		req.SANSeq = []string{}
	}
	return c.doJSON(ctx, call{method: fasthttp.MethodPost, path: "/new-annotation", in: req})
}

// Engine asks the engine for a reply in the given position.
func (c *Client) Engine(ctx context.Context, fenStr string) (*studydto.Reply, error) {
	return c.reply(ctx, "/engine", fenStr)
}

// OpponentMove asks for the repertoire reply in the given position.
func (c *Client) OpponentMove(ctx context.Context, fenStr string) (*studydto.Reply, error) {
	return c.reply(ctx, "/opponent-move", fenStr)
}

// OpponentMoves asks for every stored reply in the given position.
func (c *Client) OpponentMoves(ctx context.Context, fenStr string) ([]studydto.Reply, error) {
	var out studydto.Replies
	err := c.doJSON(ctx, call{method: fasthttp.MethodPost, path: "/opponent-moves", in: studydto.FENRequest{FEN: fenStr}, out: &out})
	if errors.Is(err, ErrEmptyResponse) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Moves, nil
}

func (c *Client) reply(ctx context.Context, path, fenStr string) (*studydto.Reply, error) {
	var out studydto.Reply
	if err := c.doJSON(ctx, call{method: fasthttp.MethodPost, path: path, in: studydto.FENRequest{FEN: fenStr}, out: &out}); err != nil {
		return nil, err
	}
	if out.FEN == "" {
		return nil, ErrEmptyResponse
	}
	return &out, nil
}

// Note stores the note for a position.
func (c *Client) Note(ctx context.Context, fenStr, note string) error {
	return c.doJSON(ctx, call{method: fasthttp.MethodPost, path: "/note", in: studydto.NoteRequest{FEN: fenStr, Note: note}})
}

type call struct {
	method     string
	path       string
	query      [][2]string
	in         any
	out        any
	idempotent bool
}

func (c *Client) doJSON(ctx context.Context, cl call) error {
	var payload []byte
	if cl.in != nil {
		b, err := json.Marshal(cl.in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = b
	}
	requestID := uuid.NewString()

	attempt := func() error { return c.once(ctx, cl, payload, requestID) }
	if !cl.idempotent || c.retryMax <= 1 {
		return attempt()
	}
	return retry.Do(
		attempt,
		retry.Context(ctx),
		retry.Attempts(uint(c.retryMax)),
		retry.Delay(c.retryBase),
		retry.MaxDelay(32*c.retryBase),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("study_api_retry",
				zap.String("path", cl.path),
				zap.String("request_id", requestID),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
}

func (c *Client) once(ctx context.Context, cl call, payload []byte, requestID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(cl.method)
	req.SetRequestURI(c.baseURL + cl.path)
	for _, kv := range cl.query {
		req.URI().QueryArgs().Add(kv[0], kv[1])
	}
	req.Header.SetContentType("application/json;charset=utf-8")
	req.Header.Set(requestIDHeader, requestID)

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if payload != nil {
		req.SetBody(payload)
	}

	start := time.Now()
	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return &transportError{err: err}
	}

	status := resp.StatusCode()
	c.logger.Debug("study_api_request",
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", requestID),
	)
	if status < 200 || status >= 300 {
		return &APIError{Status: status, Body: truncate(string(resp.Body()), 512)}
	}

	body := resp.Body()
	if cl.out == nil {
		return nil
	}
	if isFalsy(body) {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(body, cl.out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// transportError marks failures before any response arrived.
type transportError struct{ err error }

func (e *transportError) Error() string { return "request failed: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

func isFalsy(body []byte) bool {
	switch string(bytes.TrimSpace(body)) {
	case "", "null", "false", "0", `""`, "{}":
		return true
	default:
		return false
	}
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
