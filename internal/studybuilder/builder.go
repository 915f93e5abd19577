// Package studybuilder wires the configured dependencies into a front-end
// session for one of the study modes.
package studybuilder

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-study/internal/config"
	"github.com/park285/cheese-study/internal/drill"
	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/glue"
	"github.com/park285/cheese-study/internal/journal"
	"github.com/park285/cheese-study/internal/linecache"
	"github.com/park285/cheese-study/internal/msgcat"
	"github.com/park285/cheese-study/internal/navigator"
	"github.com/park285/cheese-study/internal/studyapi"
	"github.com/park285/cheese-study/internal/trainer"
)

// Modes accepted by Build.
const (
	ModeDrill   = "drill"
	ModeOpening = "opening"
	ModeEndgame = "endgame"
	ModeJournal = "journal"
)

// Options select the session.
type Options struct {
	Mode     string
	GameID   string // journal; empty loads the current game
	Filter   string // drill tags, see drill.ParseFilter
	StartFEN string // trainer; empty means the standard start (opening) or the server position (endgame)
	Player   string // trainer; overrides the configured color
}

type Deps struct {
	Config *config.AppConfig
	Msgs   *msgcat.Catalog
	Store  *glue.Store[glue.View]
	Client *studyapi.Client // nil in drill mode
	Redis  *redis.Client    // nil without REDIS_URL

	logger *zap.Logger
	stop   []func()
}

func headerProvider(cfg *config.AppConfig) studyapi.HeaderProvider {
	return func() map[string]string {
		h := map[string]string{}
		if cfg.XUserID != "" {
			h["X-User-Id"] = cfg.XUserID
		}
		if cfg.XSessionID != "" {
			h["X-Session-Id"] = cfg.XSessionID
		}
		return h
	}
}

// New prepares the shared dependencies. The backend client and the Redis line
// cache are only set up for modes that talk to the server.
func New(ctx context.Context, cfg *config.AppConfig, mode string, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("messages: %w", err)
	}
	d := &Deps{Config: cfg, Msgs: msgs, Store: glue.NewStore(glue.View{}), logger: logger}
	if mode == ModeDrill {
		return d, nil
	}

	if err := cfg.RequireBackend(); err != nil {
		return nil, err
	}
	d.Client = studyapi.NewClient(cfg.BaseURL,
		studyapi.WithHeaderProvider(headerProvider(cfg)),
		studyapi.WithTimeout(cfg.Timeout),
		studyapi.WithRetry(cfg.RetryMax),
		studyapi.WithLogger(logger),
	)
	if mode == ModeJournal && strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err := linecache.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init line cache: %w", err)
		}
		d.Redis = rdb
	}
	return d, nil
}

// Publish feeds a view into the store, dropping stale notifications.
func (d *Deps) Publish(v glue.View) { d.Store.Dispatch(glue.Latest(v)) }

// Build creates and starts the session for opts.Mode and publishes its first view.
func (d *Deps) Build(ctx context.Context, opts Options) (glue.Session, error) {
	var (
		s   glue.Session
		err error
	)
	switch opts.Mode {
	case ModeDrill:
		s, err = d.buildDrill(opts)
	case ModeOpening, ModeEndgame:
		s, err = d.buildTrainer(ctx, opts)
	case ModeJournal:
		s, err = d.buildJournal(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown mode %q", opts.Mode)
	}
	if err != nil {
		return nil, err
	}
	d.Publish(s.View())
	d.logger.Info("session_built", zap.String("mode", opts.Mode))
	return s, nil
}

func (d *Deps) buildDrill(opts Options) (glue.Session, error) {
	var (
		cat *drill.Catalog
		err error
	)
	if p := strings.TrimSpace(d.Config.DrillCatalog); p != "" {
		cat, err = drill.LoadCatalog(p)
	} else {
		cat, err = drill.DefaultCatalog()
	}
	if err != nil {
		return nil, err
	}
	drills := cat.Drills()
	if f := strings.TrimSpace(opts.Filter); f != "" {
		drills = cat.Filter(drill.ParseFilter(f))
	}
	if len(drills) == 0 {
		return nil, fmt.Errorf("no drill matches %q", opts.Filter)
	}
	s, err := glue.NewDrillSession(drills, d.Msgs, d.Publish,
		drill.WithRevealDelays(d.Config.FirstReveal, d.Config.NextReveal),
		drill.WithLogger(d.logger),
	)
	if err != nil {
		return nil, err
	}
	d.stop = append(d.stop, s.Stop)
	return s, nil
}

func (d *Deps) buildTrainer(ctx context.Context, opts Options) (glue.Session, error) {
	mode, _ := trainer.ParseMode(opts.Mode)
	colorName := d.Config.PlayerColor
	if opts.Player != "" {
		colorName = opts.Player
	}
	player, err := fen.ParseColor(colorName)
	if err != nil {
		return nil, err
	}
	start := strings.TrimSpace(opts.StartFEN)
	if start == "" && mode == trainer.ModeEndgame {
		pos, err := d.Client.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("load endgame position: %w", err)
		}
		start = pos.FEN
	}
	topts := []trainer.Option{
		trainer.WithMode(mode),
		trainer.WithPlayer(player),
		trainer.WithOpponentDelay(d.Config.OpponentDelay),
		trainer.WithLogger(d.logger),
		trainer.WithObserver(func(st trainer.State) { d.Publish(glue.TrainerView(st, d.Msgs)) }),
	}
	if start != "" {
		topts = append(topts, trainer.WithStartFEN(start))
	}
	t, err := trainer.New(studyapi.NewTrainerBackend(d.Client, mode), topts...)
	if err != nil {
		return nil, err
	}
	t.Start(ctx)
	d.stop = append(d.stop, t.Stop)
	return glue.TrainerSession{T: t, Msgs: d.Msgs}, nil
}

func (d *Deps) buildJournal(ctx context.Context, opts Options) (glue.Session, error) {
	var lines navigator.Backend = studyapi.NewNavigatorBackend(d.Client)
	if d.Redis != nil {
		lines = linecache.New(d.Redis, lines,
			linecache.WithTTL(d.Config.LineCacheTTL),
			linecache.WithLogger(d.logger),
		)
	}
	backend := studyapi.NewJournalBackend(d.Client, lines)
	j := journal.New(backend,
		journal.WithLogger(d.logger),
		journal.WithFlipped(d.Config.PlayerColor == "b"),
		journal.WithObserver(func(st journal.State) { d.Publish(glue.JournalView(st, d.Msgs)) }),
	)
	if err := j.Load(ctx, opts.GameID); err != nil {
		return nil, err
	}
	return glue.JournalSession{J: j, Msgs: d.Msgs}, nil
}

// Close stops pending timers and releases connections.
func (d *Deps) Close() error {
	for _, fn := range d.stop {
		fn()
	}
	d.stop = nil
	if d.Redis != nil {
		return d.Redis.Close()
	}
	return nil
}
