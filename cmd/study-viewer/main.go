package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/cheese-study/internal/config"
	"github.com/park285/cheese-study/internal/obslog"
	"github.com/park285/cheese-study/internal/studybuilder"
	"github.com/park285/cheese-study/internal/viewer"
)

func main() {
	var opts studybuilder.Options
	flag.StringVar(&opts.Mode, "mode", studybuilder.ModeJournal, "drill | opening | endgame | journal")
	flag.StringVar(&opts.GameID, "game", "", "journal game id (default: the server's current game)")
	flag.StringVar(&opts.Filter, "filter", "", "drill tags")
	flag.StringVar(&opts.StartFEN, "fen", "", "trainer start position")
	flag.StringVar(&opts.Player, "player", "", "trainer color: w | b")
	addr := flag.String("addr", "", "listen address (default: viewer_addr from config)")
	flag.Parse()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnvWith(obslog.Defaults{Console: true}); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := studybuilder.New(ctx, cfg, opts.Mode, logger)
	if err != nil {
		logger.Fatal("init_failed", zap.Error(err))
	}
	defer func() { _ = deps.Close() }()

	session, err := deps.Build(ctx, opts)
	if err != nil {
		logger.Fatal("session_build_failed", zap.String("mode", opts.Mode), zap.Error(err))
	}

	v := viewer.New(session, deps.Store, logger)
	defer v.Close()

	listen := cfg.ViewerAddr
	if *addr != "" {
		listen = *addr
	}
	srv := &http.Server{
		Addr:              listen,
		Handler:           v.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		v.Close()
		_ = srv.Shutdown(sctx)
	}()

	logger.Info("viewer_listening", zap.String("addr", listen), zap.String("mode", opts.Mode))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("viewer_stopped", zap.Error(err))
	}
}
