package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	appcfg "github.com/park285/cheese-study/internal/config"
	"github.com/park285/cheese-study/internal/obslog"
	"github.com/park285/cheese-study/internal/studybuilder"
	"github.com/park285/cheese-study/internal/tui"
)

func main() {
	var opts studybuilder.Options
	flag.StringVar(&opts.Mode, "mode", studybuilder.ModeDrill, "drill | opening | endgame | journal")
	flag.StringVar(&opts.GameID, "game", "", "journal game id (default: the server's current game)")
	flag.StringVar(&opts.Filter, "filter", "", `drill tags, e.g. "black + sicilian, white"`)
	flag.StringVar(&opts.StartFEN, "fen", "", "trainer start position")
	flag.StringVar(&opts.Player, "player", "", "trainer color: w | b")
	flag.Parse()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	// logs go to the file only; the terminal belongs to the UI
	if err := obslog.InitFromEnvWith(obslog.Defaults{Console: false}); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := studybuilder.New(ctx, cfg, opts.Mode, logger)
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer func() { _ = deps.Close() }()

	session, err := deps.Build(ctx, opts)
	if err != nil {
		logger.Error("session_build_failed", zap.String("mode", opts.Mode), zap.Error(err))
		fmt.Fprintf(os.Stderr, "cannot start %s: %v\n", opts.Mode, err)
		os.Exit(1)
	}

	if err := tui.New(ctx, session, deps.Store).Run(); err != nil {
		logger.Error("tui_exit", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
