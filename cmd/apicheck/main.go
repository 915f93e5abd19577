package main

import (
	"context"
	"log"
	"time"

	"github.com/park285/cheese-study/internal/config"
	"github.com/park285/cheese-study/internal/fen"
	"github.com/park285/cheese-study/internal/studyapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.RequireBackend(); err != nil {
		log.Fatal(err)
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if cfg.XUserID != "" {
			m["X-User-Id"] = cfg.XUserID
		}
		if cfg.XSessionID != "" {
			m["X-Session-Id"] = cfg.XSessionID
		}
		return m
	}
	client := studyapi.NewClient(cfg.BaseURL,
		studyapi.WithHeaderProvider(headers),
		studyapi.WithTimeout(cfg.Timeout),
		studyapi.WithRetry(1),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	failed := false
	pos, err := client.Info(ctx)
	if err != nil {
		failed = true
		log.Printf("/info error: %v", err)
	} else if _, perr := fen.ParsePosition(pos.FEN); perr != nil {
		failed = true
		log.Printf("/info returned a bad FEN %q: %v", pos.FEN, perr)
	} else {
		log.Printf("/info ok: fen=%s", pos.FEN)
	}

	metas, err := client.GamesMetadata(ctx)
	if err != nil {
		failed = true
		log.Printf("/games-metadata error: %v", err)
	} else {
		log.Printf("/games-metadata ok: %d games", len(metas))
	}

	game, err := client.CurrentGame(ctx)
	if err != nil {
		failed = true
		log.Printf("/game error: %v", err)
	} else {
		log.Printf("/game ok: id=%s %s - %s, %d positions", game.ID, game.White, game.Black, len(game.Moves))
	}

	if failed {
		log.Fatal("backend check failed")
	}
}
