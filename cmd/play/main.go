// Package main plays a single Mordor session on the local terminal.
// Logs go to a file so they do not interleave with the game text.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/cory-johannsen/mordor/internal/config"
	"github.com/cory-johannsen/mordor/internal/content"
	"github.com/cory-johannsen/mordor/internal/frontend/console"
	"github.com/cory-johannsen/mordor/internal/frontend/handlers"
	"github.com/cory-johannsen/mordor/internal/gameapi"
	"github.com/cory-johannsen/mordor/internal/observability"
	"github.com/cory-johannsen/mordor/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (defaults and MORDOR_ env when empty)")
	logPath := flag.String("log", "mordor-play.log", "log file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLoggerTo(cfg.Logging, *logPath)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	races, err := content.LoadRaces(cfg.Session.RacesDir)
	if err != nil {
		logger.Fatal("loading races", zap.Error(err))
	}

	api := gameapi.NewClient(cfg.GameServer.BaseURL, cfg.GameServer.RequestTimeout, logger)
	handler := handlers.NewGameHandler(api, races, cfg.Reveal, cfg.Session, logger)
	tty := console.New(os.Stdin, os.Stdout)
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		tty = console.NewPlain(os.Stdin, os.Stdout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("console", &server.FuncService{
		StartFn: func() error {
			err := handler.Run(ctx, tty, "console")
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
		StopFn: cancel,
	})

	if err := lifecycle.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "mordor:", err)
		logger.Error("session error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
