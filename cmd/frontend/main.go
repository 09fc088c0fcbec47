// Package main runs the Mordor frontend over Telnet and WebSocket. Each
// connection plays one game session against the remote game server.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mordor/internal/config"
	"github.com/cory-johannsen/mordor/internal/content"
	"github.com/cory-johannsen/mordor/internal/frontend/handlers"
	"github.com/cory-johannsen/mordor/internal/frontend/telnet"
	"github.com/cory-johannsen/mordor/internal/frontend/web"
	"github.com/cory-johannsen/mordor/internal/gameapi"
	"github.com/cory-johannsen/mordor/internal/observability"
	"github.com/cory-johannsen/mordor/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
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
	acceptor := telnet.NewAcceptor(cfg.Telnet, handler, logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("telnet", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	if cfg.Web.Enabled {
		ws := web.NewServer(cfg.Web, handler, logger)
		lifecycle.Add("websocket", &server.FuncService{
			StartFn: ws.ListenAndServe,
			StopFn:  ws.Stop,
		})
	}

	logger.Info("frontend initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.Bool("web_enabled", cfg.Web.Enabled),
		zap.String("web_addr", cfg.Web.Addr()),
		zap.String("gameserver_url", cfg.GameServer.BaseURL),
		zap.Int("races", len(races)),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
