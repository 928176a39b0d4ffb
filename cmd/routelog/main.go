package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MadlinksCoding/routelog/internal/config"
	"github.com/MadlinksCoding/routelog/internal/logger"
	"github.com/MadlinksCoding/routelog/internal/route"
	"github.com/MadlinksCoding/routelog/internal/server"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	engine, err := logger.New(cfg, nil)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Logging.Routes != "" {
		w := route.NewWatcher(engine.Resolver(), cfg.Logging.Routes,
			zerolog.New(os.Stderr).With().Timestamp().Str("component", "routewatch").Logger())
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Printf("route watcher exited: %v", err)
			}
		}()
	}

	srv := server.New(cfg, engine)
	if err := srv.Start(ctx); err != nil && err != http.ErrServerClosed {
		log.Printf("server exited: %v", err)
		os.Exit(1)
	}
}
