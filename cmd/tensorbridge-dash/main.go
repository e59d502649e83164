package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gradientworks/tensorbridge/internal/dashboard"
	"github.com/gradientworks/tensorbridge/internal/engine"
	"github.com/gradientworks/tensorbridge/internal/infrastructure/config"
	"github.com/gradientworks/tensorbridge/internal/infrastructure/logging"
	"github.com/gradientworks/tensorbridge/internal/infrastructure/monitoring"
	"github.com/gradientworks/tensorbridge/internal/shared/ports"
	"github.com/gradientworks/tensorbridge/internal/workspace"
)

func main() {
	cfg := config.LoadOrDefault()

	port := flag.Int("port", cfg.Dashboard.Port, "Dashboard port (0 picks a free one)")
	host := flag.String("host", cfg.Dashboard.Host, "Dashboard host")
	engineAddr := flag.String("engine", cfg.Engine.Address, "Engine daemon address")
	flag.Parse()

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if *port == 0 {
		p, err := ports.Free()
		if err != nil {
			log.Fatalf("Failed to pick a port: %v", err)
		}
		*port = p
	}

	metrics, registry := monitoring.New()

	eng := engine.NewRemote(*engineAddr,
		engine.WithTimeout(cfg.Engine.Timeout),
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
	)
	ws := workspace.New(eng, workspace.WithLogger(logger))

	srv := dashboard.New(dashboard.Config{Host: *host, Port: *port}, ws, logger,
		dashboard.WithInstrumentation(metrics, registry),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Dashboard error: %v", err)
	}
}
