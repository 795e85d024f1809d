package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pratik-mahalle/usagepulse/internal/api/handlers"
	"github.com/pratik-mahalle/usagepulse/internal/api/router"
	"github.com/pratik-mahalle/usagepulse/internal/app"
	"github.com/pratik-mahalle/usagepulse/internal/config"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/logger"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/validator"
	"github.com/pratik-mahalle/usagepulse/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	log := logger.Get()
	validator.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := app.New(ctx, cfg, log)
	if err != nil {
		log.ErrorWithErr(err, "Failed to start engine")
		os.Exit(1)
	}
	defer engine.Close()

	checks := make(map[string]handlers.Check)
	for name, check := range engine.Checks() {
		checks[name] = check
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(log, &router.Handlers{Health: handlers.NewHealthHandler(checks, log)}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr": srv.Addr,
		}).Info("Operational server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorWithErr(err, "Operational server failed")
			stop()
		}
	}()

	scanner := worker.NewAnomalyScanner(engine.Detector, cfg.Scan.Schedule, cfg.Scan.RunOnStart, log)
	if err := scanner.Start(ctx); err != nil {
		log.ErrorWithErr(err, "Anomaly scanner stopped")
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorWithErr(err, "Operational server shutdown failed")
	}
}
