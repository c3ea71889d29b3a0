package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hilicita-backend/internal/bootstrap"
	"hilicita-backend/internal/shared/config"
	"hilicita-backend/internal/shared/storage/db"
	"hilicita-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Queue.Close()

	if cfg.MigrateOnStart && app.DB != nil {
		if err := db.RunMigrations(ctx, app.DB); err != nil {
			log.Fatalf("run migrations: %v", err)
		}
	}

	opsServer := &http.Server{Addr: ":" + cfg.OpsPort, Handler: app.Ops}
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("ops server: %v", err)
		}
	}()

	telemetry.Info("worker.started", map[string]any{
		"queue":    cfg.QueueName,
		"ops_port": cfg.OpsPort,
		"blocks":   cfg.UseChecklistBlocks,
	})

	for {
		if ctx.Err() != nil {
			break
		}
		payload, ok, err := app.Queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			telemetry.Error("worker.pop_failed", map[string]any{"error": err.Error()})
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}
		// One job at a time; the pop is atomic across worker processes. The
		// job itself runs on a background context so a shutdown signal stops
		// the popping, not the in-flight job.
		app.Runner.HandleMessage(context.Background(), payload)
	}

	telemetry.Info("worker.shutdown", map[string]any{"queue": cfg.QueueName})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("ops server shutdown: %v", err)
	}
}
