package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/voxgate/voxgate/internal/app"
	"github.com/voxgate/voxgate/internal/config"
	"github.com/voxgate/voxgate/internal/httpserver"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.Options{})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := slog.Default()

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("build container: %v", err)
	}
	defer container.Close(context.Background())

	// Model load failures are non-fatal: the process serves whatever loaded
	// and the failed routes answer 503.
	if container.SynthesisErr != nil {
		logger.Warn("starting without synthesis", slog.String("error", container.SynthesisErr.Error()))
	}
	if container.TranscriptionErr != nil {
		logger.Warn("starting without transcription", slog.String("error", container.TranscriptionErr.Error()))
	}

	server, err := httpserver.New(container)
	if err != nil {
		log.Fatalf("construct server: %v", err)
	}

	logger.Info("voxgate listening", slog.String("addr", cfg.Server.ListenAddr))
	if err := server.Listen(ctx); err != nil && err != context.Canceled {
		log.Fatalf("server stopped: %v", err)
	}
}
