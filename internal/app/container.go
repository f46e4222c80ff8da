package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voxgate/voxgate/internal/config"
	"github.com/voxgate/voxgate/internal/engines/device"
	"github.com/voxgate/voxgate/internal/engines/piper"
	"github.com/voxgate/voxgate/internal/engines/whisper"
	"github.com/voxgate/voxgate/internal/observability"
	synthesissvc "github.com/voxgate/voxgate/internal/services/synthesis"
	transcribesvc "github.com/voxgate/voxgate/internal/services/transcribe"
	"github.com/voxgate/voxgate/internal/storage/spool"
	"github.com/voxgate/voxgate/internal/workerpool"
)

// Container aggregates runtime dependencies for handlers and services.
// It is immutable after NewContainer: a nil service handle means that
// model failed to load, with the cause kept alongside for diagnostics.
type Container struct {
	Config *config.Config
	Device device.Device

	// Synthesis is nil when the synthesis model failed to load; the load
	// error is then kept in SynthesisErr. Same shape for Transcription.
	Synthesis        *synthesissvc.Service
	SynthesisErr     error
	Transcription    *transcribesvc.Service
	TranscriptionErr error

	Spool         *spool.Spool
	Pool          *workerpool.Pool
	Observability *observability.Provider
}

// NewContainer builds the dependency container. Model load failures are
// captured rather than returned: the process keeps serving so operators can
// see the errors on /healthz, and the affected routes answer 503. Only
// infrastructure failures (spool dir, observability) abort startup.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	dev := device.Resolve(cfg.Speech.Device)
	logger.Info("inference device selected", slog.String("device", dev.String()))

	files, err := spool.New(cfg.Speech.SpoolDir)
	if err != nil {
		return nil, fmt.Errorf("init spool: %w", err)
	}

	obsProvider, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("setup observability: %w", err)
	}

	pool := workerpool.New(cfg.Workers.Count, cfg.Workers.QueueDepth)

	container := &Container{
		Config:        cfg,
		Device:        dev,
		Spool:         files,
		Pool:          pool,
		Observability: obsProvider,
	}

	synthEngine, err := piper.New(piper.Config{
		BinaryPath:   cfg.Speech.Synthesis.BinaryPath,
		ModelPath:    cfg.Speech.Synthesis.ModelPath,
		MetadataPath: cfg.Speech.Synthesis.MetadataPath,
		Device:       dev,
	}, logger)
	if err != nil {
		logger.Error("synthesis model failed to load", slog.String("error", err.Error()))
		container.SynthesisErr = err
	} else {
		container.Synthesis = synthesissvc.NewService(synthEngine, pool, logger, obsProvider)
	}

	transcribeEngine, err := whisper.New(whisper.Config{
		BinaryPath: cfg.Speech.Transcription.BinaryPath,
		Model:      cfg.Speech.Transcription.Model,
		ModelDir:   cfg.Speech.Transcription.ModelDir,
		Language:   cfg.Speech.Transcription.Language,
		Device:     dev,
	}, logger)
	if err != nil {
		logger.Error("transcription model failed to load", slog.String("error", err.Error()))
		container.TranscriptionErr = err
	} else {
		container.Transcription = transcribesvc.NewService(transcribeEngine, files, pool, logger, obsProvider)
	}

	return container, nil
}

// Close releases the worker pool and flushes telemetry.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.Observability != nil {
		return c.Observability.Shutdown(ctx)
	}
	return nil
}
