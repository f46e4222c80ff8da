// Package synthesis turns text into WAV audio via a loaded synthesis model.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/voxgate/voxgate/internal/audio"
	"github.com/voxgate/voxgate/internal/engines"
	"github.com/voxgate/voxgate/internal/models"
	"github.com/voxgate/voxgate/internal/observability"
	"github.com/voxgate/voxgate/internal/workerpool"
)

// Service owns the synthesis model handle. The gateway checks for a nil
// *Service before calling; text validation also happens there, so Synthesize
// assumes a well-formed request.
type Service struct {
	engine engines.Synthesizer
	pool   *workerpool.Pool
	logger *slog.Logger
	obs    *observability.Provider
}

// NewService binds the engine to the shared worker pool. pool and obs may be
// nil, in which case invocations run inline and unmetered (used by tests).
func NewService(engine engines.Synthesizer, pool *workerpool.Pool, logger *slog.Logger, obs *observability.Provider) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, pool: pool, logger: logger, obs: obs}
}

// SampleRate reports the model's output sample rate.
func (s *Service) SampleRate() int {
	return s.engine.SampleRate()
}

// Synthesize renders text to a 16-bit PCM mono WAV buffer. Engine and
// encoding failures are wrapped into a single request-failure kind;
// workerpool.ErrSaturated passes through so the gateway can answer 503.
func (s *Service) Synthesize(ctx context.Context, text string) (models.SpeechResponse, error) {
	var speech models.SpeechAudio
	run := func() error {
		var err error
		start := time.Now()
		speech, err = s.engine.Synthesize(ctx, text)
		s.obs.RecordEngineInvocation("synthesis", err, time.Since(start))
		return err
	}

	var err error
	if s.pool != nil {
		err = s.pool.Do(ctx, run)
	} else {
		err = run()
	}
	if err != nil {
		if errors.Is(err, workerpool.ErrSaturated) {
			return models.SpeechResponse{}, err
		}
		return models.SpeechResponse{}, fmt.Errorf("speech synthesis failed: %w", err)
	}

	wav, err := audio.EncodeWAVBytes(speech.Samples, speech.SampleRate)
	if err != nil {
		return models.SpeechResponse{}, fmt.Errorf("speech synthesis failed: %w", err)
	}

	duration := speech.Duration()
	s.obs.RecordAudioSeconds("synthesis", duration.Seconds())
	s.logger.Info("speech synthesized",
		slog.Int("text_chars", len(text)),
		slog.Int("sample_rate", speech.SampleRate),
		slog.Duration("audio_duration", duration))

	return models.SpeechResponse{
		Audio:      wav,
		SampleRate: speech.SampleRate,
		Duration:   duration,
	}, nil
}
