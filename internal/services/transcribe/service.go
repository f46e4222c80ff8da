// Package transcribe turns uploaded audio into text via a loaded
// recognition model, bridging the byte stream through a transient spool
// file because the model family requires file-path input.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/voxgate/voxgate/internal/engines"
	"github.com/voxgate/voxgate/internal/models"
	"github.com/voxgate/voxgate/internal/observability"
	"github.com/voxgate/voxgate/internal/storage/spool"
	"github.com/voxgate/voxgate/internal/workerpool"
)

// Service owns the recognition model handle. The gateway checks for a nil
// *Service and a present filename before calling.
type Service struct {
	engine engines.Transcriber
	spool  *spool.Spool
	pool   *workerpool.Pool
	logger *slog.Logger
	obs    *observability.Provider
}

// NewService binds the engine to the spool and the shared worker pool.
// pool and obs may be nil, in which case invocations run inline and
// unmetered (used by tests).
func NewService(engine engines.Transcriber, files *spool.Spool, pool *workerpool.Pool, logger *slog.Logger, obs *observability.Provider) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, spool: files, pool: pool, logger: logger, obs: obs}
}

// Transcribe copies the upload to a transient file, runs the model on it,
// and extracts the recognized text. The spool file is removed and the input
// stream closed on every exit path. workerpool.ErrSaturated passes through
// so the gateway can answer 503; everything else is wrapped into a single
// request-failure kind.
func (s *Service) Transcribe(ctx context.Context, in models.AudioInput) (models.TranscriptionResponse, error) {
	defer func() {
		if in.Reader != nil {
			in.Reader.Close()
		}
	}()

	path, size, err := s.spool.Capture(in.Reader, filepath.Ext(in.Filename))
	if err != nil {
		return models.TranscriptionResponse{}, fmt.Errorf("transcription failed: %w", err)
	}
	defer func() {
		if err := s.spool.Remove(path); err != nil {
			s.logger.Warn("transcribe: spool cleanup failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}()

	var result models.TranscriptionResult
	run := func() error {
		var err error
		start := time.Now()
		result, err = s.engine.Transcribe(ctx, path)
		s.obs.RecordEngineInvocation("transcription", err, time.Since(start))
		return err
	}

	if s.pool != nil {
		err = s.pool.Do(ctx, run)
	} else {
		err = run()
	}
	if err != nil {
		if errors.Is(err, workerpool.ErrSaturated) {
			return models.TranscriptionResponse{}, err
		}
		return models.TranscriptionResponse{}, fmt.Errorf("transcription failed: %w", err)
	}

	s.obs.RecordAudioSeconds("transcription", transcribedSeconds(result))
	s.logger.Info("audio transcribed",
		slog.String("filename", in.Filename),
		slog.Int64("bytes", size),
		slog.String("language", result.Language),
		slog.Int("text_chars", len(result.Text)))

	return models.TranscriptionResponse{
		Filename:      in.Filename,
		Transcription: result.Text,
	}, nil
}

// transcribedSeconds derives the playback length from the end bound of the
// final segment; results without segment timestamps report zero.
func transcribedSeconds(result models.TranscriptionResult) float64 {
	if n := len(result.Segments); n > 0 {
		return result.Segments[n-1].End
	}
	return 0
}
