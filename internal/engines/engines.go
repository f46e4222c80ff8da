// Package engines defines the model-handle interfaces the services invoke.
// Concrete engines live in subpackages and wrap locally installed
// pre-trained models behind these contracts.
package engines

import (
	"context"

	"github.com/voxgate/voxgate/internal/models"
)

// Synthesizer is a loaded text-to-speech model handle. Implementations are
// immutable after construction and safe for concurrent use.
type Synthesizer interface {
	// Synthesize renders text into a mono float waveform at the model's
	// output sample rate.
	Synthesize(ctx context.Context, text string) (models.SpeechAudio, error)
	// SampleRate reports the model's output sample rate in Hz.
	SampleRate() int
}

// Transcriber is a loaded speech-to-text model handle. The audio must be
// supplied as a file path; the models in this family do not accept streams.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (models.TranscriptionResult, error)
}
