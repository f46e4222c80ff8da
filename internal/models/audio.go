package models

import (
	"io"
	"time"
)

// AudioInput wraps an uploaded audio payload destined for transcription.
type AudioInput struct {
	Reader      io.ReadCloser
	Filename    string
	ContentType string
	Bytes       int64
}

// Waveform is a mono sequence of floating-point amplitude samples in [-1, 1].
type Waveform []float32

// SpeechAudio is the raw output of a synthesis engine before WAV framing.
type SpeechAudio struct {
	Samples    Waveform
	SampleRate int
}

// Duration reports the playback length of the waveform.
func (a SpeechAudio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(a.Samples)) / float64(a.SampleRate) * float64(time.Second))
}

// SpeechRequest drives text-to-speech generation.
type SpeechRequest struct {
	Text string `json:"text"`
}

// SpeechResponse returns the WAV-encoded synthesis result.
type SpeechResponse struct {
	Audio      []byte
	SampleRate int
	Duration   time.Duration
}

// TranscriptionResult is the structured output of a recognition engine.
// Only Text survives to the HTTP response; the rest is kept for logging.
type TranscriptionResult struct {
	Text     string                 `json:"text"`
	Language string                 `json:"language,omitempty"`
	Segments []TranscriptionSegment `json:"segments,omitempty"`
}

// TranscriptionSegment is a timestamped slice of the recognized text.
type TranscriptionSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptionResponse is the normalized payload returned to callers.
type TranscriptionResponse struct {
	Filename      string `json:"filename"`
	Transcription string `json:"transcription"`
}
