// Package piper wraps a locally installed Piper voice model behind the
// Synthesizer interface. Each request runs a fresh piper process that reads
// text on stdin and emits raw 16-bit PCM on stdout.
package piper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/voxgate/voxgate/internal/audio"
	"github.com/voxgate/voxgate/internal/engines/device"
	"github.com/voxgate/voxgate/internal/models"
)

// Config locates the piper binary and the voice model to load.
type Config struct {
	// BinaryPath is the piper executable; a bare name is resolved via PATH.
	BinaryPath string
	// ModelPath is the ONNX voice model.
	ModelPath string
	// MetadataPath is the voice configuration JSON. Defaults to
	// ModelPath + ".json", the layout Piper voices ship with.
	MetadataPath string
	// Device selects the inference device.
	Device device.Device
}

// Engine is a loaded synthesis model handle. Immutable after New.
type Engine struct {
	binary     string
	model      string
	dev        device.Device
	sampleRate int
	rateSource string
	logger     *slog.Logger
}

// New verifies the binary and model exist, reads the voice metadata, and
// resolves the output sample rate. Any failure here means the model could
// not be loaded; callers capture it and leave the handle unset.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	binary, err := resolveBinary(cfg.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("piper binary: %w", err)
	}
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, fmt.Errorf("piper model path is required")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("piper model: %w", err)
	}

	metaPath := cfg.MetadataPath
	if metaPath == "" {
		metaPath = cfg.ModelPath + ".json"
	}

	rate := DefaultSampleRate
	source := "default"
	meta, err := loadVoiceMetadata(metaPath)
	if err != nil {
		logger.Warn("piper: voice metadata unavailable, using fallback sample rate",
			slog.String("metadata", metaPath),
			slog.Int("sample_rate", DefaultSampleRate),
			slog.String("error", err.Error()))
	} else {
		rate, source = resolveSampleRate(meta)
		if source == "default" {
			logger.Warn("piper: sample rate missing from voice metadata, using fallback",
				slog.Int("sample_rate", rate))
		}
	}

	logger.Info("piper: model loaded",
		slog.String("model", cfg.ModelPath),
		slog.String("device", cfg.Device.String()),
		slog.Int("sample_rate", rate),
		slog.String("rate_source", source))

	return &Engine{
		binary:     binary,
		model:      cfg.ModelPath,
		dev:        cfg.Device,
		sampleRate: rate,
		rateSource: source,
		logger:     logger,
	}, nil
}

// SampleRate reports the resolved output sample rate in Hz.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

// RateSource names the metadata probe that produced the sample rate.
func (e *Engine) RateSource() string {
	return e.rateSource
}

// Synthesize renders text into a mono float waveform.
func (e *Engine) Synthesize(ctx context.Context, text string) (models.SpeechAudio, error) {
	args := []string{"--model", e.model, "--output-raw"}
	if e.dev.IsAccelerator() {
		args = append(args, "--cuda")
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdin = strings.NewReader(text + "\n")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return models.SpeechAudio{}, fmt.Errorf("piper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return models.SpeechAudio{}, fmt.Errorf("piper: no audio produced")
	}

	return models.SpeechAudio{
		Samples:    audio.PCM16ToWaveform(stdout.Bytes()),
		SampleRate: e.sampleRate,
	}, nil
}

func resolveBinary(path string) (string, error) {
	name := strings.TrimSpace(path)
	if name == "" {
		name = "piper"
	}
	if strings.ContainsRune(name, os.PathSeparator) {
		if _, err := os.Stat(name); err != nil {
			return "", err
		}
		return name, nil
	}
	return exec.LookPath(name)
}
