// Package whisper wraps a locally installed Whisper model behind the
// Transcriber interface. The whisper CLI takes a file path, decodes the
// audio itself, and writes a structured JSON result.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/voxgate/voxgate/internal/engines/device"
	"github.com/voxgate/voxgate/internal/models"
)

// DefaultModel is the English base model, a reasonable accuracy/latency
// trade-off for CPU hosts.
const DefaultModel = "base.en"

// Config locates the whisper CLI and the model weights to load.
type Config struct {
	// BinaryPath is the whisper executable; a bare name is resolved via PATH.
	BinaryPath string
	// Model names the pretrained checkpoint (tiny.en, base.en, small.en, ...).
	Model string
	// ModelDir is the weight cache directory; weights download there on
	// first use.
	ModelDir string
	// Language forces a decode language; empty lets the model decide.
	Language string
	// Device selects the inference device. Half precision is only enabled
	// on an accelerator; it is unreliable on CPUs for this model family.
	Device device.Device
}

// Engine is a loaded recognition model handle. Immutable after New.
type Engine struct {
	binary   string
	model    string
	modelDir string
	language string
	dev      device.Device
	logger   *slog.Logger
}

// New verifies the binary exists and the model cache directory is writable.
// Any failure means the model could not be loaded; callers capture it and
// leave the handle unset.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name := strings.TrimSpace(cfg.BinaryPath)
	if name == "" {
		name = "whisper"
	}
	binary, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("whisper binary: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	modelDir := strings.TrimSpace(cfg.ModelDir)
	if modelDir == "" {
		modelDir = "./data/models/whisper"
	}
	if err := os.MkdirAll(modelDir, 0o750); err != nil {
		return nil, fmt.Errorf("create whisper model dir: %w", err)
	}

	logger.Info("whisper: model loaded",
		slog.String("model", model),
		slog.String("model_dir", modelDir),
		slog.String("device", cfg.Device.String()))

	return &Engine{
		binary:   binary,
		model:    model,
		modelDir: modelDir,
		language: strings.TrimSpace(cfg.Language),
		dev:      cfg.Device,
		logger:   logger,
	}, nil
}

// Transcribe runs the model on the audio file at path and parses the JSON
// result. The result file lands in a per-call scratch directory that is
// always removed.
func (e *Engine) Transcribe(ctx context.Context, path string) (models.TranscriptionResult, error) {
	outDir, err := os.MkdirTemp("", "whisper-out-")
	if err != nil {
		return models.TranscriptionResult{}, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	args := []string{
		path,
		"--model", e.model,
		"--model_dir", e.modelDir,
		"--device", e.dev.String(),
		"--output_format", "json",
		"--output_dir", outDir,
	}
	if !e.dev.IsAccelerator() {
		args = append(args, "--fp16", "False")
	}
	if e.language != "" {
		args = append(args, "--language", e.language)
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return models.TranscriptionResult{}, fmt.Errorf("whisper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	resultPath := filepath.Join(outDir, resultBasename(path)+".json")
	data, err := os.ReadFile(resultPath)
	if err != nil {
		return models.TranscriptionResult{}, fmt.Errorf("read whisper result: %w", err)
	}
	var result models.TranscriptionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return models.TranscriptionResult{}, fmt.Errorf("parse whisper result: %w", err)
	}
	result.Text = strings.TrimSpace(result.Text)
	return result, nil
}

// resultBasename mirrors the CLI's output naming: input basename without
// its final extension.
func resultBasename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
