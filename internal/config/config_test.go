package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "absent.env")})
	require.NoError(t, err)

	require.Equal(t, ":8000", cfg.Server.ListenAddr)
	require.Equal(t, 50, cfg.Server.BodyLimitMB)
	require.Equal(t, 5*time.Second, cfg.Server.GracefulShutdownDelay)
	require.Equal(t, "auto", cfg.Speech.Device)
	require.Equal(t, "piper", cfg.Speech.Synthesis.BinaryPath)
	require.Equal(t, "base.en", cfg.Speech.Transcription.Model)
	require.Equal(t, 1, cfg.Workers.Count)
	require.Equal(t, 8, cfg.Workers.QueueDepth)
	require.True(t, cfg.Observability.EnableMetrics)
	require.False(t, cfg.Observability.EnableOTLP)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "voxgate.yaml")
	contents := `
server:
  listen_addr: ":9000"
  graceful_shutdown_delay: 10s
speech:
  device: cpu
  synthesis:
    model_path: /models/voice.onnx
  transcription:
    model: small.en
workers:
  count: 2
  queue_depth: 4
`
	require.NoError(t, os.WriteFile(file, []byte(contents), 0o644))

	cfg, err := Load(Options{ConfigFile: file, EnvFile: filepath.Join(dir, "absent.env")})
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Server.ListenAddr)
	require.Equal(t, 10*time.Second, cfg.Server.GracefulShutdownDelay)
	require.Equal(t, "cpu", cfg.Speech.Device)
	require.Equal(t, "/models/voice.onnx", cfg.Speech.Synthesis.ModelPath)
	require.Equal(t, "small.en", cfg.Speech.Transcription.Model)
	require.Equal(t, 2, cfg.Workers.Count)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("VOXGATE_SERVER_LISTEN_ADDR", ":7070")
	t.Setenv("VOXGATE_SPEECH_DEVICE", "cpu")

	cfg, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "absent.env")})
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Server.ListenAddr)
	require.Equal(t, "cpu", cfg.Speech.Device)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen addr", func(c *Config) { c.Server.ListenAddr = "" }},
		{"zero body limit", func(c *Config) { c.Server.BodyLimitMB = 0 }},
		{"bad device", func(c *Config) { c.Speech.Device = "tpu" }},
		{"missing synthesis model", func(c *Config) { c.Speech.Synthesis.ModelPath = " " }},
		{"missing transcription model", func(c *Config) { c.Speech.Transcription.Model = "" }},
		{"zero workers", func(c *Config) { c.Workers.Count = 0 }},
		{"zero queue depth", func(c *Config) { c.Workers.QueueDepth = 0 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "absent.env")})
			require.NoError(t, err)
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
