package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config captures the runtime configuration for the speech gateway.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Speech        SpeechConfig        `mapstructure:"speech"`
	Workers       WorkersConfig       `mapstructure:"workers"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	ListenAddr            string        `mapstructure:"listen_addr"`
	BodyLimitMB           int           `mapstructure:"body_limit_mb"`
	SyncTimeout           time.Duration `mapstructure:"sync_timeout"`
	IdleTimeout           time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdownDelay time.Duration `mapstructure:"graceful_shutdown_delay"`
}

// SpeechConfig locates the two pretrained models and their shared plumbing.
type SpeechConfig struct {
	// Device is auto, cuda, or cpu. auto probes for an accelerator.
	Device        string              `mapstructure:"device"`
	SpoolDir      string              `mapstructure:"spool_dir"`
	Synthesis     SynthesisConfig     `mapstructure:"synthesis"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
}

type SynthesisConfig struct {
	BinaryPath   string `mapstructure:"binary_path"`
	ModelPath    string `mapstructure:"model_path"`
	MetadataPath string `mapstructure:"metadata_path"`
}

type TranscriptionConfig struct {
	BinaryPath string `mapstructure:"binary_path"`
	Model      string `mapstructure:"model"`
	ModelDir   string `mapstructure:"model_dir"`
	Language   string `mapstructure:"language"`
}

type WorkersConfig struct {
	Count      int `mapstructure:"count"`
	QueueDepth int `mapstructure:"queue_depth"`
}

type ObservabilityConfig struct {
	EnableOTLP    bool   `mapstructure:"enable_otlp"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
	OTLPEndpoint  string `mapstructure:"otlp_endpoint"`
}

// Options controls configuration loading for Load.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else {
		if cfg := os.Getenv("VOXGATE_CONFIG_FILE"); cfg != "" {
			v.SetConfigFile(cfg)
			explicitFile = true
		}
	}

	if !explicitFile {
		// Allow standard lookup locations when no explicit file is provided.
		v.SetConfigName("voxgate")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("VOXGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(timeStringToDurationHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures required values are set and fills safe fallbacks.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		return fmt.Errorf("server.listen_addr must be provided")
	}
	if c.Server.BodyLimitMB <= 0 {
		return fmt.Errorf("server.body_limit_mb must be > 0")
	}
	if c.Server.GracefulShutdownDelay <= 0 {
		c.Server.GracefulShutdownDelay = 5 * time.Second
	}

	switch strings.ToLower(strings.TrimSpace(c.Speech.Device)) {
	case "", "auto", "cuda", "cpu":
	default:
		return fmt.Errorf("speech.device must be auto, cuda, or cpu")
	}
	if strings.TrimSpace(c.Speech.Synthesis.ModelPath) == "" {
		return fmt.Errorf("speech.synthesis.model_path must be provided")
	}
	if strings.TrimSpace(c.Speech.Transcription.Model) == "" {
		return fmt.Errorf("speech.transcription.model must be provided")
	}

	if c.Workers.Count <= 0 {
		return fmt.Errorf("workers.count must be > 0")
	}
	if c.Workers.QueueDepth <= 0 {
		return fmt.Errorf("workers.queue_depth must be > 0")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8000")
	v.SetDefault("server.body_limit_mb", 50)
	v.SetDefault("server.sync_timeout", "300s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_shutdown_delay", "5s")

	v.SetDefault("speech.device", "auto")
	v.SetDefault("speech.spool_dir", "./data/spool")
	v.SetDefault("speech.synthesis.binary_path", "piper")
	v.SetDefault("speech.synthesis.model_path", "./data/models/piper/en_US-lessac-medium.onnx")
	v.SetDefault("speech.transcription.binary_path", "whisper")
	v.SetDefault("speech.transcription.model", "base.en")
	v.SetDefault("speech.transcription.model_dir", "./data/models/whisper")

	v.SetDefault("workers.count", 1)
	v.SetDefault("workers.queue_depth", 8)

	v.SetDefault("observability.enable_otlp", false)
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.otlp_endpoint", "http://localhost:4317")
}

func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		default:
			return nil, fmt.Errorf("cannot decode %T into time.Duration", data)
		}
	}
}
