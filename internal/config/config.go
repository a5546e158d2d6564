// Package config loads service configuration from config.yml, a local .env
// file, and TRANSCRIBER_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"audio-transcriber/internal/logger"
)

const envPrefix = "TRANSCRIBER"

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  logger.Config  `mapstructure:"logging"`
	Tools    ToolsConfig    `mapstructure:"tools"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
	Refine   RefineConfig   `mapstructure:"refine"`
}

// HTTPConfig configures the listen address of the API server.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// ToolsConfig names the external binaries and the recognition model.
type ToolsConfig struct {
	FFmpeg    string `mapstructure:"ffmpeg" validate:"required"`
	Whisper   string `mapstructure:"whisper" validate:"required"`
	ModelPath string `mapstructure:"model_path" validate:"required"`
	Language  string `mapstructure:"language"`
	Prompt    string `mapstructure:"prompt"`
}

// PipelineConfig holds the chunking and concurrency knobs. A Workers value
// of zero derives the count from available CPU parallelism.
type PipelineConfig struct {
	ChunkSeconds    int `mapstructure:"chunk_seconds" validate:"gt=0"`
	Workers         int `mapstructure:"workers" validate:"gte=0"`
	MaxAudioSeconds int `mapstructure:"max_audio_seconds" validate:"gt=0"`
}

// StorageConfig locates the upload and output directories.
type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir" validate:"required"`
	OutputDir string `mapstructure:"output_dir" validate:"required"`
}

// CleanupConfig configures the periodic disk sweeper.
type CleanupConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	IntervalMin   int  `mapstructure:"interval_minutes" validate:"gt=0"`
	MaxAgeMinutes int  `mapstructure:"max_age_minutes" validate:"gt=0"`
}

// RefineConfig configures the optional transcript refinement endpoint.
type RefineConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gt=0"`
}

// Load reads configuration from the optional file path plus environment.
func Load(path string) (Config, error) {
	// A missing .env is fine; explicit values still come from the process env.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else if f := findConfigFile(); f != "" {
		v.SetConfigFile(f)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers baseline values for a first run.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("tools.ffmpeg", "ffmpeg")
	v.SetDefault("tools.whisper", "whisper.cpp")
	v.SetDefault("tools.model_path", defaultModelDir())
	v.SetDefault("tools.language", "auto")
	v.SetDefault("pipeline.chunk_seconds", 90)
	v.SetDefault("pipeline.workers", 0)
	v.SetDefault("pipeline.max_audio_seconds", 3600)
	v.SetDefault("storage.upload_dir", "data/uploads")
	v.SetDefault("storage.output_dir", "data/outputs")
	v.SetDefault("cleanup.enabled", true)
	v.SetDefault("cleanup.interval_minutes", 30)
	v.SetDefault("cleanup.max_age_minutes", 720)
	v.SetDefault("refine.model", "llama3")
	v.SetDefault("refine.timeout_seconds", 120)
}

// findConfigFile searches standard locations for config.yml.
func findConfigFile() string {
	for _, candidate := range []string{"config.yml", "config/config.yml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// defaultModelDir returns the baseline model directory for a first run.
func defaultModelDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".audio-transcriber", "models")
}
