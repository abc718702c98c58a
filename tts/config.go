package tts

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the engine's tunable parameters. Values load from a config
// file, flags or VOCALIZE_* environment variables; zero values fall back to
// defaults at validation time.
type Config struct {
	// Model is the catalog ID of the model to synthesize with.
	Model string `env:"VOCALIZE_MODEL" yaml:"model" mapstructure:"model"`

	// CacheDir overrides the platform cache directory for model files.
	CacheDir string `env:"VOCALIZE_CACHE_DIR" yaml:"cache_dir" mapstructure:"cache_dir"`

	// PoolSize is the number of concurrent inference sessions.
	PoolSize int `env:"VOCALIZE_POOL_SIZE" yaml:"pool_size" mapstructure:"pool_size"`

	// ChunkSize is the default token window for streaming; zero disables
	// chunking.
	ChunkSize int `env:"VOCALIZE_CHUNK_SIZE" yaml:"chunk_size" mapstructure:"chunk_size"`

	// InferenceTimeout bounds a single inference call.
	InferenceTimeout time.Duration `env:"VOCALIZE_INFERENCE_TIMEOUT" yaml:"inference_timeout" mapstructure:"inference_timeout"`

	// DownloadAttempts caps model download retries per file.
	DownloadAttempts int `env:"VOCALIZE_DOWNLOAD_ATTEMPTS" yaml:"download_attempts" mapstructure:"download_attempts"`

	// DownloadTimeout bounds a single download attempt.
	DownloadTimeout time.Duration `env:"VOCALIZE_DOWNLOAD_TIMEOUT" yaml:"download_timeout" mapstructure:"download_timeout"`

	// Debug enables debug logging.
	Debug bool `env:"VOCALIZE_DEBUG" yaml:"debug" mapstructure:"debug"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Model:            "kokoro",
		PoolSize:         DefaultPoolSize,
		ChunkSize:        0,
		InferenceTimeout: DefaultInferenceTimeout,
		DownloadAttempts: 4,
		DownloadTimeout:  10 * time.Minute,
	}
}

// FromEnv overlays VOCALIZE_* environment variables onto the defaults.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// UnmarshalYAML decodes the config, accepting durations in Go notation
// ("30s", "10m").
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Model            string `yaml:"model"`
		CacheDir         string `yaml:"cache_dir"`
		PoolSize         *int   `yaml:"pool_size"`
		ChunkSize        *int   `yaml:"chunk_size"`
		InferenceTimeout string `yaml:"inference_timeout"`
		DownloadAttempts *int   `yaml:"download_attempts"`
		DownloadTimeout  string `yaml:"download_timeout"`
		Debug            *bool  `yaml:"debug"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Model != "" {
		c.Model = raw.Model
	}
	if raw.CacheDir != "" {
		c.CacheDir = raw.CacheDir
	}
	if raw.PoolSize != nil {
		c.PoolSize = *raw.PoolSize
	}
	if raw.ChunkSize != nil {
		c.ChunkSize = *raw.ChunkSize
	}
	if raw.DownloadAttempts != nil {
		c.DownloadAttempts = *raw.DownloadAttempts
	}
	if raw.Debug != nil {
		c.Debug = *raw.Debug
	}
	if raw.InferenceTimeout != "" {
		d, err := time.ParseDuration(raw.InferenceTimeout)
		if err != nil {
			return fmt.Errorf("inference_timeout: %w", err)
		}
		c.InferenceTimeout = d
	}
	if raw.DownloadTimeout != "" {
		d, err := time.ParseDuration(raw.DownloadTimeout)
		if err != nil {
			return fmt.Errorf("download_timeout: %w", err)
		}
		c.DownloadTimeout = d
	}
	return nil
}

// LoadFile overlays a YAML config file onto the defaults. Environment
// variables applied afterwards take precedence over the file.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate fills unset values with defaults and rejects out-of-range ones.
func (c *Config) Validate() error {
	if c.Model == "" {
		c.Model = DefaultConfig().Model
	}
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("pool size cannot be negative: %w", ErrInvalidParameter)
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk size cannot be negative: %w", ErrInvalidParameter)
	}
	if c.InferenceTimeout < 0 {
		return fmt.Errorf("inference timeout cannot be negative: %w", ErrInvalidParameter)
	}
	if c.InferenceTimeout == 0 {
		c.InferenceTimeout = DefaultInferenceTimeout
	}
	if c.DownloadAttempts <= 0 {
		c.DownloadAttempts = DefaultConfig().DownloadAttempts
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = DefaultConfig().DownloadTimeout
	}
	return nil
}
