package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix   = "ITD_"
	DefaultPath = "configs/config.yaml"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment" validate:"required"`
	LogLevel    string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	Server    ServerConfig    `koanf:"server"`
	Data      DataConfig      `koanf:"data"`
	Model     ModelConfig     `koanf:"model"`
	Snapshot  SnapshotConfig  `koanf:"snapshot"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Security  SecurityConfig  `koanf:"security"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RefreshOnStart retrains from CSV even when a snapshot exists.
	RefreshOnStart bool `koanf:"refresh_on_start"`
}

// DataConfig locates the four activity logs.
type DataConfig struct {
	Dir     string `koanf:"dir" validate:"required"`
	MaxRows int    `koanf:"max_rows" validate:"min=0"`
}

type ModelConfig struct {
	NumTrees      int     `koanf:"num_trees" validate:"min=1,max=1000"`
	MaxSamples    int     `koanf:"max_samples" validate:"min=2"`
	Contamination float64 `koanf:"contamination" validate:"gt=0,lte=0.5"`
	Seed          uint64  `koanf:"seed"`
	Workers       int     `koanf:"workers" validate:"min=0"`
	TopN          int     `koanf:"top_n" validate:"min=1"`
}

// SnapshotConfig selects where the fitted model is persisted.
type SnapshotConfig struct {
	Backend  string `koanf:"backend" validate:"oneof=file s3 redis none"`
	Path     string `koanf:"path" validate:"required_if=Backend file"`
	Bucket   string `koanf:"bucket" validate:"required_if=Backend s3"`
	Key      string `koanf:"key"`
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`
	RedisKey string `koanf:"redis_key"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// Enabled reports whether training-run history is persisted.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

type RedisConfig struct {
	URL          string        `koanf:"url"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	ServiceName  string  `koanf:"service_name"`
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	SampleRate   float64 `koanf:"sample_rate" validate:"gte=0,lte=1"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second" validate:"min=0"`
	BurstSize         int `koanf:"burst_size" validate:"min=0"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Data: DataConfig{
			Dir:     "data",
			MaxRows: 50000,
		},
		Model: ModelConfig{
			NumTrees:      50,
			MaxSamples:    1000,
			Contamination: 0.03,
			Seed:          42,
			TopN:          20,
		},
		Snapshot: SnapshotConfig{
			Backend:  "file",
			Path:     "model/insider_iforest.snapshot",
			Key:      "insider_iforest.snapshot",
			Region:   "us-east-1",
			RedisKey: "insider:model:snapshot",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			URL:          "localhost:6379",
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "insider-threat-detection",
			SampleRate:  1,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 20,
				BurstSize:         40,
			},
		},
	}
}

// Load layers defaults, the YAML file at path (optional; empty means
// DefaultPath) and ITD_* environment variables, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = DefaultPath
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	// ITD_DATA_MAX_ROWS must land on data.max_rows, not data.max.rows, so
	// env names are matched against the known key set first.
	known := make(map[string]string)
	for _, key := range k.Keys() {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		if key, ok := known[name]; ok {
			return key
		}
		return strings.ReplaceAll(name, "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
