package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/commgraph/commgraph/internal/app/dto"
	"github.com/commgraph/commgraph/internal/core/rules"
	"github.com/commgraph/commgraph/pkg/serialization"
)

// EnvPrefix prefixes every environment variable read by LoadSettings
const EnvPrefix = "COMMGRAPH_"

// Storage selects where checkpoints are kept and how they are encoded
type Storage struct {
	Driver      string `env:"STORAGE_DRIVER" envDefault:"memory" validate:"oneof=memory sqlite postgres"`
	DSN         string `env:"STORAGE_DSN"`
	Codec       string `env:"STORAGE_CODEC" envDefault:"msgpack" validate:"oneof=msgpack json"`
	Compression string `env:"STORAGE_COMPRESSION" envDefault:"zstd" validate:"oneof=none gzip zstd"`
}

// Pipeline builds the snapshot codec pipeline
func (s Storage) Pipeline() (*serialization.Pipeline, error) {
	codec, err := serialization.CodecByName(s.Codec)
	if err != nil {
		return nil, err
	}
	compression, err := serialization.ParseCompression(s.Compression)
	if err != nil {
		return nil, err
	}
	return serialization.NewPipeline(codec, compression)
}

// Settings are the runtime knobs that do not belong to a topology file
type Settings struct {
	Limits            dto.Limits
	Rules             rules.Config
	Policy            rules.Policy
	Storage           Storage
	StructuredActions bool   `env:"STRUCTURED_ACTIONS"`
	CheckpointEvery   int    `env:"CHECKPOINT_EVERY" envDefault:"0" validate:"min=0"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
}

// DefaultSettings returns the settings used when nothing is configured
func DefaultSettings() Settings {
	return Settings{
		Limits:   dto.DefaultLimits(),
		Rules:    rules.DefaultConfig(),
		Policy:   rules.DefaultPolicy(),
		Storage:  Storage{Driver: "memory", Codec: "msgpack", Compression: "zstd"},
		LogLevel: "info",
	}
}

// LoadSettings reads settings from COMMGRAPH_* environment variables,
// loading the given dotenv files first. Missing dotenv files are skipped;
// variables already set in the environment win over dotenv values.
func LoadSettings(dotenvFiles ...string) (Settings, error) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, configError(f, err)
		}
	}
	return ParseSettings(nil)
}

// ParseSettings reads settings from environ, or from the process
// environment when environ is nil
func ParseSettings(environ map[string]string) (Settings, error) {
	s := DefaultSettings()
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return Settings{}, configError("environment", fmt.Errorf("parse env: %w", err))
	}
	if problems := structProblems(s); len(problems) > 0 {
		return Settings{}, configError("environment", nil, problems...)
	}
	if s.Storage.Driver != "memory" && s.Storage.DSN == "" {
		return Settings{}, configError("environment", nil, fmt.Sprintf("%sSTORAGE_DSN is required for the %s driver", EnvPrefix, s.Storage.Driver))
	}
	return s, nil
}

// SlogLevel maps LogLevel onto a slog level
func (s Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
