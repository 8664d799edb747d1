package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Storage modes for quest progress.
const (
	StorageModeMemory   = "memory"
	StorageModePostgres = "postgres"
)

// Settings holds process-level settings read from the environment.
// Database connection settings live in the db package.
type Settings struct {
	CatalogPath                string  `env:"QUEST_CATALOG_PATH" envDefault:"config/quests.json"`
	DefaultArrivalRadiusMeters float64 `env:"QUEST_DEFAULT_ARRIVAL_RADIUS_METERS" envDefault:"50"`
	StorageMode                string  `env:"QUEST_STORAGE_MODE" envDefault:"memory"`
	LogLevel                   string  `env:"QUEST_LOG_LEVEL" envDefault:"info"`

	// Event fan-out. Redis publishing is disabled when RedisAddr is empty.
	RedisAddr     string `env:"QUEST_REDIS_ADDR"`
	RedisPassword string `env:"QUEST_REDIS_PASSWORD"`
	RedisDB       int    `env:"QUEST_REDIS_DB" envDefault:"0"`
	EventChannel  string `env:"QUEST_EVENT_CHANNEL" envDefault:"urbanquest.progress"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadSettings parses Settings from the environment and validates them.
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := ParseEnv(&s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks settings that env parsing cannot express.
func (s *Settings) Validate() error {
	if s.CatalogPath == "" {
		return fmt.Errorf("QUEST_CATALOG_PATH cannot be empty")
	}
	if s.DefaultArrivalRadiusMeters <= 0 {
		return fmt.Errorf("QUEST_DEFAULT_ARRIVAL_RADIUS_METERS must be positive (got %v)", s.DefaultArrivalRadiusMeters)
	}
	switch s.StorageMode {
	case StorageModeMemory, StorageModePostgres:
	default:
		return fmt.Errorf("QUEST_STORAGE_MODE must be '%s' or '%s' (got '%s')", StorageModeMemory, StorageModePostgres, s.StorageMode)
	}
	if s.RedisAddr != "" && s.EventChannel == "" {
		return fmt.Errorf("QUEST_EVENT_CHANNEL cannot be empty when QUEST_REDIS_ADDR is set")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (s *Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
