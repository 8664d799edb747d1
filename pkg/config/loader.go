package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	customerrors "github.com/urbanquest/quest-progression/pkg/errors"
)

// ConfigLoader loads and validates the quest catalog from a JSON or YAML file.
// It performs file reading, parsing, and comprehensive validation.
type ConfigLoader struct {
	configPath string
	validator  *Validator
	logger     *slog.Logger
}

// NewConfigLoader creates a new ConfigLoader instance.
//
// Parameters:
//   - configPath: Path to the catalog file (.json, .yaml or .yml)
//   - logger: Structured logger for operational logging
func NewConfigLoader(configPath string, logger *slog.Logger) *ConfigLoader {
	return &ConfigLoader{
		configPath: configPath,
		validator:  NewValidator(),
		logger:     logger,
	}
}

// LoadConfig loads the catalog file and returns a validated Config.
// Invalid catalogs are rejected as a whole so the service never starts
// with a quest whose stops cannot be traversed.
//
// Returns:
//   - *Config: Valid catalog with challenges built and stops sorted by order
//   - error: Descriptive error if loading or validation fails
func (l *ConfigLoader) LoadConfig() (*Config, error) {
	// Step 1: Read file
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Step 2: Parse JSON or YAML
	config, err := l.parse(data)
	if err != nil {
		return nil, err
	}

	// Step 3: Link each stop to its quest and sort stops into traversal order
	for _, quest := range config.Quests {
		if quest == nil {
			continue
		}
		for _, stop := range quest.Stops {
			if stop != nil {
				stop.QuestID = quest.ID
			}
		}
		sort.SliceStable(quest.Stops, func(i, j int) bool {
			if quest.Stops[i] == nil || quest.Stops[j] == nil {
				return quest.Stops[j] == nil && quest.Stops[i] != nil
			}
			return quest.Stops[i].Order < quest.Stops[j].Order
		})
	}

	// Step 4: Validate
	if err := l.validator.Validate(config); err != nil {
		return nil, customerrors.ErrConfigInvalid(err)
	}

	// Step 5: Build challenge variants (cannot fail once validated)
	for _, quest := range config.Quests {
		for _, stop := range quest.Stops {
			challenge, err := stop.ChallengeSpec.Build()
			if err != nil {
				return nil, fmt.Errorf("failed to build challenge for stop %d of quest '%s': %w", stop.Order, quest.ID, err)
			}
			stop.Challenge = challenge
		}
	}

	l.logger.Info("Quest catalog loaded successfully",
		"quests", len(config.Quests),
		"total_stops", l.countStops(config),
		"config_path", l.configPath,
	)

	return config, nil
}

func (l *ConfigLoader) parse(data []byte) (*Config, error) {
	var config Config

	switch strings.ToLower(filepath.Ext(l.configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &config, nil
}

// countStops counts the total number of stops across all quests.
func (l *ConfigLoader) countStops(config *Config) int {
	count := 0
	for _, quest := range config.Quests {
		count += len(quest.Stops)
	}
	return count
}
