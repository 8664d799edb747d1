package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/urbanquest/quest-progression/pkg/domain"
)

// Validator validates quest catalog files.
// It ensures every quest can be traversed before the application starts.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate performs comprehensive validation of the catalog.
// It checks for:
// - At least one quest exists
// - All quest IDs are unique
// - Every quest has stops numbered exactly 1..n
// - Stop locations, radii, points and challenges are well formed
//
// Returns an error describing the first validation failure encountered.
func (v *Validator) Validate(config *Config) error {
	if config == nil || len(config.Quests) == 0 {
		return errors.New("config must have at least one quest")
	}

	questIDs := make(map[string]bool)

	for i, quest := range config.Quests {
		if quest == nil {
			return fmt.Errorf("quest at position %d is empty", i)
		}

		if err := v.validateQuest(quest); err != nil {
			return fmt.Errorf("invalid quest '%s': %w", quest.ID, err)
		}

		if questIDs[quest.ID] {
			return fmt.Errorf("duplicate quest ID: %s", quest.ID)
		}
		questIDs[quest.ID] = true
	}

	return nil
}

// validateQuest validates a single quest and all of its stops.
func (v *Validator) validateQuest(quest *domain.QuestDefinition) error {
	if quest.ID == "" {
		return errors.New("quest ID cannot be empty")
	}
	if quest.Title == "" {
		return errors.New("quest title cannot be empty")
	}
	if len(quest.Stops) == 0 {
		return errors.New("quest must have at least one stop")
	}

	orders := make(map[int]bool, len(quest.Stops))
	stopIDs := make(map[string]bool, len(quest.Stops))

	for i, stop := range quest.Stops {
		if stop == nil {
			return fmt.Errorf("stop at position %d is empty", i)
		}
		if err := v.validateStop(stop); err != nil {
			return fmt.Errorf("invalid stop %d: %w", stop.Order, err)
		}

		if orders[stop.Order] {
			return fmt.Errorf("duplicate stop order: %d", stop.Order)
		}
		orders[stop.Order] = true

		if stop.ID != "" {
			if stopIDs[stop.ID] {
				return fmt.Errorf("duplicate stop ID: %s", stop.ID)
			}
			stopIDs[stop.ID] = true
		}
	}

	// Orders are unique, so 1..n all present means no gaps and nothing out of range
	for order := 1; order <= len(quest.Stops); order++ {
		if !orders[order] {
			return fmt.Errorf("stop orders must run from 1 to %d without gaps: missing order %d", len(quest.Stops), order)
		}
	}

	return nil
}

// validateStop validates a single stop.
func (v *Validator) validateStop(stop *domain.StopDefinition) error {
	if stop.Order < 1 {
		return fmt.Errorf("order must be at least 1 (got %d)", stop.Order)
	}
	if stop.Points < 0 {
		return fmt.Errorf("points cannot be negative (got %d)", stop.Points)
	}

	if stop.ArrivalRadiusMeters != nil {
		r := *stop.ArrivalRadiusMeters
		if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
			return fmt.Errorf("arrival_radius_meters must be a positive number (got %v)", r)
		}
	}

	if !stop.Remote {
		if err := stop.Location.Validate(); err != nil {
			return fmt.Errorf("invalid location: %w", err)
		}
	}

	if stop.ChallengeSpec.Type == domain.ChallengeKindLocationOnly && stop.Remote {
		return errors.New("location_only challenge cannot be used on a remote stop")
	}

	if _, err := stop.ChallengeSpec.Build(); err != nil {
		return fmt.Errorf("invalid challenge: %w", err)
	}

	return nil
}
