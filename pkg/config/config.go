package config

import "github.com/urbanquest/quest-progression/pkg/domain"

// Config represents the quest catalog loaded from quests.json (or quests.yaml).
// This structure is parsed and validated during application startup.
type Config struct {
	Quests []*domain.QuestDefinition `json:"quests" yaml:"quests"`
}
