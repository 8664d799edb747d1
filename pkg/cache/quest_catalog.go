package cache

import "github.com/urbanquest/quest-progression/pkg/domain"

// QuestCatalog provides in-memory lookups for quest definitions.
// It is built at application startup from the quest catalog file.
// All lookups are read-only and thread-safe.
type QuestCatalog interface {
	// GetQuestByID retrieves a quest by its unique ID.
	// Returns nil if the quest does not exist.
	GetQuestByID(questID string) *domain.QuestDefinition

	// GetStop retrieves the stop with the given order within a quest.
	// Returns nil if either the quest or the stop does not exist.
	GetStop(questID string, order int) *domain.StopDefinition

	// GetAllQuests returns all quests in catalog file order.
	GetAllQuests() []*domain.QuestDefinition

	// GetQuestsByCity returns quests whose city matches case-insensitively.
	GetQuestsByCity(city string) []*domain.QuestDefinition

	// Reload re-reads and re-validates the catalog file.
	// On error the previous catalog stays in place.
	Reload() error
}
