package cache

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/urbanquest/quest-progression/pkg/config"
	"github.com/urbanquest/quest-progression/pkg/domain"
)

type stopKey struct {
	questID string
	order   int
}

// InMemoryQuestCatalog indexes the validated catalog for O(1) lookups.
// Quest definitions are shared and must be treated as immutable by callers.
type InMemoryQuestCatalog struct {
	questsByID  map[string]*domain.QuestDefinition   // "quest-id" -> Quest
	questsByCty map[string][]*domain.QuestDefinition // lower-cased city -> [Quests]
	stops       map[stopKey]*domain.StopDefinition   // (quest, order) -> Stop
	quests      []*domain.QuestDefinition            // All quests (ordered)
	configPath  string                               // Path to catalog file (for reload)
	mu          sync.RWMutex                         // Protects all maps
	logger      *slog.Logger
}

// NewInMemoryQuestCatalog creates a catalog from the provided configuration.
//
// Parameters:
//   - cfg: Validated configuration containing quests and stops
//   - configPath: Path to the catalog file (used for reload)
//   - logger: Structured logger for operational logging
func NewInMemoryQuestCatalog(cfg *config.Config, configPath string, logger *slog.Logger) *InMemoryQuestCatalog {
	c := &InMemoryQuestCatalog{
		configPath: configPath,
		logger:     logger,
	}

	c.build(cfg)

	return c
}

// build replaces all indexes with ones derived from cfg.
func (c *InMemoryQuestCatalog) build(cfg *config.Config) {
	questsByID := make(map[string]*domain.QuestDefinition, len(cfg.Quests))
	questsByCity := make(map[string][]*domain.QuestDefinition)
	stops := make(map[stopKey]*domain.StopDefinition)
	quests := make([]*domain.QuestDefinition, 0, len(cfg.Quests))

	for _, quest := range cfg.Quests {
		questsByID[quest.ID] = quest
		quests = append(quests, quest)

		city := strings.ToLower(strings.TrimSpace(quest.City))
		questsByCity[city] = append(questsByCity[city], quest)

		for _, stop := range quest.Stops {
			stops[stopKey{questID: quest.ID, order: stop.Order}] = stop
		}
	}

	c.mu.Lock()
	c.questsByID = questsByID
	c.questsByCty = questsByCity
	c.stops = stops
	c.quests = quests
	c.mu.Unlock()

	c.logger.Info("Quest catalog built successfully",
		"quests", len(quests),
		"stops", len(stops),
		"cities", len(questsByCity),
	)
}

// GetQuestByID retrieves a quest by its unique ID.
func (c *InMemoryQuestCatalog) GetQuestByID(questID string) *domain.QuestDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.questsByID[questID]
}

// GetStop retrieves a stop by quest ID and 1-based order.
func (c *InMemoryQuestCatalog) GetStop(questID string, order int) *domain.StopDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.stops[stopKey{questID: questID, order: order}]
}

// GetAllQuests returns all quests in catalog order.
func (c *InMemoryQuestCatalog) GetAllQuests() []*domain.QuestDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.quests
}

// GetQuestsByCity returns all quests for a city. Returns an empty slice when none match.
func (c *InMemoryQuestCatalog) GetQuestsByCity(city string) []*domain.QuestDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	quests := c.questsByCty[strings.ToLower(strings.TrimSpace(city))]
	if quests == nil {
		return []*domain.QuestDefinition{}
	}
	return quests
}

// Reload reloads the catalog from the config file.
// Progress rows keep pointing at quests by ID, so a reload that removes a quest
// surfaces as QUEST_NOT_FOUND on the next transition.
func (c *InMemoryQuestCatalog) Reload() error {
	loader := config.NewConfigLoader(c.configPath, c.logger)
	newConfig, err := loader.LoadConfig()
	if err != nil {
		return err
	}

	c.build(newConfig)

	c.logger.Info("Quest catalog reloaded successfully")

	return nil
}
