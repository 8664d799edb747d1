package repository

import (
	"context"

	"github.com/urbanquest/quest-progression/pkg/domain"
)

// ProgressRepository persists quest progress snapshots and stop completion facts.
// Implementations must be safe for concurrent use.
type ProgressRepository interface {
	// Load returns the player's current playthrough of a quest: the in-progress
	// one if any, otherwise the most recently started one.
	// Returns nil if the player never started the quest.
	Load(ctx context.Context, playerID, questID string) (*domain.QuestProgress, error)

	// Save writes a progress snapshot using optimistic concurrency.
	// Version 0 inserts a new row; otherwise the row is updated only if its
	// stored version still equals progress.Version. On success progress.Version
	// is incremented. Completed rows are never overwritten.
	// Returns CONCURRENT_MODIFICATION when the check fails.
	Save(ctx context.Context, progress *domain.QuestProgress) error

	// GetPlayerProgress returns every playthrough of a player, oldest first.
	// Returns an empty slice if the player has none.
	GetPlayerProgress(ctx context.Context, playerID string) ([]*domain.QuestProgress, error)

	// GetProgressByQuestIDs returns the player's playthroughs limited to questIDs, oldest first.
	GetProgressByQuestIDs(ctx context.Context, playerID string, questIDs []string) ([]*domain.QuestProgress, error)

	// RecordStopCompletion stores a completion fact at most once per
	// (player, quest, stop order). Returns false if it was already recorded.
	RecordStopCompletion(ctx context.Context, completion *domain.StopCompletion) (bool, error)

	// GetStopCompletions returns the recorded completions for a player's quest, by stop order.
	GetStopCompletions(ctx context.Context, playerID, questID string) ([]*domain.StopCompletion, error)
}
