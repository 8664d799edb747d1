package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/urbanquest/quest-progression/pkg/domain"
	"github.com/urbanquest/quest-progression/pkg/errors"
)

type completionKey struct {
	playerID  string
	questID   string
	stopOrder int
}

// InMemoryProgressRepository implements ProgressRepository in process memory.
// It enforces the same constraints as the PostgreSQL schema and stores copies,
// so callers never share state with the repository.
type InMemoryProgressRepository struct {
	mu          sync.RWMutex
	progress    map[string]*domain.QuestProgress // progress ID -> snapshot
	completions map[completionKey]*domain.StopCompletion
}

// NewInMemoryProgressRepository creates an empty in-memory repository.
func NewInMemoryProgressRepository() *InMemoryProgressRepository {
	return &InMemoryProgressRepository{
		progress:    make(map[string]*domain.QuestProgress),
		completions: make(map[completionKey]*domain.StopCompletion),
	}
}

// Load returns a copy of the player's current playthrough of a quest.
func (r *InMemoryProgressRepository) Load(_ context.Context, playerID, questID string) (*domain.QuestProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.QuestProgress
	for _, p := range r.progress {
		if p.PlayerID != playerID || p.QuestID != questID {
			continue
		}
		if p.IsInProgress() {
			return p.Clone(), nil
		}
		if latest == nil || laterRun(p, latest) {
			latest = p
		}
	}

	return latest.Clone(), nil
}

// Save stores a copy of progress after the optimistic version check.
func (r *InMemoryProgressRepository) Save(_ context.Context, progress *domain.QuestProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.progress[progress.ID]

	if progress.Version == 0 {
		if exists {
			return errors.ErrConcurrentModification(progress.ID, 0)
		}
		if progress.IsInProgress() && r.hasInProgressLocked(progress.PlayerID, progress.QuestID) {
			return errors.ErrConcurrentModification(progress.ID, 0)
		}
		if progress.Attempt < 1 {
			progress.Attempt = 1
		}
	} else if !exists || stored.Version != progress.Version || stored.IsCompleted() {
		return errors.ErrConcurrentModification(progress.ID, progress.Version)
	}

	progress.Version++
	r.progress[progress.ID] = progress.Clone()

	return nil
}

// laterRun orders playthroughs of one quest the way Load's SQL does:
// attempt, then started_at, then updated_at, then id.
func laterRun(a, b *domain.QuestProgress) bool {
	if a.Attempt != b.Attempt {
		return a.Attempt > b.Attempt
	}
	if !a.StartedAt.Equal(b.StartedAt) {
		return a.StartedAt.After(b.StartedAt)
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID > b.ID
}

func (r *InMemoryProgressRepository) hasInProgressLocked(playerID, questID string) bool {
	for _, p := range r.progress {
		if p.PlayerID == playerID && p.QuestID == questID && p.IsInProgress() {
			return true
		}
	}
	return false
}

// GetPlayerProgress returns copies of every playthrough of a player, oldest first.
func (r *InMemoryProgressRepository) GetPlayerProgress(_ context.Context, playerID string) ([]*domain.QuestProgress, error) {
	return r.collect(func(p *domain.QuestProgress) bool {
		return p.PlayerID == playerID
	}), nil
}

// GetProgressByQuestIDs returns copies of a player's playthroughs limited to questIDs.
func (r *InMemoryProgressRepository) GetProgressByQuestIDs(_ context.Context, playerID string, questIDs []string) ([]*domain.QuestProgress, error) {
	wanted := make(map[string]bool, len(questIDs))
	for _, id := range questIDs {
		wanted[id] = true
	}
	return r.collect(func(p *domain.QuestProgress) bool {
		return p.PlayerID == playerID && wanted[p.QuestID]
	}), nil
}

func (r *InMemoryProgressRepository) collect(match func(*domain.QuestProgress) bool) []*domain.QuestProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := []*domain.QuestProgress{}
	for _, p := range r.progress {
		if match(p) {
			results = append(results, p.Clone())
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].StartedAt.Equal(results[j].StartedAt) {
			if results[i].Attempt != results[j].Attempt {
				return results[i].Attempt < results[j].Attempt
			}
			return results[i].ID < results[j].ID
		}
		return results[i].StartedAt.Before(results[j].StartedAt)
	})

	return results
}

// RecordStopCompletion stores a completion fact at most once.
func (r *InMemoryProgressRepository) RecordStopCompletion(_ context.Context, completion *domain.StopCompletion) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := completionKey{
		playerID:  completion.PlayerID,
		questID:   completion.QuestID,
		stopOrder: completion.StopOrder,
	}
	if _, exists := r.completions[key]; exists {
		return false, nil
	}

	c := *completion
	r.completions[key] = &c

	return true, nil
}

// GetStopCompletions returns copies of a player's completions for a quest, by stop order.
func (r *InMemoryProgressRepository) GetStopCompletions(_ context.Context, playerID, questID string) ([]*domain.StopCompletion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := []*domain.StopCompletion{}
	for key, c := range r.completions {
		if key.playerID == playerID && key.questID == questID {
			copied := *c
			results = append(results, &copied)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StopOrder < results[j].StopOrder
	})

	return results, nil
}
