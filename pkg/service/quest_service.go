// Package service wires the catalog, engine, repository and event publisher
// into the operations the presentation layer calls.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urbanquest/quest-progression/pkg/cache"
	"github.com/urbanquest/quest-progression/pkg/common"
	"github.com/urbanquest/quest-progression/pkg/domain"
	"github.com/urbanquest/quest-progression/pkg/engine"
	customerrors "github.com/urbanquest/quest-progression/pkg/errors"
	"github.com/urbanquest/quest-progression/pkg/events"
	"github.com/urbanquest/quest-progression/pkg/repository"
)

// QuestService runs every transition as load, engine on a copy, save, then publish.
// Mutations for the same (player, quest) are serialized in process; the
// repository's version check catches writers in other processes.
type QuestService struct {
	catalog   cache.QuestCatalog
	engine    *engine.Engine
	repo      repository.ProgressRepository
	publisher events.Publisher
	clock     common.Clock
	logger    *slog.Logger
	locks     *keyedMutex
}

// NewQuestService creates a QuestService. A nil publisher disables events;
// a nil clock or logger falls back to the system clock and slog.Default.
func NewQuestService(
	catalog cache.QuestCatalog,
	eng *engine.Engine,
	repo repository.ProgressRepository,
	publisher events.Publisher,
	clock common.Clock,
	logger *slog.Logger,
) *QuestService {
	if publisher == nil {
		publisher = events.NewMultiPublisher()
	}
	if clock == nil {
		clock = common.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QuestService{
		catalog:   catalog,
		engine:    eng,
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		locks:     newKeyedMutex(),
	}
}

// BeginQuest starts or resumes the player's playthrough of questID.
// resumed is true when an in-progress playthrough already existed.
func (s *QuestService) BeginQuest(ctx context.Context, playerID, questID string) (progress *domain.QuestProgress, resumed bool, err error) {
	unlock := s.locks.Lock(lockKey(playerID, questID))
	defer unlock()

	existing, err := s.repo.Load(ctx, playerID, questID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load progress: %w", err)
	}

	progress, resumed, err = s.engine.Begin(questID, playerID, existing)
	if err != nil {
		return nil, false, err
	}
	if resumed {
		return progress, true, nil
	}

	if err := s.repo.Save(ctx, progress); err != nil {
		return nil, false, fmt.Errorf("failed to save progress: %w", err)
	}

	s.publish(ctx, events.NewEvent(domain.EventQuestStarted, progress, 0, 0, progress.StartedAt))

	return progress, false, nil
}

// CurrentStop returns the stop the player is working on.
func (s *QuestService) CurrentStop(ctx context.Context, playerID, questID string) (*domain.StopDefinition, error) {
	progress, err := s.GetProgress(ctx, playerID, questID)
	if err != nil {
		return nil, err
	}
	return s.engine.CurrentStop(progress)
}

// ConfirmArrival checks the reported location against the current stop.
// The returned progress reflects the stored state after the call.
func (s *QuestService) ConfirmArrival(ctx context.Context, playerID, questID string, loc domain.Location) (*domain.QuestProgress, bool, error) {
	var arrived bool
	progress, err := s.mutate(ctx, playerID, questID, func(p *domain.QuestProgress) (bool, error) {
		wasArrived := p.HasArrived
		var err error
		arrived, err = s.engine.ConfirmArrival(p, loc)
		if err != nil {
			return false, err
		}
		return arrived && !wasArrived, nil
	}, func(p *domain.QuestProgress) {
		s.publish(ctx, events.NewEvent(domain.EventStopArrived, p, p.CurrentStopOrder, 0, p.UpdatedAt))
	})
	if err != nil {
		return nil, false, err
	}
	return progress, arrived, nil
}

// SubmitChallengeResponse evaluates resp for the current stop. A correct first
// answer is saved, recorded as a stop completion and published.
func (s *QuestService) SubmitChallengeResponse(ctx context.Context, playerID, questID string, resp domain.ChallengeResponse) (*domain.QuestProgress, engine.SubmitResult, error) {
	var result engine.SubmitResult
	progress, err := s.mutate(ctx, playerID, questID, func(p *domain.QuestProgress) (bool, error) {
		var err error
		result, err = s.engine.SubmitChallengeResponse(p, resp)
		if err != nil {
			return false, err
		}
		return result.Correct && !result.AlreadySolved, nil
	}, func(p *domain.QuestProgress) {
		s.completeStop(ctx, p, p.CurrentStopOrder, result.PointsAwarded)
	})
	if err != nil {
		return nil, engine.SubmitResult{}, err
	}
	return progress, result, nil
}

// AdvanceToNextStop moves past the solved current stop or completes the quest.
func (s *QuestService) AdvanceToNextStop(ctx context.Context, playerID, questID string) (*domain.QuestProgress, engine.AdvanceResult, error) {
	var (
		result    engine.AdvanceResult
		leftOrder int
	)
	progress, err := s.mutate(ctx, playerID, questID, func(p *domain.QuestProgress) (bool, error) {
		leftOrder = p.CurrentStopOrder
		var err error
		result, err = s.engine.AdvanceToNextStop(p)
		if err != nil {
			return false, err
		}
		return true, nil
	}, func(p *domain.QuestProgress) {
		if result.AutoSolved {
			s.completeStop(ctx, p, leftOrder, result.PointsAwarded)
		}
		if result.Completed {
			s.publish(ctx, events.NewEvent(domain.EventQuestCompleted, p, 0, 0, *p.CompletedAt))
		}
	})
	if err != nil {
		return nil, engine.AdvanceResult{}, err
	}
	return progress, result, nil
}

// GetProgress returns the player's current playthrough of questID.
func (s *QuestService) GetProgress(ctx context.Context, playerID, questID string) (*domain.QuestProgress, error) {
	progress, err := s.repo.Load(ctx, playerID, questID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if progress == nil {
		return nil, customerrors.ErrNotStarted(playerID, questID)
	}
	return progress, nil
}

// GetPlayerProgress returns every playthrough of the player.
func (s *QuestService) GetPlayerProgress(ctx context.Context, playerID string) ([]*domain.QuestProgress, error) {
	progress, err := s.repo.GetPlayerProgress(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player progress: %w", err)
	}
	return progress, nil
}

// GetPlayerProgressInCity returns the player's playthroughs of quests set in city.
func (s *QuestService) GetPlayerProgressInCity(ctx context.Context, playerID, city string) ([]*domain.QuestProgress, error) {
	quests := s.catalog.GetQuestsByCity(city)
	if len(quests) == 0 {
		return []*domain.QuestProgress{}, nil
	}

	questIDs := make([]string, 0, len(quests))
	for _, q := range quests {
		questIDs = append(questIDs, q.ID)
	}

	progress, err := s.repo.GetProgressByQuestIDs(ctx, playerID, questIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get player progress in %s: %w", city, err)
	}
	return progress, nil
}

// mutate loads the playthrough, applies apply to a copy and saves the copy
// when apply reports a change. after runs only once the save succeeded.
// Unchanged or failed transitions return the stored state.
func (s *QuestService) mutate(
	ctx context.Context,
	playerID, questID string,
	apply func(*domain.QuestProgress) (bool, error),
	after func(*domain.QuestProgress),
) (*domain.QuestProgress, error) {
	unlock := s.locks.Lock(lockKey(playerID, questID))
	defer unlock()

	stored, err := s.GetProgress(ctx, playerID, questID)
	if err != nil {
		return nil, err
	}

	working := stored.Clone()
	changed, err := apply(working)
	if err != nil {
		return nil, err
	}
	if !changed {
		return stored, nil
	}

	if err := s.repo.Save(ctx, working); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	after(working)

	return working, nil
}

// completeStop records the completion fact and publishes it. The fact is
// stored once per stop; the event is published on every solve.
func (s *QuestService) completeStop(ctx context.Context, p *domain.QuestProgress, order, points int) {
	now := s.clock.Now()

	recorded, err := s.repo.RecordStopCompletion(ctx, &domain.StopCompletion{
		PlayerID:      p.PlayerID,
		QuestID:       p.QuestID,
		StopOrder:     order,
		PointsAwarded: points,
		CompletedAt:   now,
	})
	if err != nil {
		s.logger.Error("Failed to record stop completion",
			"player_id", p.PlayerID,
			"quest_id", p.QuestID,
			"stop_order", order,
			"error", err,
		)
	} else if !recorded {
		s.logger.Debug("Stop completion already recorded",
			"player_id", p.PlayerID,
			"quest_id", p.QuestID,
			"stop_order", order,
		)
	}

	s.publish(ctx, events.NewEvent(domain.EventStopCompleted, p, order, points, now))
}

func (s *QuestService) publish(ctx context.Context, event domain.ProgressEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Progress event not delivered",
			"event_id", event.ID,
			"player_id", event.PlayerID,
			"quest_id", event.QuestID,
			"error", customerrors.ErrEventPublishFailed(string(event.Type), err),
		)
	}
}

func lockKey(playerID, questID string) string {
	return playerID + "\x00" + questID
}
