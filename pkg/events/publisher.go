// Package events delivers progress facts to the persistence collaborator and
// other downstream consumers. Delivery is at-least-once; consumers identify a
// fact by (player, quest, stop order, type) and must tolerate duplicates.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/urbanquest/quest-progression/pkg/domain"
)

// Publisher emits progress events after a transition has been saved.
type Publisher interface {
	Publish(ctx context.Context, event domain.ProgressEvent) error
}

// NewEvent builds a ProgressEvent for progress with a fresh event ID.
// stopOrder and points are zero for quest-level events.
func NewEvent(eventType domain.EventType, progress *domain.QuestProgress, stopOrder, points int, now time.Time) domain.ProgressEvent {
	return domain.ProgressEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		PlayerID:      progress.PlayerID,
		QuestID:       progress.QuestID,
		ProgressID:    progress.ID,
		StopOrder:     stopOrder,
		PointsAwarded: points,
		TotalPoints:   progress.AccumulatedPoints,
		OccurredAt:    now,
	}
}
