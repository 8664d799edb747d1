package events

import (
	"context"
	"log/slog"

	"github.com/urbanquest/quest-progression/pkg/domain"
)

// LogPublisher writes events to a structured logger and always succeeds.
// It is the default when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event at info level.
func (p *LogPublisher) Publish(ctx context.Context, event domain.ProgressEvent) error {
	p.logger.InfoContext(ctx, "Progress event",
		"event_id", event.ID,
		"type", event.Type,
		"player_id", event.PlayerID,
		"quest_id", event.QuestID,
		"progress_id", event.ProgressID,
		"stop_order", event.StopOrder,
		"points_awarded", event.PointsAwarded,
		"total_points", event.TotalPoints,
	)
	return nil
}
