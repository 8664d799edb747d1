// Package engine implements the quest progression state machine.
//
// The engine operates on a *domain.QuestProgress value supplied by the caller
// and mutates it in place. It performs no I/O beyond catalog lookups; saving
// the result and emitting events is the caller's job. A transition that
// returns an error leaves the progress value untouched.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/urbanquest/quest-progression/pkg/cache"
	"github.com/urbanquest/quest-progression/pkg/common"
	"github.com/urbanquest/quest-progression/pkg/domain"
	customerrors "github.com/urbanquest/quest-progression/pkg/errors"
	"github.com/urbanquest/quest-progression/pkg/geo"
)

// Engine enforces the legal sequence of actions for a playthrough.
// It is safe for concurrent use; callers serialize access to each progress value.
type Engine struct {
	catalog       cache.QuestCatalog
	clock         common.Clock
	defaultRadius float64
	logger        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for started_at, updated_at and completed_at.
func WithClock(clock common.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithDefaultRadius sets the arrival radius for stops that do not define one.
// Non-positive values are ignored.
func WithDefaultRadius(meters float64) Option {
	return func(e *Engine) {
		if meters > 0 {
			e.defaultRadius = meters
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine backed by the given catalog.
func New(catalog cache.QuestCatalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:       catalog,
		clock:         common.SystemClock{},
		defaultRadius: geo.DefaultArrivalRadiusMeters,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitResult is the outcome of a challenge submission.
type SubmitResult struct {
	Correct bool
	// AlreadySolved is true when the stop had been solved by an earlier submission.
	AlreadySolved bool
	PointsAwarded int
	// Message is the stop's success or failure text, if any.
	Message string
}

// AdvanceResult is the outcome of AdvanceToNextStop.
type AdvanceResult struct {
	Completed     bool
	NextStopOrder int
	// AutoSolved is true when a location-only stop was solved by advancing past it.
	AutoSolved    bool
	PointsAwarded int
}

// Begin starts a playthrough of questID for playerID.
//
// If existing is an in-progress playthrough of the same pair it is returned
// unchanged with resumed=true. A nil or completed existing value starts a
// fresh playthrough at stop 1.
func (e *Engine) Begin(questID, playerID string, existing *domain.QuestProgress) (*domain.QuestProgress, bool, error) {
	if playerID == "" {
		return nil, false, customerrors.ErrValidationFailed("player_id", "cannot be empty")
	}

	quest := e.catalog.GetQuestByID(questID)
	if quest == nil {
		return nil, false, customerrors.ErrQuestNotFound(questID)
	}

	if existing != nil {
		if existing.PlayerID != playerID || existing.QuestID != questID {
			return nil, false, customerrors.ErrValidationFailed("progress",
				fmt.Sprintf("belongs to player %s and quest %s", existing.PlayerID, existing.QuestID))
		}
		if existing.IsInProgress() {
			return existing, true, nil
		}
	}

	if e.catalog.GetStop(questID, 1) == nil {
		return nil, false, customerrors.ErrStopNotFound(questID, 1)
	}

	attempt := 1
	if existing != nil {
		attempt = existing.Attempt + 1
	}

	now := e.clock.Now()
	progress := &domain.QuestProgress{
		ID:               uuid.NewString(),
		PlayerID:         playerID,
		QuestID:          questID,
		Attempt:          attempt,
		Status:           domain.ProgressStatusInProgress,
		CurrentStopOrder: 1,
		StartedAt:        now,
		UpdatedAt:        now,
	}

	e.logger.Info("Quest started",
		"player_id", playerID,
		"quest_id", questID,
		"progress_id", progress.ID,
		"attempt", attempt,
		"stops", quest.StopCount(),
	)

	return progress, false, nil
}

// CurrentStop returns the stop the player must currently satisfy.
func (e *Engine) CurrentStop(p *domain.QuestProgress) (*domain.StopDefinition, error) {
	if err := e.guard(p); err != nil {
		return nil, err
	}
	stop, _, err := e.resolveStop(p.QuestID, p.CurrentStopOrder)
	return stop, err
}

// ConfirmArrival marks the player as arrived when reported lies within the
// current stop's radius. Remote stops arrive without a distance check.
// Returns false, with no mutation, when the player is still too far away.
func (e *Engine) ConfirmArrival(p *domain.QuestProgress, reported domain.Location) (bool, error) {
	if err := e.guard(p); err != nil {
		return false, err
	}

	stop, _, err := e.resolveStop(p.QuestID, p.CurrentStopOrder)
	if err != nil {
		return false, err
	}

	if p.HasArrived {
		return true, nil
	}

	if !stop.Remote {
		if err := reported.Validate(); err != nil {
			return false, customerrors.ErrInvalidLocation(err.Error())
		}

		distance := geo.DistanceMeters(reported, stop.Location)
		radius := stop.RadiusOr(e.defaultRadius)
		if distance > radius {
			e.logger.Debug("Arrival outside radius",
				"progress_id", p.ID,
				"stop_order", stop.Order,
				"distance_m", distance,
				"radius_m", radius,
			)
			return false, nil
		}
	}

	p.HasArrived = true
	p.UpdatedAt = e.clock.Now()

	return true, nil
}

// SubmitChallengeResponse evaluates resp against the current stop's challenge.
// The player must have arrived. A correct answer awards the stop's points once;
// resubmitting after that returns the earlier correct result.
func (e *Engine) SubmitChallengeResponse(p *domain.QuestProgress, resp domain.ChallengeResponse) (SubmitResult, error) {
	if err := e.guard(p); err != nil {
		return SubmitResult{}, err
	}

	stop, challenge, err := e.resolveStop(p.QuestID, p.CurrentStopOrder)
	if err != nil {
		return SubmitResult{}, err
	}

	if !p.HasArrived {
		return SubmitResult{}, customerrors.ErrOutOfSequence(
			fmt.Sprintf("player has not arrived at stop %d", stop.Order))
	}

	if p.CurrentStopSolved {
		return SubmitResult{
			Correct:       true,
			AlreadySolved: true,
			Message:       challenge.SuccessMessage(),
		}, nil
	}

	if !Evaluate(challenge, resp) {
		return SubmitResult{Correct: false, Message: challenge.FailureMessage()}, nil
	}

	p.CurrentStopSolved = true
	p.AccumulatedPoints += stop.Points
	p.UpdatedAt = e.clock.Now()

	return SubmitResult{
		Correct:       true,
		PointsAwarded: stop.Points,
		Message:       challenge.SuccessMessage(),
	}, nil
}

// AdvanceToNextStop moves past a solved stop, or completes the quest when the
// current stop is the last one.
func (e *Engine) AdvanceToNextStop(p *domain.QuestProgress) (AdvanceResult, error) {
	if err := e.guard(p); err != nil {
		return AdvanceResult{}, err
	}

	stop, challenge, err := e.resolveStop(p.QuestID, p.CurrentStopOrder)
	if err != nil {
		return AdvanceResult{}, err
	}

	var result AdvanceResult
	if !p.CurrentStopSolved {
		// Location-only stops have no submission step; arrival is the answer.
		if challenge.Kind() != domain.ChallengeKindLocationOnly || !p.HasArrived {
			return AdvanceResult{}, customerrors.ErrOutOfSequence(
				fmt.Sprintf("stop %d has not been solved", stop.Order))
		}
		result.AutoSolved = true
		result.PointsAwarded = stop.Points
	}

	quest := e.catalog.GetQuestByID(p.QuestID)
	if quest == nil {
		return AdvanceResult{}, customerrors.ErrQuestNotFound(p.QuestID)
	}
	last := p.CurrentStopOrder >= quest.StopCount()

	if !last {
		next := p.CurrentStopOrder + 1
		if e.catalog.GetStop(p.QuestID, next) == nil {
			return AdvanceResult{}, customerrors.ErrStopNotFound(p.QuestID, next)
		}
		result.NextStopOrder = next
	}

	now := e.clock.Now()
	p.AccumulatedPoints += result.PointsAwarded
	p.HasArrived = false
	p.CurrentStopSolved = false
	p.UpdatedAt = now

	if last {
		p.Status = domain.ProgressStatusCompleted
		p.CompletedAt = &now
		result.Completed = true

		e.logger.Info("Quest completed",
			"player_id", p.PlayerID,
			"quest_id", p.QuestID,
			"progress_id", p.ID,
			"points", p.AccumulatedPoints,
		)
		return result, nil
	}

	p.CurrentStopOrder = result.NextStopOrder
	return result, nil
}

// guard rejects transitions on progress that is not in progress.
func (e *Engine) guard(p *domain.QuestProgress) error {
	if p == nil {
		return customerrors.ErrValidationFailed("progress", "cannot be nil")
	}
	switch p.Status {
	case domain.ProgressStatusInProgress:
		return nil
	case domain.ProgressStatusCompleted:
		return customerrors.ErrQuestAlreadyCompleted(p.QuestID)
	default:
		return customerrors.ErrNotStarted(p.PlayerID, p.QuestID)
	}
}

// resolveStop looks up a stop and its challenge. A stop missing from the
// catalog, or one whose challenge cannot be built, is a catalog integrity error.
func (e *Engine) resolveStop(questID string, order int) (*domain.StopDefinition, domain.Challenge, error) {
	if e.catalog.GetQuestByID(questID) == nil {
		return nil, nil, customerrors.ErrQuestNotFound(questID)
	}

	stop := e.catalog.GetStop(questID, order)
	if stop == nil {
		return nil, nil, customerrors.ErrStopNotFound(questID, order)
	}

	if stop.Challenge != nil {
		return stop, stop.Challenge, nil
	}

	challenge, err := stop.ChallengeSpec.Build()
	if err != nil {
		e.logger.Error("Stop has an invalid challenge",
			"quest_id", questID,
			"stop_order", order,
			"error", err,
		)
		return nil, nil, customerrors.NewQuestError(customerrors.ErrCodeStopNotFound,
			fmt.Sprintf("stop %d in quest %s has an invalid challenge", order, questID), err)
	}
	return stop, challenge, nil
}
