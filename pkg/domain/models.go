package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Location is a WGS84 latitude/longitude pair.
type Location struct {
	Latitude  float64 `json:"lat" yaml:"lat"`
	Longitude float64 `json:"lng" yaml:"lng"`
}

// Validate reports whether the coordinates are finite and inside the WGS84 bounds.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || math.IsInf(l.Latitude, 0) ||
		math.IsNaN(l.Longitude) || math.IsInf(l.Longitude, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", l.Longitude)
	}
	return nil
}

// QuestDefinition is an immutable quest as published in the catalog.
// Stops are kept sorted by Order once the catalog has been loaded.
type QuestDefinition struct {
	ID          string            `json:"id" yaml:"id"`
	Title       string            `json:"title" yaml:"title"`
	City        string            `json:"city" yaml:"city"`
	Description string            `json:"description" yaml:"description"`
	Difficulty  string            `json:"difficulty" yaml:"difficulty"`
	Stops       []*StopDefinition `json:"stops" yaml:"stops"`
}

// TotalPoints returns the sum of all stop point values.
func (q *QuestDefinition) TotalPoints() int {
	total := 0
	for _, stop := range q.Stops {
		total += stop.Points
	}
	return total
}

// StopCount returns the number of stops in the quest.
func (q *QuestDefinition) StopCount() int {
	return len(q.Stops)
}

// StopByOrder returns the stop with the given 1-based order, or nil.
func (q *QuestDefinition) StopByOrder(order int) *StopDefinition {
	if order >= 1 && order <= len(q.Stops) && q.Stops[order-1].Order == order {
		return q.Stops[order-1]
	}
	for _, stop := range q.Stops {
		if stop.Order == order {
			return stop
		}
	}
	return nil
}

// StopDefinition is one waypoint of a quest.
type StopDefinition struct {
	ID      string   `json:"id" yaml:"id"`
	QuestID string   `json:"quest_id" yaml:"quest_id"` // Populated by the loader from the parent quest
	Order   int      `json:"order" yaml:"order"`
	Title   string   `json:"title" yaml:"title"`
	Clue    string   `json:"clue" yaml:"clue"`
	Info    string   `json:"info" yaml:"info"`
	Hints   []string `json:"hints,omitempty" yaml:"hints,omitempty"`

	Location Location `json:"location" yaml:"location"`
	// Remote stops have no physical gating: arrival is confirmed without a distance check.
	Remote bool `json:"remote" yaml:"remote"`
	// ArrivalRadiusMeters overrides the engine-wide default when set.
	ArrivalRadiusMeters *float64 `json:"arrival_radius_meters,omitempty" yaml:"arrival_radius_meters,omitempty"`

	Points        int           `json:"points" yaml:"points"`
	ChallengeSpec ChallengeSpec `json:"challenge" yaml:"challenge"`

	// Challenge is built from ChallengeSpec by the catalog loader.
	Challenge Challenge `json:"-" yaml:"-"`
}

// RadiusOr returns the stop's arrival radius, falling back to defaultMeters when unset.
func (s *StopDefinition) RadiusOr(defaultMeters float64) float64 {
	if s.ArrivalRadiusMeters != nil {
		return *s.ArrivalRadiusMeters
	}
	return defaultMeters
}

// ProgressStatus is the lifecycle state of one playthrough.
type ProgressStatus string

const (
	ProgressStatusNotStarted ProgressStatus = "not_started"
	ProgressStatusInProgress ProgressStatus = "in_progress"
	ProgressStatusCompleted  ProgressStatus = "completed"
)

// IsValid returns true if the status is a known progress status.
func (s ProgressStatus) IsValid() bool {
	switch s {
	case ProgressStatusNotStarted, ProgressStatusInProgress, ProgressStatusCompleted:
		return true
	default:
		return false
	}
}

// QuestProgress is the mutable record of one player's playthrough of one quest.
//
// Invariants maintained by the engine:
//   - HasArrived and CurrentStopSolved are reset to false on every stop transition.
//   - AccumulatedPoints only grows, and each stop awards its points at most once.
//   - CompletedAt is set exactly once, when Status becomes completed.
type QuestProgress struct {
	ID                string         `json:"id" db:"id"`
	PlayerID          string         `json:"player_id" db:"player_id"`
	QuestID           string         `json:"quest_id" db:"quest_id"`
	Status            ProgressStatus `json:"status" db:"status"`
	CurrentStopOrder  int            `json:"current_stop_order" db:"current_stop_order"`
	HasArrived        bool           `json:"has_arrived" db:"has_arrived"`
	CurrentStopSolved bool           `json:"current_stop_solved" db:"current_stop_solved"`
	AccumulatedPoints int            `json:"accumulated_points" db:"accumulated_points"`
	StartedAt         time.Time      `json:"started_at" db:"started_at"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`

	// Attempt numbers the player's playthroughs of the quest, starting at 1.
	// A replay after completion gets the previous attempt plus one.
	Attempt int `json:"attempt" db:"attempt"`

	// Version is the optimistic concurrency token. Zero means never saved.
	Version int `json:"version" db:"version"`
}

// IsCompleted returns true once the playthrough has finished.
func (p *QuestProgress) IsCompleted() bool {
	return p.Status == ProgressStatusCompleted
}

// IsInProgress returns true while the player is working through stops.
func (p *QuestProgress) IsInProgress() bool {
	return p.Status == ProgressStatusInProgress
}

// Clone returns a deep copy so transitions can be applied speculatively.
func (p *QuestProgress) Clone() *QuestProgress {
	if p == nil {
		return nil
	}
	c := *p
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// StopCompletion is the durable fact that a player solved a stop.
// It is recorded at most once per (player, quest, stop order).
type StopCompletion struct {
	PlayerID      string    `json:"player_id" db:"player_id"`
	QuestID       string    `json:"quest_id" db:"quest_id"`
	StopOrder     int       `json:"stop_order" db:"stop_order"`
	PointsAwarded int       `json:"points_awarded" db:"points_awarded"`
	CompletedAt   time.Time `json:"completed_at" db:"completed_at"`
}

// EventType identifies a progress fact emitted for persistence and downstream consumers.
type EventType string

const (
	EventQuestStarted   EventType = "quest_started"
	EventStopArrived    EventType = "stop_arrived"
	EventStopCompleted  EventType = "stop_completed"
	EventQuestCompleted EventType = "quest_completed"
)

// ProgressEvent is emitted after a transition has been saved.
// Consumers must tolerate duplicates; (PlayerID, QuestID, StopOrder, Type) identifies a fact.
type ProgressEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	PlayerID      string    `json:"player_id"`
	QuestID       string    `json:"quest_id"`
	ProgressID    string    `json:"progress_id"`
	StopOrder     int       `json:"stop_order,omitempty"`
	PointsAwarded int       `json:"points_awarded,omitempty"`
	TotalPoints   int       `json:"total_points"`
	OccurredAt    time.Time `json:"occurred_at"`
}
