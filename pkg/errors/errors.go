package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes for the quest progression engine.
const (
	// Progression errors
	ErrCodeQuestNotFound          = "QUEST_NOT_FOUND"
	ErrCodeNotStarted             = "NOT_STARTED"
	ErrCodeOutOfSequence          = "OUT_OF_SEQUENCE"
	ErrCodeQuestAlreadyCompleted  = "QUEST_ALREADY_COMPLETED"
	ErrCodeStopNotFound           = "STOP_NOT_FOUND"
	ErrCodeInvalidLocation        = "INVALID_LOCATION"
	ErrCodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Database errors
	ErrCodeDatabaseError = "DATABASE_ERROR"

	// Config errors
	ErrCodeConfigInvalid = "CONFIG_INVALID"

	// Event publishing errors
	ErrCodeEventPublishFailed = "EVENT_PUBLISH_FAILED"

	// Validation errors
	ErrCodeValidationFailed = "VALIDATION_FAILED"
)

// QuestError represents an error raised by the quest progression engine.
type QuestError struct {
	Code    string
	Message string
	Err     error
}

func (e *QuestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *QuestError) Unwrap() error {
	return e.Err
}

// NewQuestError creates a new QuestError.
func NewQuestError(code, message string, err error) *QuestError {
	return &QuestError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// HasCode reports whether err (or anything it wraps) is a QuestError with the given code.
func HasCode(err error, code string) bool {
	var qe *QuestError
	if stderrors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

// IsFatal reports whether err indicates a catalog integrity problem that should
// abort the player's session instead of being retried.
func IsFatal(err error) bool {
	return HasCode(err, ErrCodeStopNotFound)
}

// Domain-specific error constructors

// ErrQuestNotFound returns an error when a quest is not in the catalog.
func ErrQuestNotFound(questID string) *QuestError {
	return &QuestError{
		Code:    ErrCodeQuestNotFound,
		Message: fmt.Sprintf("quest not found: %s", questID),
	}
}

// ErrNotStarted returns an error when a transition targets a quest the player has not begun.
func ErrNotStarted(playerID, questID string) *QuestError {
	return &QuestError{
		Code:    ErrCodeNotStarted,
		Message: fmt.Sprintf("quest %s not started by player %s", questID, playerID),
	}
}

// ErrOutOfSequence returns an error when an action is attempted before its precondition holds.
func ErrOutOfSequence(reason string) *QuestError {
	return &QuestError{
		Code:    ErrCodeOutOfSequence,
		Message: fmt.Sprintf("action out of sequence: %s", reason),
	}
}

// ErrQuestAlreadyCompleted returns an error for any transition on a completed playthrough.
func ErrQuestAlreadyCompleted(questID string) *QuestError {
	return &QuestError{
		Code:    ErrCodeQuestAlreadyCompleted,
		Message: fmt.Sprintf("quest already completed: %s", questID),
	}
}

// ErrStopNotFound returns an error when the catalog has no stop for the given order.
func ErrStopNotFound(questID string, order int) *QuestError {
	return &QuestError{
		Code:    ErrCodeStopNotFound,
		Message: fmt.Sprintf("stop %d not found in quest %s", order, questID),
	}
}

// ErrInvalidLocation returns an error for malformed reported coordinates.
func ErrInvalidLocation(reason string) *QuestError {
	return &QuestError{
		Code:    ErrCodeInvalidLocation,
		Message: fmt.Sprintf("invalid location: %s", reason),
	}
}

// ErrConcurrentModification returns an error when a save lost an optimistic version race.
func ErrConcurrentModification(progressID string, expectedVersion int) *QuestError {
	return &QuestError{
		Code:    ErrCodeConcurrentModification,
		Message: fmt.Sprintf("progress %s was modified concurrently (expected version %d)", progressID, expectedVersion),
	}
}

// ErrDatabaseError wraps database errors.
func ErrDatabaseError(operation string, err error) *QuestError {
	return &QuestError{
		Code:    ErrCodeDatabaseError,
		Message: fmt.Sprintf("database error during %s", operation),
		Err:     err,
	}
}

// ErrConfigInvalid wraps a catalog validation failure.
func ErrConfigInvalid(err error) *QuestError {
	return &QuestError{
		Code:    ErrCodeConfigInvalid,
		Message: "config validation failed",
		Err:     err,
	}
}

// ErrEventPublishFailed returns an error when a progress event could not be delivered.
func ErrEventPublishFailed(eventType string, err error) *QuestError {
	return &QuestError{
		Code:    ErrCodeEventPublishFailed,
		Message: fmt.Sprintf("failed to publish %s event", eventType),
		Err:     err,
	}
}

// ErrValidationFailed returns a validation error.
func ErrValidationFailed(field, reason string) *QuestError {
	return &QuestError{
		Code:    ErrCodeValidationFailed,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
	}
}
