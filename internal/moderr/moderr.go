package moderr

import (
	"errors"
	"fmt"
)

// Sentinel kinds for the moderation error taxonomy. Callers match with errors.Is.
var (
	ErrValidation    = errors.New("validation error")    // Malformed or missing required fields.
	ErrAuthorization = errors.New("authorization error") // Role lacks permission for the operation.
	ErrConflict      = errors.New("conflict")            // Concurrent or duplicate state change.
	ErrInvalidState  = errors.New("invalid state")       // Operation on a terminal or wrong-state entity.
	ErrNotFound      = errors.New("not found")           // Referenced entity does not exist.
	ErrTransient     = errors.New("transient error")     // Storage timeout or similar, safe to retry.
)

// Error carries the entity and field context required for client-side display.
type Error struct {
	Kind    error  // One of the sentinel kinds above.
	Entity  string // Entity name, e.g. "report", "suspension".
	ID      int64  // Entity ID, zero if not yet assigned.
	Field   string // Offending field, empty if not field-related.
	Message string // Human-readable description.
}

// Error - format the error message with its context.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind.Error(), e.Entity)
	if e.ID != 0 {
		msg = fmt.Sprintf("%s #%d", msg, e.ID)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s, field %q", msg, e.Field)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	return msg
}

// Unwrap - expose the sentinel kind to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

// Validation - a field-level validation failure on the given entity.
func Validation(entity, field, message string) error {
	return &Error{Kind: ErrValidation, Entity: entity, Field: field, Message: message}
}

// Authorization - the acting role lacks permission for the operation.
func Authorization(entity string, message string) error {
	return &Error{Kind: ErrAuthorization, Entity: entity, Message: message}
}

// Conflict - a duplicate or concurrently mutated state change.
func Conflict(entity string, id int64, message string) error {
	return &Error{Kind: ErrConflict, Entity: entity, ID: id, Message: message}
}

// InvalidState - an operation attempted on an entity in the wrong state.
func InvalidState(entity string, id int64, message string) error {
	return &Error{Kind: ErrInvalidState, Entity: entity, ID: id, Message: message}
}

// NotFound - the referenced entity does not exist.
func NotFound(entity string, id int64) error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id}
}

// Transient - a retryable storage or network failure.
func Transient(entity string, cause error) error {
	return &Error{Kind: ErrTransient, Entity: entity, Message: cause.Error()}
}
