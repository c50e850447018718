package services

import (
	"errors"
	"fmt"

	"github.com/modrelay/backend/internal/models"
)

var (
	// ErrDenied is returned when the role hierarchy forbids the action. Denials are not audited.
	ErrDenied = errors.New("denied by role hierarchy")
	// ErrInvalidRequest covers malformed input such as a non-positive timeout.
	ErrInvalidRequest = errors.New("invalid moderation request")
)

// PlatformError means the platform call failed and nothing was recorded.
type PlatformError struct {
	Action models.Action
	Err    error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s failed on platform: %v", e.Action, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// PersistenceError means the platform action took effect but its audit record was not written.
type PersistenceError struct {
	Record models.AuditRecord
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s applied to %s but not recorded: %v", e.Record.Action, e.Record.Subject, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
