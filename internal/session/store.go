package session

import (
	"context"
	"time"
)

// Store persists sessions. Conditional transitions must be atomic: of two
// concurrent Advance or Close calls for the same session, exactly one
// performs the transition and the other observes the resulting error.
type Store interface {
	// Create inserts the session. It fails with ErrDuplicate when a session
	// with the same natural key exists and is not CLOSED, atomically with
	// respect to concurrent creates.
	Create(ctx context.Context, s Session) error

	Get(ctx context.Context, sessionID string) (Session, error)

	// Advance performs START_ACTIVE -> END_ACTIVE. Any other current state
	// yields ErrInvalidTransition; an unknown id yields ErrNotFound.
	Advance(ctx context.Context, sessionID string, at time.Time) (Session, error)

	// Close performs {START_ACTIVE, END_ACTIVE} -> CLOSED. A session that is
	// already CLOSED yields ErrAlreadyClosed, never a silent no-op.
	Close(ctx context.Context, sessionID string, at time.Time) (Session, error)

	ListByFaculty(ctx context.Context, facultyID string) ([]Session, error)
	Recent(ctx context.Context, facultyID string, limit int) ([]Session, error)
}
