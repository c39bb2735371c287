package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event kinds recorded by the audit trail.
const (
	KindScan         = "scan"
	KindSessionClose = "session_close"
)

// Event is one recorded outcome, successful or rejected. Rejections carry
// the wire error code in Outcome so tamper attempts stay reviewable.
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	SessionID string    `json:"sessionId"`
	StudentID string    `json:"studentId,omitempty"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewEvent builds an event with id and timestamp filled in.
func NewEvent(kind, sessionID, studentID, outcome, detail string) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		SessionID: sessionID,
		StudentID: studentID,
		Outcome:   outcome,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
}

// Encode serializes the event for the queue.
func (e Event) Encode() []byte {
	b, _ := json.Marshal(e)
	return b
}

// Decode parses a queued event body.
func Decode(body []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(body, &e)
	return e, err
}

// Repository persists audit events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes one event.
func (r *Repository) Insert(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, kind, session_id, student_id, outcome, detail, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.Kind, e.SessionID, e.StudentID, e.Outcome, e.Detail, e.CreatedAt)
	return err
}

