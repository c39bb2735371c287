package session

import (
	"errors"
	"time"

	"github.com/Hariiikrishnan/qr-attendance-backend/internal/token"
)

// State is the lifecycle position of a session. It only moves forward.
type State string

const (
	StateStartActive State = "START_ACTIVE"
	StateEndActive   State = "END_ACTIVE"
	StateClosed      State = "CLOSED"
)

// VenueKind tags the two session shapes. A classroom session is bound to a
// class and timetable hour; an auditorium session is an ad-hoc venue.
type VenueKind string

const (
	VenueClassroom  VenueKind = "CLASSROOM"
	VenueAuditorium VenueKind = "AUDITORIUM"
)

// Domain errors surfaced by the lifecycle.
var (
	ErrNotFound          = errors.New("session not found")
	ErrDuplicate         = errors.New("session already exists for this natural key")
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrAlreadyClosed     = errors.New("session already closed")
	ErrIDConflict        = errors.New("session id already taken")
	ErrMissingFields     = errors.New("missing required session details")
)

// Session is one scheduled attendance window. The anchor location and radius
// are immutable after creation; only the lifecycle fields ever change.
type Session struct {
	SessionID  string     `json:"sessionId"`
	NaturalKey string     `json:"-"`
	FacultyID  string     `json:"facultyId"`
	VenueKind  VenueKind  `json:"venueKind"`
	ClassID    string     `json:"classId,omitempty"`
	ClassName  string     `json:"className,omitempty"`
	BlockName  string     `json:"blockName,omitempty"`
	HourNumber int        `json:"hourNumber,omitempty"`
	VenueName  string     `json:"venueName,omitempty"`
	Lat        float64    `json:"lat"`
	Lng        float64    `json:"lng"`
	RadiusM    float64    `json:"radius"`
	State      State      `json:"state"`
	StartTime  time.Time  `json:"startTime"`
	AdvancedAt *time.Time `json:"advancedAt,omitempty"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Phase returns the token phase scoped to the session's current state,
// or false once the session no longer issues tokens.
func (s Session) Phase() (token.Phase, bool) {
	switch s.State {
	case StateStartActive:
		return token.PhaseStart, true
	case StateEndActive:
		return token.PhaseEnd, true
	default:
		return "", false
	}
}
