package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Hariiikrishnan/qr-attendance-backend/internal/geo"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/token"
)

// Issuance errors.
var (
	ErrInvalidExpiry = errors.New("invalid token expiry")
	ErrPhaseMismatch = errors.New("requested phase does not match session state")
)

// Finalizer sweeps incomplete attendance records when a session closes. It
// runs at most once per close call that actually performs the transition.
type Finalizer interface {
	Finalize(ctx context.Context, sess Session, closedAt time.Time) (int, error)
}

// OpenConfig is the faculty request to start an attendance window.
type OpenConfig struct {
	FacultyID  string
	VenueKind  VenueKind
	ClassID    string
	ClassName  string
	BlockName  string
	HourNumber int
	VenueName  string
	Lat        float64
	Lng        float64
	RadiusM    float64
}

// Service is the session lifecycle controller.
type Service struct {
	store         Store
	tokens        *token.Service
	finalizer     Finalizer
	defaultRadius float64
}

// NewService creates the lifecycle controller. The finalizer may be wired
// after construction via SetFinalizer to break the setup dependency between
// sessions and attendance.
func NewService(store Store, tokens *token.Service, defaultRadius float64) *Service {
	if defaultRadius <= 0 {
		defaultRadius = 50
	}
	return &Service{store: store, tokens: tokens, defaultRadius: defaultRadius}
}

// SetFinalizer attaches the close-time sweep.
func (s *Service) SetFinalizer(f Finalizer) { s.finalizer = f }

// Open creates a session in START_ACTIVE.
//
// Classroom sessions take their id from the natural key (class, hour, date)
// so the same window cannot be opened twice while active. Reopening a key
// whose previous session is CLOSED gets a fresh suffixed id.
func (s *Service) Open(ctx context.Context, cfg OpenConfig) (Session, error) {
	if err := validateOpen(cfg); err != nil {
		return Session{}, err
	}
	now := time.Now().UTC()

	sess := Session{
		FacultyID: cfg.FacultyID,
		VenueKind: cfg.VenueKind,
		Lat:       cfg.Lat,
		Lng:       cfg.Lng,
		RadiusM:   cfg.RadiusM,
		State:     StateStartActive,
		StartTime: now,
		CreatedAt: now,
	}
	if sess.RadiusM <= 0 {
		sess.RadiusM = s.defaultRadius
	}

	switch cfg.VenueKind {
	case VenueClassroom:
		sess.ClassID = cfg.ClassID
		sess.ClassName = strings.ToUpper(strings.TrimSpace(cfg.ClassName))
		sess.BlockName = cfg.BlockName
		sess.HourNumber = cfg.HourNumber
		sess.NaturalKey = fmt.Sprintf("%s_H%d_%s", sess.ClassName, sess.HourNumber, now.Format("02_01"))
		sess.SessionID = sess.NaturalKey
	case VenueAuditorium:
		sess.VenueName = cfg.VenueName
		sess.SessionID = "ADHOC_" + uuid.NewString()
		sess.NaturalKey = sess.SessionID
	}

	err := s.store.Create(ctx, sess)
	if errors.Is(err, ErrIDConflict) {
		// A CLOSED session already holds the natural id; reopen under a
		// suffixed one. The natural key stays, so the open-window uniqueness
		// check still applies.
		sess.SessionID = sess.NaturalKey + "_R" + uuid.NewString()[:8]
		err = s.store.Create(ctx, sess)
	}
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Get resolves a session by id.
func (s *Service) Get(ctx context.Context, sessionID string) (Session, error) {
	return s.store.Get(ctx, sessionID)
}

// AdvancePhase moves the session from its start window to its end window.
// Any other requested transition is invalid: states only move forward.
func (s *Service) AdvancePhase(ctx context.Context, sessionID string) (Session, error) {
	return s.store.Advance(ctx, sessionID, time.Now().UTC())
}

// Close transitions the session to CLOSED and runs the finalizer sweep once.
// Closing an already-closed session reports ErrAlreadyClosed so the caller
// can observe that no new finalization occurred.
func (s *Service) Close(ctx context.Context, sessionID string) (Session, int, error) {
	closedAt := time.Now().UTC()
	sess, err := s.store.Close(ctx, sessionID, closedAt)
	if err != nil {
		return Session{}, 0, err
	}
	absentMarked := 0
	if s.finalizer != nil {
		absentMarked, err = s.finalizer.Finalize(ctx, sess, closedAt)
		if err != nil {
			return sess, 0, err
		}
	}
	return sess, absentMarked, nil
}

// IssueToken mints a signed scan token scoped to the session's current phase.
// A requested phase that does not match the session state is rejected rather
// than silently reinterpreted.
func (s *Service) IssueToken(ctx context.Context, sessionID string, requested token.Phase, ttl time.Duration) (token.Issued, error) {
	if ttl <= 0 {
		return token.Issued{}, ErrInvalidExpiry
	}
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return token.Issued{}, err
	}
	phase, ok := sess.Phase()
	if !ok {
		return token.Issued{}, ErrAlreadyClosed
	}
	if requested != "" && requested != phase {
		return token.Issued{}, ErrPhaseMismatch
	}

	now := time.Now().UTC()
	return s.tokens.Sign(token.Payload{
		SessionID: sess.SessionID,
		Phase:     phase,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Anchor:    token.Anchor{Lat: sess.Lat, Lng: sess.Lng, Radius: sess.RadiusM},
	})
}

// ListByFaculty returns all sessions owned by the faculty.
func (s *Service) ListByFaculty(ctx context.Context, facultyID string) ([]Session, error) {
	return s.store.ListByFaculty(ctx, facultyID)
}

// Recent returns the faculty's latest sessions.
func (s *Service) Recent(ctx context.Context, facultyID string) ([]Session, error) {
	return s.store.Recent(ctx, facultyID, 10)
}

func validateOpen(cfg OpenConfig) error {
	if cfg.FacultyID == "" {
		return ErrMissingFields
	}
	switch cfg.VenueKind {
	case VenueClassroom:
		if cfg.ClassID == "" || cfg.ClassName == "" || cfg.BlockName == "" {
			return ErrMissingFields
		}
		if cfg.HourNumber < 1 || cfg.HourNumber > 8 {
			return ErrMissingFields
		}
	case VenueAuditorium:
		if cfg.VenueName == "" {
			return ErrMissingFields
		}
	default:
		return ErrMissingFields
	}
	// Anchor must be a real coordinate; it is immutable after this point.
	if _, err := geo.Distance(cfg.Lat, cfg.Lng, cfg.Lat, cfg.Lng); err != nil {
		return ErrMissingFields
	}
	return nil
}
