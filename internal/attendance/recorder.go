package attendance

import (
	"context"
	"time"

	"github.com/Hariiikrishnan/qr-attendance-backend/internal/session"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/token"
)

// Recorder applies scan events to attendance records. All per-key ordering
// comes from the store's atomic conditional upserts; the recorder itself
// holds no locks.
type Recorder struct {
	store Store
}

// NewRecorder creates a recorder.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// ApplyScan applies one phase-scoped scan to the (session, student) record.
// Of two concurrent duplicates exactly one succeeds; the other receives the
// already-marked error for its phase.
func (r *Recorder) ApplyScan(ctx context.Context, sessionID, studentID string, phase token.Phase, deviceID string, now time.Time) (Record, error) {
	switch phase {
	case token.PhaseStart:
		return r.store.MarkStart(ctx, sessionID, studentID, deviceID, now)
	case token.PhaseEnd:
		return r.store.MarkEnd(ctx, sessionID, studentID, deviceID, now)
	default:
		return Record{}, ErrUnknownPhase
	}
}

// BySession returns the session's records.
func (r *Recorder) BySession(ctx context.Context, sessionID string) ([]Record, error) {
	return r.store.ListBySession(ctx, sessionID)
}

// ByStudent returns a student's history.
func (r *Recorder) ByStudent(ctx context.Context, studentID string) ([]Record, error) {
	return r.store.ListByStudent(ctx, studentID)
}

// Correct applies manual status corrections supplied by faculty.
func (r *Recorder) Correct(ctx context.Context, sessionID string, statuses map[string]Status, now time.Time) error {
	for studentID, status := range statuses {
		if err := r.store.SetStatus(ctx, sessionID, studentID, status, now); err != nil {
			return err
		}
	}
	return nil
}

// RosterSource resolves the authoritative student list for a class.
type RosterSource interface {
	StudentIDs(ctx context.Context, classID string) ([]string, error)
}

// Sweeper is the close-time finalizer: it moves incomplete records to ABSENT
// and fills in ABSENT records for roster members who never scanned. Ad-hoc
// auditorium sessions have no roster, so only the incomplete sweep applies.
type Sweeper struct {
	records Store
	roster  RosterSource
}

// NewSweeper creates the finalizer.
func NewSweeper(records Store, roster RosterSource) *Sweeper {
	return &Sweeper{records: records, roster: roster}
}

// Finalize implements session.Finalizer.
func (s *Sweeper) Finalize(ctx context.Context, sess session.Session, closedAt time.Time) (int, error) {
	var ids []string
	if sess.VenueKind == session.VenueClassroom && sess.ClassID != "" && s.roster != nil {
		var err error
		ids, err = s.roster.StudentIDs(ctx, sess.ClassID)
		if err != nil {
			return 0, err
		}
	}
	return s.records.SweepAbsent(ctx, sess.SessionID, ids, closedAt)
}
