package attendance

import (
	"context"
	"time"
)

// Store persists attendance records. MarkStart and MarkEnd must behave as a
// single compare-and-set against the current record: when two scans race on
// the same (session, student) key, exactly one wins and the other observes
// the corresponding already-marked error. There is no window in which both
// can set the same field.
type Store interface {
	// MarkStart upserts the record on first touch, setting startScanTime and
	// INCOMPLETE status in one atomic step. A record whose start is already
	// set yields ErrStartAlreadyMarked.
	MarkStart(ctx context.Context, sessionID, studentID, deviceID string, now time.Time) (Record, error)

	// MarkEnd sets endScanTime and PRESENT. A missing or start-less record
	// yields ErrStartNotMarked; a set endScanTime yields ErrEndAlreadyMarked.
	MarkEnd(ctx context.Context, sessionID, studentID, deviceID string, now time.Time) (Record, error)

	ListBySession(ctx context.Context, sessionID string) ([]Record, error)
	ListByStudent(ctx context.Context, studentID string) ([]Record, error)

	// SetStatus upserts a manual correction for one student.
	SetStatus(ctx context.Context, sessionID, studentID string, status Status, now time.Time) error

	// SweepAbsent marks every INCOMPLETE record ABSENT and inserts ABSENT
	// records for roster members who never scanned. Returns the number of
	// records newly marked absent; running it again is a no-op.
	SweepAbsent(ctx context.Context, sessionID string, roster []string, now time.Time) (int, error)
}
