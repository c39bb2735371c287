package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore persists attendance records in Postgres. The conditional
// upserts below are the atomic primitive the no-double-mark invariant rests
// on: the WHERE clause on the conflict update makes the losing scan match
// zero rows instead of overwriting the winner.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `
	session_id, student_id, COALESCE(device_id, ''), start_scan_time, end_scan_time, status, updated_at`

// MarkStart performs the upsert-on-first-touch start scan.
func (s *PostgresStore) MarkStart(ctx context.Context, sessionID, studentID, deviceID string, now time.Time) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (session_id, student_id, device_id, start_scan_time, status, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $4)
		ON CONFLICT (session_id, student_id) DO UPDATE SET
			start_scan_time = EXCLUDED.start_scan_time,
			device_id = COALESCE(attendance_records.device_id, EXCLUDED.device_id),
			updated_at = EXCLUDED.updated_at
		WHERE attendance_records.start_scan_time IS NULL
		RETURNING `+recordColumns,
		sessionID, studentID, deviceID, now, StatusIncomplete)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrStartAlreadyMarked
	}
	return rec, err
}

// MarkEnd performs the conditional end scan.
func (s *PostgresStore) MarkEnd(ctx context.Context, sessionID, studentID, deviceID string, now time.Time) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE attendance_records SET
			end_scan_time = $3,
			status = $4,
			device_id = COALESCE(device_id, NULLIF($5, '')),
			updated_at = $3
		WHERE session_id = $1 AND student_id = $2
			AND start_scan_time IS NOT NULL AND end_scan_time IS NULL
		RETURNING `+recordColumns,
		sessionID, studentID, now, StatusPresent, deviceID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, s.classifyEndFailure(ctx, sessionID, studentID)
	}
	return rec, err
}

// classifyEndFailure inspects the record after a failed end scan. The read is
// for error reporting only; the atomic update above already decided the race.
func (s *PostgresStore) classifyEndFailure(ctx context.Context, sessionID, studentID string) error {
	var start, end sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT start_scan_time, end_scan_time FROM attendance_records
		WHERE session_id = $1 AND student_id = $2
	`, sessionID, studentID).Scan(&start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStartNotMarked
	}
	if err != nil {
		return err
	}
	if !start.Valid {
		return ErrStartNotMarked
	}
	return ErrEndAlreadyMarked
}

// ListBySession returns all records for a session.
func (s *PostgresStore) ListBySession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records WHERE session_id = $1 ORDER BY student_id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListByStudent returns a student's history, newest first.
func (s *PostgresStore) ListByStudent(ctx context.Context, studentID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records WHERE student_id = $1 ORDER BY updated_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// SetStatus upserts a manual correction.
func (s *PostgresStore) SetStatus(ctx context.Context, sessionID, studentID string, status Status, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_records (session_id, student_id, status, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, student_id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, sessionID, studentID, status, now)
	return err
}

// SweepAbsent finalizes the session's records inside one transaction.
func (s *PostgresStore) SweepAbsent(ctx context.Context, sessionID string, roster []string, now time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE attendance_records SET status = $2, updated_at = $3
		WHERE session_id = $1 AND status = $4
	`, sessionID, StatusAbsent, now, StatusIncomplete)
	if err != nil {
		return 0, err
	}
	swept, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	total := int(swept)
	for _, studentID := range roster {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_records (session_id, student_id, status, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (session_id, student_id) DO NOTHING
		`, sessionID, studentID, StatusAbsent, now)
		if err != nil {
			return 0, err
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += int(inserted)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var start, end sql.NullTime
	if err := row.Scan(&rec.SessionID, &rec.StudentID, &rec.DeviceID, &start, &end, &rec.Status, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	if start.Valid {
		rec.StartScanTime = &start.Time
	}
	if end.Valid {
		rec.EndScanTime = &end.Time
	}
	return rec, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
