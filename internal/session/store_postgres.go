package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists sessions in Postgres. The partial unique index on
// (natural_key) WHERE state <> 'CLOSED' is what makes Create race-free: two
// concurrent opens of the same key both insert and exactly one survives.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `
	session_id, natural_key, faculty_id, venue_kind,
	COALESCE(class_id, ''), COALESCE(class_name, ''), COALESCE(block_name, ''), COALESCE(hour_number, 0),
	COALESCE(venue_name, ''), lat, lng, radius_m, state, start_time, advanced_at, end_time, created_at`

// Create inserts the session row.
func (s *PostgresStore) Create(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			session_id, natural_key, faculty_id, venue_kind,
			class_id, class_name, block_name, hour_number, venue_name,
			lat, lng, radius_m, state, start_time, created_at
		) VALUES ($1,$2,$3,$4, NULLIF($5,''), NULLIF($6,''), NULLIF($7,''), NULLIF($8,0), NULLIF($9,''),
			$10,$11,$12,$13,$14,$15)
	`, sess.SessionID, sess.NaturalKey, sess.FacultyID, sess.VenueKind,
		sess.ClassID, sess.ClassName, sess.BlockName, sess.HourNumber, sess.VenueName,
		sess.Lat, sess.Lng, sess.RadiusM, sess.State, sess.StartTime, sess.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "sessions_pkey" {
				return ErrIDConflict
			}
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Get returns a session by id.
func (s *PostgresStore) Get(ctx context.Context, sessionID string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = $1`, sessionID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return sess, err
}

// Advance moves START_ACTIVE to END_ACTIVE with a single conditional update.
func (s *PostgresStore) Advance(ctx context.Context, sessionID string, at time.Time) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE sessions
		SET state = $2, advanced_at = $3
		WHERE session_id = $1 AND state = $4
		RETURNING `+sessionColumns,
		sessionID, StateEndActive, at, StateStartActive)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, s.classifyFailed(ctx, sessionID, ErrInvalidTransition)
	}
	return sess, err
}

// Close moves any non-terminal state to CLOSED with a single conditional update.
func (s *PostgresStore) Close(ctx context.Context, sessionID string, at time.Time) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE sessions
		SET state = $2, end_time = $3
		WHERE session_id = $1 AND state <> $2
		RETURNING `+sessionColumns,
		sessionID, StateClosed, at)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, s.classifyFailed(ctx, sessionID, ErrAlreadyClosed)
	}
	return sess, err
}

// classifyFailed distinguishes a missing session from a state conflict after
// a conditional update matched no rows.
func (s *PostgresStore) classifyFailed(ctx context.Context, sessionID string, conflict error) error {
	var state State
	err := s.db.QueryRowContext(ctx, `SELECT state FROM sessions WHERE session_id = $1`, sessionID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return conflict
}

// ListByFaculty returns all sessions owned by a faculty, newest first.
func (s *PostgresStore) ListByFaculty(ctx context.Context, facultyID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE faculty_id = $1 ORDER BY created_at DESC
	`, facultyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// Recent returns the latest sessions for a faculty.
func (s *PostgresStore) Recent(ctx context.Context, facultyID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE faculty_id = $1 ORDER BY created_at DESC LIMIT $2
	`, facultyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var advancedAt, endTime sql.NullTime
	err := row.Scan(
		&sess.SessionID, &sess.NaturalKey, &sess.FacultyID, &sess.VenueKind,
		&sess.ClassID, &sess.ClassName, &sess.BlockName, &sess.HourNumber,
		&sess.VenueName, &sess.Lat, &sess.Lng, &sess.RadiusM, &sess.State,
		&sess.StartTime, &advancedAt, &endTime, &sess.CreatedAt,
	)
	if err != nil {
		return Session{}, err
	}
	if advancedAt.Valid {
		sess.AdvancedAt = &advancedAt.Time
	}
	if endTime.Valid {
		sess.EndTime = &endTime.Time
	}
	return sess, nil
}

func collectSessions(rows *sql.Rows) ([]Session, error) {
	var res []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, sess)
	}
	return res, rows.Err()
}
