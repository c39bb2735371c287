package roster

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore persists classes, their faculty links, and roster members.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateClass inserts the class, its creating faculty, and the roster in one
// transaction.
func (s *PostgresStore) CreateClass(ctx context.Context, c Class, students []Student) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO classes (class_id, class_name, total_students, created_by, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ClassID, c.ClassName, c.TotalStudents, c.CreatedBy, c.IsActive, c.CreatedAt)
	if err != nil {
		return err
	}

	for i, facultyID := range c.FacultyIDs {
		name := ""
		if i < len(c.FacultyNames) {
			name = c.FacultyNames[i]
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO class_faculty (class_id, faculty_id, faculty_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (class_id, faculty_id) DO NOTHING
		`, c.ClassID, facultyID, name)
		if err != nil {
			return err
		}
	}

	for _, st := range students {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO roster_students (class_id, student_id, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (class_id, student_id) DO NOTHING
		`, c.ClassID, st.StudentID, st.Name)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AddFaculty links a faculty member to an existing class.
func (s *PostgresStore) AddFaculty(ctx context.Context, classID, facultyID, facultyName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO class_faculty (class_id, faculty_id, faculty_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (class_id, faculty_id) DO NOTHING
	`, classID, facultyID, facultyName)
	return err
}

// GetByName finds an active class by its (unique, uppercased) name.
func (s *PostgresStore) GetByName(ctx context.Context, className string) (Class, error) {
	return s.getWhere(ctx, `class_name = $1 AND is_active`, className)
}

// Get finds a class by id.
func (s *PostgresStore) Get(ctx context.Context, classID string) (Class, error) {
	return s.getWhere(ctx, `class_id = $1`, classID)
}

func (s *PostgresStore) getWhere(ctx context.Context, where string, arg any) (Class, error) {
	var c Class
	err := s.db.QueryRowContext(ctx, `
		SELECT class_id, class_name, total_students, created_by, is_active, created_at
		FROM classes WHERE `+where, arg).
		Scan(&c.ClassID, &c.ClassName, &c.TotalStudents, &c.CreatedBy, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Class{}, ErrClassNotFound
	}
	if err != nil {
		return Class{}, err
	}
	if err := s.loadFaculty(ctx, &c); err != nil {
		return Class{}, err
	}
	return c, nil
}

func (s *PostgresStore) loadFaculty(ctx context.Context, c *Class) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT faculty_id, COALESCE(faculty_name, '') FROM class_faculty WHERE class_id = $1 ORDER BY faculty_id
	`, c.ClassID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		c.FacultyIDs = append(c.FacultyIDs, id)
		c.FacultyNames = append(c.FacultyNames, name)
	}
	return rows.Err()
}

// ListByFaculty returns the active classes a faculty member is linked to.
func (s *PostgresStore) ListByFaculty(ctx context.Context, facultyID string) ([]Class, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.class_id, c.class_name, c.total_students, c.created_by, c.is_active, c.created_at
		FROM classes c
		JOIN class_faculty cf ON cf.class_id = c.class_id
		WHERE cf.faculty_id = $1 AND c.is_active
		ORDER BY c.created_at DESC
	`, facultyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ClassID, &c.ClassName, &c.TotalStudents, &c.CreatedBy, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		if err := s.loadFaculty(ctx, &res[i]); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Students returns the roster for a class.
func (s *PostgresStore) Students(ctx context.Context, classID string) ([]Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT student_id, COALESCE(name, '') FROM roster_students WHERE class_id = $1 ORDER BY student_id
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.StudentID, &st.Name); err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}
