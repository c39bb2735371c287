package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain errors.
var (
	ErrClassNotFound = errors.New("class not found")
	ErrMissingFields = errors.New("missing class details")
	ErrEmptyRoster   = errors.New("roster contains no students")
)

// Class groups a roster under one or more faculty members.
type Class struct {
	ClassID       string    `json:"classId"`
	ClassName     string    `json:"className"`
	FacultyIDs    []string  `json:"facultyIds"`
	FacultyNames  []string  `json:"facultyNames"`
	TotalStudents int       `json:"totalStudents"`
	CreatedBy     string    `json:"createdBy"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Student is one roster member.
type Student struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
}

// Store persists classes and their rosters.
type Store interface {
	// CreateClass inserts the class with its roster in one step.
	CreateClass(ctx context.Context, c Class, students []Student) error
	// AddFaculty merges a faculty member into an existing class; adding one
	// who is already listed is a no-op.
	AddFaculty(ctx context.Context, classID, facultyID, facultyName string) error
	GetByName(ctx context.Context, className string) (Class, error)
	Get(ctx context.Context, classID string) (Class, error)
	ListByFaculty(ctx context.Context, facultyID string) ([]Class, error)
	Students(ctx context.Context, classID string) ([]Student, error)
}

// Service manages class rosters, the finalizer's authoritative input.
type Service struct {
	store Store
}

// NewService creates the roster service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// AddClassResult reports whether AddClass created a class or merged into one.
type AddClassResult struct {
	ClassID string `json:"classId"`
	Merged  bool   `json:"merged"`
}

// AddClass creates a class with its student list, or, when a class with the
// same name exists, merges the faculty member into it instead. A new class
// requires a non-empty roster.
func (s *Service) AddClass(ctx context.Context, className, facultyID, facultyName string, students []Student) (AddClassResult, error) {
	className = strings.ToUpper(strings.TrimSpace(className))
	if className == "" || facultyID == "" {
		return AddClassResult{}, ErrMissingFields
	}

	existing, err := s.store.GetByName(ctx, className)
	if err == nil {
		if err := s.store.AddFaculty(ctx, existing.ClassID, facultyID, facultyName); err != nil {
			return AddClassResult{}, err
		}
		return AddClassResult{ClassID: existing.ClassID, Merged: true}, nil
	}
	if !errors.Is(err, ErrClassNotFound) {
		return AddClassResult{}, err
	}

	if len(students) == 0 {
		return AddClassResult{}, ErrEmptyRoster
	}
	c := Class{
		ClassID:       fmt.Sprintf("CLS%d", time.Now().UnixMilli()),
		ClassName:     className,
		FacultyIDs:    []string{facultyID},
		FacultyNames:  []string{facultyName},
		TotalStudents: len(students),
		CreatedBy:     facultyID,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreateClass(ctx, c, students); err != nil {
		return AddClassResult{}, err
	}
	return AddClassResult{ClassID: c.ClassID}, nil
}

// ClassesByFaculty lists the active classes a faculty member teaches.
func (s *Service) ClassesByFaculty(ctx context.Context, facultyID string) ([]Class, error) {
	return s.store.ListByFaculty(ctx, facultyID)
}

// ClassDetail returns a class with its full roster.
func (s *Service) ClassDetail(ctx context.Context, classID string) (Class, []Student, error) {
	c, err := s.store.Get(ctx, classID)
	if err != nil {
		return Class{}, nil, err
	}
	students, err := s.store.Students(ctx, classID)
	if err != nil {
		return Class{}, nil, err
	}
	return c, students, nil
}

// StudentIDs implements attendance.RosterSource.
func (s *Service) StudentIDs(ctx context.Context, classID string) ([]string, error) {
	students, err := s.store.Students(ctx, classID)
	if err != nil {
		if errors.Is(err, ErrClassNotFound) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.StudentID)
	}
	return ids, nil
}
