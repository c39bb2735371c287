package roster

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the in-memory roster store for tests and dev mode.
type MemoryStore struct {
	mu       sync.Mutex
	classes  map[string]Class
	students map[string][]Student
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		classes:  make(map[string]Class),
		students: make(map[string][]Student),
	}
}

// CreateClass inserts the class with its roster.
func (m *MemoryStore) CreateClass(_ context.Context, c Class, students []Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[c.ClassID] = c
	m.students[c.ClassID] = append([]Student(nil), students...)
	return nil
}

// AddFaculty merges a faculty member into a class.
func (m *MemoryStore) AddFaculty(_ context.Context, classID, facultyID, facultyName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[classID]
	if !ok {
		return ErrClassNotFound
	}
	for _, id := range c.FacultyIDs {
		if id == facultyID {
			return nil
		}
	}
	c.FacultyIDs = append(c.FacultyIDs, facultyID)
	c.FacultyNames = append(c.FacultyNames, facultyName)
	m.classes[classID] = c
	return nil
}

// GetByName finds an active class by name.
func (m *MemoryStore) GetByName(_ context.Context, className string) (Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.classes {
		if c.ClassName == className && c.IsActive {
			return c, nil
		}
	}
	return Class{}, ErrClassNotFound
}

// Get finds a class by id.
func (m *MemoryStore) Get(_ context.Context, classID string) (Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[classID]
	if !ok {
		return Class{}, ErrClassNotFound
	}
	return c, nil
}

// ListByFaculty returns the active classes a faculty member is linked to.
func (m *MemoryStore) ListByFaculty(_ context.Context, facultyID string) ([]Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Class
	for _, c := range m.classes {
		if !c.IsActive {
			continue
		}
		for _, id := range c.FacultyIDs {
			if id == facultyID {
				res = append(res, c)
				break
			}
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

// Students returns the roster for a class.
func (m *MemoryStore) Students(_ context.Context, classID string) ([]Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.classes[classID]; !ok {
		return nil, ErrClassNotFound
	}
	return append([]Student(nil), m.students[classID]...), nil
}
