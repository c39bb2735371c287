package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory store. It backs tests and the
// STORE_BACKEND=memory dev mode with the same atomicity contract as Postgres.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Create inserts the session under the single lock.
func (m *MemoryStore) Create(_ context.Context, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sess.SessionID]; ok {
		return ErrIDConflict
	}
	for _, existing := range m.sessions {
		if existing.NaturalKey == sess.NaturalKey && existing.State != StateClosed {
			return ErrDuplicate
		}
	}
	m.sessions[sess.SessionID] = sess
	return nil
}

// Get returns a session by id.
func (m *MemoryStore) Get(_ context.Context, sessionID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Advance moves START_ACTIVE to END_ACTIVE.
func (m *MemoryStore) Advance(_ context.Context, sessionID string, at time.Time) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	if sess.State != StateStartActive {
		return Session{}, ErrInvalidTransition
	}
	sess.State = StateEndActive
	stamp := at
	sess.AdvancedAt = &stamp
	m.sessions[sessionID] = sess
	return sess, nil
}

// Close moves any non-terminal state to CLOSED.
func (m *MemoryStore) Close(_ context.Context, sessionID string, at time.Time) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	if sess.State == StateClosed {
		return Session{}, ErrAlreadyClosed
	}
	sess.State = StateClosed
	stamp := at
	sess.EndTime = &stamp
	m.sessions[sessionID] = sess
	return sess, nil
}

// ListByFaculty returns all sessions for a faculty, newest first.
func (m *MemoryStore) ListByFaculty(_ context.Context, facultyID string) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Session
	for _, sess := range m.sessions {
		if sess.FacultyID == facultyID {
			res = append(res, sess)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

// Recent returns the latest sessions for a faculty.
func (m *MemoryStore) Recent(ctx context.Context, facultyID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 10
	}
	all, err := m.ListByFaculty(ctx, facultyID)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
