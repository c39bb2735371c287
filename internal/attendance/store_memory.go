package attendance

import (
	"context"
	"sort"
	"sync"
	"time"
)

type recordKey struct {
	sessionID string
	studentID string
}

// MemoryStore is a mutex-guarded in-memory store with the same atomic
// compare-and-set semantics as the Postgres store. It backs tests, including
// the concurrent duplicate-scan cases, and the dev memory backend.
type MemoryStore struct {
	mu      sync.Mutex
	records map[recordKey]Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey]Record)}
}

// MarkStart performs the upsert-on-first-touch start scan under the lock.
func (m *MemoryStore) MarkStart(_ context.Context, sessionID, studentID, deviceID string, now time.Time) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey{sessionID, studentID}
	rec, ok := m.records[key]
	if ok && rec.StartScanTime != nil {
		return Record{}, ErrStartAlreadyMarked
	}
	if !ok {
		rec = Record{SessionID: sessionID, StudentID: studentID, Status: StatusIncomplete}
	}
	stamp := now
	rec.StartScanTime = &stamp
	if rec.DeviceID == "" {
		rec.DeviceID = deviceID
	}
	rec.Status = StatusIncomplete
	rec.UpdatedAt = now
	m.records[key] = rec
	return rec, nil
}

// MarkEnd performs the conditional end scan under the lock.
func (m *MemoryStore) MarkEnd(_ context.Context, sessionID, studentID, deviceID string, now time.Time) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey{sessionID, studentID}
	rec, ok := m.records[key]
	if !ok || rec.StartScanTime == nil {
		return Record{}, ErrStartNotMarked
	}
	if rec.EndScanTime != nil {
		return Record{}, ErrEndAlreadyMarked
	}
	stamp := now
	rec.EndScanTime = &stamp
	if rec.DeviceID == "" {
		rec.DeviceID = deviceID
	}
	rec.Status = StatusPresent
	rec.UpdatedAt = now
	m.records[key] = rec
	return rec, nil
}

// ListBySession returns all records for a session, ordered by student id.
func (m *MemoryStore) ListBySession(_ context.Context, sessionID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Record
	for key, rec := range m.records {
		if key.sessionID == sessionID {
			res = append(res, rec)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].StudentID < res[j].StudentID })
	return res, nil
}

// ListByStudent returns a student's history, newest first.
func (m *MemoryStore) ListByStudent(_ context.Context, studentID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Record
	for key, rec := range m.records {
		if key.studentID == studentID {
			res = append(res, rec)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UpdatedAt.After(res[j].UpdatedAt) })
	return res, nil
}

// SetStatus upserts a manual correction.
func (m *MemoryStore) SetStatus(_ context.Context, sessionID, studentID string, status Status, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey{sessionID, studentID}
	rec, ok := m.records[key]
	if !ok {
		rec = Record{SessionID: sessionID, StudentID: studentID}
	}
	rec.Status = status
	rec.UpdatedAt = now
	m.records[key] = rec
	return nil
}

// SweepAbsent finalizes the session's records under the lock.
func (m *MemoryStore) SweepAbsent(_ context.Context, sessionID string, roster []string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for key, rec := range m.records {
		if key.sessionID == sessionID && rec.Status == StatusIncomplete {
			rec.Status = StatusAbsent
			rec.UpdatedAt = now
			m.records[key] = rec
			total++
		}
	}
	for _, studentID := range roster {
		key := recordKey{sessionID, studentID}
		if _, ok := m.records[key]; ok {
			continue
		}
		m.records[key] = Record{
			SessionID: sessionID,
			StudentID: studentID,
			Status:    StatusAbsent,
			UpdatedAt: now,
		}
		total++
	}
	return total, nil
}
