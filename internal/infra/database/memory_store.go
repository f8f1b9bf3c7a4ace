// internal/infra/database/memory_store.go
package database

import (
	"context"
	"sync"
	"time"

	"parcel_monitor_bot/internal/domain/parcel"
	"parcel_monitor_bot/internal/domain/student"
)

// MemoryStudentRepository is an in-process student registry. Used by tests
// and by STORE_BACKEND=memory for local runs; state does not survive restart.
type MemoryStudentRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*student.Student
}

func NewMemoryStudentRepository() *MemoryStudentRepository {
	return &MemoryStudentRepository{
		nextID: 1,
		byID:   make(map[int64]*student.Student),
	}
}

func (r *MemoryStudentRepository) Create(_ context.Context, s *student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.ChatID == s.ChatID {
			return ErrDuplicateChatID
		}
	}

	s.ID = r.nextID
	r.nextID++
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	stored := *s
	r.byID[s.ID] = &stored
	return nil
}

func (r *MemoryStudentRepository) GetByID(_ context.Context, id int64) (*student.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, ErrStudentNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *MemoryStudentRepository) GetByChatID(_ context.Context, chatID int64) (*student.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.byID {
		if s.ChatID == chatID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, ErrStudentNotFound
}

func (r *MemoryStudentRepository) Update(_ context.Context, s *student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[s.ID]; !ok {
		return ErrStudentNotFound
	}
	s.UpdatedAt = time.Now()
	stored := *s
	r.byID[s.ID] = &stored
	return nil
}

func (r *MemoryStudentRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return ErrStudentNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryStudentRepository) ListActive(_ context.Context) ([]*student.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	students := make([]*student.Student, 0)
	for _, s := range r.byID {
		if s.IsActive && !s.NeedsReauth {
			copied := *s
			students = append(students, &copied)
		}
	}
	return students, nil
}

// MemorySnapshotRepository is an in-process snapshot store with the same
// atomic-replace semantics as the Postgres implementation: the whole
// snapshot is swapped under one lock, readers get a copy.
type MemorySnapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[int64]parcel.Snapshot
}

func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{snapshots: make(map[int64]parcel.Snapshot)}
}

func (r *MemorySnapshotRepository) Get(_ context.Context, studentID int64) (parcel.Snapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, ok := r.snapshots[studentID]
	if !ok {
		return nil, false, nil
	}
	copied := make(parcel.Snapshot, len(snap))
	for id, sub := range snap {
		copied[id] = sub
	}
	return copied, true, nil
}

func (r *MemorySnapshotRepository) Commit(_ context.Context, studentID int64, snap parcel.Snapshot) error {
	copied := make(parcel.Snapshot, len(snap))
	for id, sub := range snap {
		copied[id] = sub
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[studentID] = copied
	return nil
}

func (r *MemorySnapshotRepository) Delete(_ context.Context, studentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snapshots, studentID)
	return nil
}
