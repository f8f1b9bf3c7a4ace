// internal/domain/parcel/repository.go
package parcel

import "context"

// SnapshotRepository persists the last-known snapshot per student.
//
// Commit must be all-or-nothing for one student: a concurrent Get never
// observes a partially written snapshot, and a crash mid-commit leaves the
// previous snapshot intact. No ordering is guaranteed across different
// students' commits.
type SnapshotRepository interface {
	// Get returns the committed snapshot for the student. The bool reports
	// whether a snapshot has ever been committed (an empty snapshot is a
	// valid committed state, distinct from "never polled").
	Get(ctx context.Context, studentID int64) (Snapshot, bool, error)

	// Commit atomically replaces the student's snapshot.
	Commit(ctx context.Context, studentID int64, snap Snapshot) error

	// Delete removes the student's snapshot, used on unregistration.
	Delete(ctx context.Context, studentID int64) error
}
