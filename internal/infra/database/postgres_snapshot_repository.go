// internal/infra/database/postgres_snapshot_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"parcel_monitor_bot/internal/domain/parcel"
)

type PostgresSnapshotRepository struct {
	db *sql.DB
}

func NewPostgresSnapshotRepository(db *sql.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

// Get returns the committed snapshot for a student. The bool reports whether
// a snapshot has ever been committed: a row in snapshot_commits with no
// parcel rows is a committed empty snapshot.
func (r *PostgresSnapshotRepository) Get(ctx context.Context, studentID int64) (parcel.Snapshot, bool, error) {
	var committed bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM snapshot_commits WHERE student_id = $1)`, studentID).Scan(&committed)
	if err != nil {
		return nil, false, fmt.Errorf("error checking snapshot commit for student %d: %w", studentID, err)
	}
	if !committed {
		return nil, false, nil
	}

	query := `SELECT submission_id, task_name, status, platform_updated_at
               FROM parcel_snapshots WHERE student_id = $1`
	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, false, fmt.Errorf("error querying snapshot for student %d: %w", studentID, err)
	}
	defer rows.Close()

	snap := make(parcel.Snapshot)
	for rows.Next() {
		var sub parcel.Submission
		var status string
		if err := rows.Scan(&sub.ID, &sub.TaskName, &status, &sub.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("error scanning snapshot row: %w", err)
		}
		sub.Status = parcel.Status(status)
		snap[sub.ID] = sub
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return snap, true, nil
}

// Commit atomically replaces the student's snapshot: the delete and all
// inserts run in one transaction, so a concurrent Get sees either the old
// snapshot or the new one, never a mix.
func (r *PostgresSnapshotRepository) Commit(ctx context.Context, studentID int64, snap parcel.Snapshot) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for snapshot commit: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if _, err := txn.ExecContext(ctx, `DELETE FROM parcel_snapshots WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("error clearing previous snapshot for student %d: %w", studentID, err)
	}

	if len(snap) > 0 {
		stmt, err := txn.PrepareContext(ctx, `INSERT INTO parcel_snapshots (student_id, submission_id, task_name, status, platform_updated_at)
                                             VALUES ($1, $2, $3, $4, $5)`)
		if err != nil {
			return fmt.Errorf("failed to prepare snapshot insert: %w", err)
		}
		defer stmt.Close()

		for _, sub := range snap {
			if _, err := stmt.ExecContext(ctx, studentID, sub.ID, sub.TaskName, string(sub.Status), sub.UpdatedAt); err != nil {
				return fmt.Errorf("error inserting snapshot row (student %d, submission %s): %w", studentID, sub.ID, err)
			}
		}
	}

	if _, err := txn.ExecContext(ctx, `INSERT INTO snapshot_commits (student_id, committed_at)
               VALUES ($1, NOW())
               ON CONFLICT (student_id) DO UPDATE SET committed_at = NOW()`, studentID); err != nil {
		return fmt.Errorf("error recording snapshot commit for student %d: %w", studentID, err)
	}

	return txn.Commit()
}

func (r *PostgresSnapshotRepository) Delete(ctx context.Context, studentID int64) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for snapshot delete: %w", err)
	}
	defer txn.Rollback()

	if _, err := txn.ExecContext(ctx, `DELETE FROM parcel_snapshots WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("error deleting snapshot rows for student %d: %w", studentID, err)
	}
	if _, err := txn.ExecContext(ctx, `DELETE FROM snapshot_commits WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("error deleting snapshot commit for student %d: %w", studentID, err)
	}
	return txn.Commit()
}
