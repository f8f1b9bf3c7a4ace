// internal/app/registry_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"parcel_monitor_bot/internal/domain/parcel"
	"parcel_monitor_bot/internal/domain/student"
	idb "parcel_monitor_bot/internal/infra/database"
)

var ErrEmptyCredentials = fmt.Errorf("platform login and password must not be empty")

// RegistryService handles registration and unregistration of tracked
// students, invoked by the bot command layer.
type RegistryService struct {
	students  student.Repository
	snapshots parcel.SnapshotRepository
	logger    *logrus.Entry
}

func NewRegistryService(sr student.Repository, pr parcel.SnapshotRepository, logger *logrus.Entry) *RegistryService {
	return &RegistryService{students: sr, snapshots: pr, logger: logger}
}

// Track registers a chat for monitoring. Re-tracking an existing chat
// replaces the credentials, clears the needs-reauth flag and drops the old
// snapshot so the next poll establishes a fresh baseline.
func (s *RegistryService) Track(ctx context.Context, chatID int64, login, password, displayName string) (*student.Student, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrEmptyCredentials
	}

	var name sql.NullString
	if displayName = strings.TrimSpace(displayName); displayName != "" {
		name = sql.NullString{String: displayName, Valid: true}
	}

	existing, err := s.students.GetByChatID(ctx, chatID)
	if err == nil {
		existing.PlatformLogin = login
		existing.PlatformPassword = password
		if name.Valid {
			existing.DisplayName = name
		}
		existing.IsActive = true
		existing.NeedsReauth = false
		if err := s.students.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update tracked student: %w", err)
		}
		if err := s.snapshots.Delete(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to reset snapshot for student %d: %w", existing.ID, err)
		}
		s.logger.WithFields(logrus.Fields{"chat_id": chatID, "student_id": existing.ID}).Info("Re-tracked student with new credentials")
		return existing, nil
	}
	if !errors.Is(err, idb.ErrStudentNotFound) {
		return nil, fmt.Errorf("failed to check existing student: %w", err)
	}

	newStudent := &student.Student{
		ChatID:           chatID,
		PlatformLogin:    login,
		PlatformPassword: password,
		DisplayName:      name,
		IsActive:         true,
	}
	if err := s.students.Create(ctx, newStudent); err != nil {
		return nil, fmt.Errorf("failed to create tracked student: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"chat_id": chatID, "student_id": newStudent.ID}).Info("New student tracked")
	return newStudent, nil
}

// Untrack removes a chat from monitoring together with its stored snapshot.
func (s *RegistryService) Untrack(ctx context.Context, chatID int64) error {
	tracked, err := s.students.GetByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, idb.ErrStudentNotFound) {
			return idb.ErrStudentNotFound
		}
		return fmt.Errorf("failed to get student for untracking: %w", err)
	}

	if err := s.snapshots.Delete(ctx, tracked.ID); err != nil {
		return fmt.Errorf("failed to delete snapshot for student %d: %w", tracked.ID, err)
	}
	if err := s.students.Delete(ctx, tracked.ID); err != nil {
		return fmt.Errorf("failed to delete student %d: %w", tracked.ID, err)
	}
	s.logger.WithFields(logrus.Fields{"chat_id": chatID, "student_id": tracked.ID}).Info("Student untracked")
	return nil
}

// Tracked returns the registry record for a chat.
func (s *RegistryService) Tracked(ctx context.Context, chatID int64) (*student.Student, error) {
	return s.students.GetByChatID(ctx, chatID)
}

// Parcels returns the last committed snapshot for a chat, ordered by
// submission ID, and whether any snapshot has been committed yet.
func (s *RegistryService) Parcels(ctx context.Context, chatID int64) ([]parcel.Submission, bool, error) {
	tracked, err := s.students.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, false, err
	}

	snap, hasSnap, err := s.snapshots.Get(ctx, tracked.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load snapshot for student %d: %w", tracked.ID, err)
	}
	if !hasSnap {
		return nil, false, nil
	}

	submissions := make([]parcel.Submission, 0, len(snap))
	for _, sub := range snap {
		submissions = append(submissions, sub)
	}
	sort.Slice(submissions, func(i, j int) bool { return submissions[i].ID < submissions[j].ID })
	return submissions, true, nil
}
