// internal/app/monitor_service.go
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"parcel_monitor_bot/internal/domain/parcel"
	"parcel_monitor_bot/internal/domain/student"
	"parcel_monitor_bot/internal/infra/platform"
)

// PlatformClient fetches a snapshot of submission states for one student.
type PlatformClient interface {
	FetchSnapshot(ctx context.Context, s *student.Student) (parcel.Snapshot, error)
}

// MonitorService runs poll cycles: for every tracked student it fetches the
// current platform snapshot, diffs it against the committed one, notifies
// about each change and commits the new snapshot.
//
// Students are processed concurrently in a bounded worker pool; all work for
// one student within one cycle is sequential (fetch, diff, notify, commit).
// A per-student lock guarantees at most one in-flight cycle per student.
type MonitorService struct {
	students  student.Repository
	snapshots parcel.SnapshotRepository
	client    PlatformClient
	notifier  Notifier
	logger    *logrus.Entry
	workers   int

	// One mutex per student ID. Entries are never removed; the registry is
	// small and a stale entry for an untracked student is harmless.
	cycleLocks sync.Map
}

func NewMonitorService(
	sr student.Repository,
	pr parcel.SnapshotRepository,
	client PlatformClient,
	notifier Notifier,
	logger *logrus.Entry,
	workers int,
) *MonitorService {
	if workers < 1 {
		workers = 1
	}
	return &MonitorService{
		students:  sr,
		snapshots: pr,
		client:    client,
		notifier:  notifier,
		logger:    logger,
		workers:   workers,
	}
}

// RunCycle performs one full monitoring sweep over all tracked students.
// It never returns an error to the scheduler: a failed student cycle is
// logged and the sweep moves on.
func (s *MonitorService) RunCycle(ctx context.Context) {
	cycleLog := s.logger.WithField("cycle_id", uuid.NewString())

	students, err := s.students.ListActive(ctx)
	if err != nil {
		cycleLog.WithError(err).Error("Failed to list tracked students, skipping sweep")
		return
	}
	if len(students) == 0 {
		cycleLog.Debug("No tracked students, nothing to poll")
		return
	}
	cycleLog.WithField("students", len(students)).Info("Monitoring sweep started")

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for _, st := range students {
		wg.Add(1)
		sem <- struct{}{}
		go func(st *student.Student) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					cycleLog.WithFields(logrus.Fields{"student_id": st.ID, "panic": r}).Error("Student cycle panicked")
				}
			}()
			s.pollStudent(ctx, cycleLog, st)
		}(st)
	}
	wg.Wait()
	cycleLog.Info("Monitoring sweep finished")
}

func (s *MonitorService) pollStudent(ctx context.Context, cycleLog *logrus.Entry, st *student.Student) {
	logCtx := cycleLog.WithFields(logrus.Fields{
		"student_id": st.ID,
		"chat_id":    st.ChatID,
	})

	lockAny, _ := s.cycleLocks.LoadOrStore(st.ID, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)
	if !lock.TryLock() {
		logCtx.Warn("Previous cycle still in flight, skipping student this sweep")
		return
	}
	defer lock.Unlock()

	// Fetching
	newSnap, err := s.client.FetchSnapshot(ctx, st)
	if err != nil {
		s.handleFetchError(ctx, logCtx, st, err)
		return
	}

	// Diffing
	old, hasOld, err := s.snapshots.Get(ctx, st.ID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load committed snapshot, deferring to next cycle")
		return
	}
	events := parcel.Diff(old, hasOld, newSnap, time.Now())

	// Notifying: every event is attempted; a delivery failure is logged and
	// does not block the remaining events or the commit.
	for _, event := range events {
		if err := s.notifier.Notify(ctx, st, event); err != nil {
			logCtx.WithError(err).WithField("submission_id", event.SubmissionID).Error("Notification not delivered")
		}
	}

	// Committing: the snapshot is committed even when some notifications
	// failed, otherwise the next diff would not re-surface them anyway.
	if err := s.snapshots.Commit(ctx, st.ID, newSnap); err != nil {
		logCtx.WithError(err).Error("Failed to commit snapshot, previous baseline kept")
		return
	}

	if len(events) > 0 {
		logCtx.WithField("changes", len(events)).Info("Cycle complete, changes notified")
	} else {
		logCtx.Debug("Cycle complete, no changes")
	}
}

func (s *MonitorService) handleFetchError(ctx context.Context, logCtx *logrus.Entry, st *student.Student, err error) {
	switch {
	case errors.Is(err, platform.ErrAuth):
		logCtx.WithError(err).Warn("Platform rejected credentials, flagging student for re-auth")
		st.NeedsReauth = true
		if updateErr := s.students.Update(ctx, st); updateErr != nil {
			logCtx.WithError(updateErr).Error("Failed to flag student as needing re-auth")
		}
	case errors.Is(err, platform.ErrTransient):
		// No state change and no notification: retried on the next sweep.
		logCtx.WithError(err).Info("Transient platform error, cycle deferred")
	case errors.Is(err, platform.ErrParse):
		logCtx.WithError(err).Error("Unparseable platform response, student skipped this sweep")
	default:
		logCtx.WithError(err).Error("Unexpected fetch error, student skipped this sweep")
	}
}
