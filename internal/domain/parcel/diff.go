// internal/domain/parcel/diff.go
package parcel

import (
	"sort"
	"time"
)

// Diff computes the ordered set of status changes between two snapshots.
//
// Rules:
//   - hasOld == false means this is the first-ever poll for the student:
//     no events are emitted regardless of newSnap's contents (the caller
//     still commits newSnap as the baseline).
//   - A submission ID present only in newSnap yields an event with an empty
//     Previous status.
//   - A submission present in both with a different status yields a
//     transition event.
//   - Identical statuses yield nothing.
//   - IDs present in old but absent from newSnap are not reported: the
//     platform's ID space is treated as append-only per assignment, so a
//     disappearance is not a notifiable event.
//
// Events are sorted by submission ID ascending so multi-change cycles are
// deterministic.
func Diff(old Snapshot, hasOld bool, newSnap Snapshot, observedAt time.Time) []ChangeEvent {
	if !hasOld {
		return nil
	}

	events := make([]ChangeEvent, 0)
	for id, sub := range newSnap {
		prev, existed := old[id]
		if existed && prev.Status == sub.Status {
			continue
		}

		ev := ChangeEvent{
			SubmissionID: id,
			TaskName:     sub.TaskName,
			Current:      sub.Status,
			ObservedAt:   observedAt,
		}
		if existed {
			ev.Previous = prev.Status
		}
		events = append(events, ev)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].SubmissionID < events[j].SubmissionID
	})
	return events
}
