// internal/domain/parcel/parcel.go
package parcel

import "time"

// Status is the grading state of a parcel as reported by the course platform.
type Status string

const (
	StatusPending     Status = "PENDING"      // row present, no reviewer assigned yet
	StatusChecking    Status = "CHECKING"     // reviewer assigned, no grade yet
	StatusPassed      Status = "PASSED"       // graded with a non-zero grade
	StatusFailed      Status = "FAILED"       // graded with a zero grade
	StatusNeedsReview Status = "NEEDS_REVIEW" // platform requested a resubmission
)

// Label returns a human-readable (Russian) name for the status, used in
// notification messages and the /parcels listing.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "в очереди"
	case StatusChecking:
		return "на проверке"
	case StatusPassed:
		return "проверена"
	case StatusFailed:
		return "не зачтена"
	case StatusNeedsReview:
		return "требует пересдачи"
	default:
		return string(s)
	}
}

// Submission is a single parcel's state at one poll instant. Submissions are
// immutable: a fresh fetch produces new values, nothing is mutated in place.
type Submission struct {
	ID        string // stable per user+assignment, the platform's row key
	TaskName  string
	Status    Status
	UpdatedAt time.Time // as reported by the platform
}

// Snapshot is the complete set of one student's submissions at one poll
// instant, keyed by submission ID. IDs are unique by construction.
type Snapshot map[string]Submission

// ChangeEvent describes one detected status transition. Previous is empty
// for a submission seen for the first time. Events are consumed once by the
// notifier and never persisted.
type ChangeEvent struct {
	SubmissionID string
	TaskName     string
	Previous     Status // "" when the submission is new
	Current      Status
	ObservedAt   time.Time
}
