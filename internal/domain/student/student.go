package student

import (
	"database/sql"
	"time"
)

// Student is a tracked chat recipient with course platform credentials.
type Student struct {
	ID               int64
	ChatID           int64 // Telegram chat the notifications go to
	PlatformLogin    string
	PlatformPassword string
	DisplayName      sql.NullString
	IsActive         bool
	NeedsReauth      bool // set when the platform permanently rejects the credentials
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
