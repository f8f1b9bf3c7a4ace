package student

import (
	"context"
)

// Repository defines the operations for persisting and retrieving tracked students.
type Repository interface {
	Create(ctx context.Context, s *Student) error
	GetByID(ctx context.Context, id int64) (*Student, error)
	GetByChatID(ctx context.Context, chatID int64) (*Student, error)
	Update(ctx context.Context, s *Student) error // credentials, IsActive, NeedsReauth
	Delete(ctx context.Context, id int64) error
	ListActive(ctx context.Context) ([]*Student, error)
}
