package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"parcel_monitor_bot/internal/domain/student"
)

// Custom errors
var ErrStudentNotFound = fmt.Errorf("student not found")
var ErrDuplicateChatID = fmt.Errorf("student with this chat ID already exists")

type PostgresStudentRepository struct {
	db *sql.DB
}

func NewPostgresStudentRepository(db *sql.DB) *PostgresStudentRepository {
	return &PostgresStudentRepository{db: db}
}

func (r *PostgresStudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `INSERT INTO students (chat_id, platform_login, platform_password, display_name, is_active, needs_reauth)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, s.ChatID, s.PlatformLogin, s.PlatformPassword, s.DisplayName, s.IsActive, s.NeedsReauth).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") && strings.Contains(err.Error(), "students_chat_id_key") {
			return ErrDuplicateChatID
		}
		return fmt.Errorf("error creating student: %w", err)
	}
	return nil
}

func (r *PostgresStudentRepository) GetByID(ctx context.Context, id int64) (*student.Student, error) {
	query := `SELECT id, chat_id, platform_login, platform_password, display_name, is_active, needs_reauth, created_at, updated_at
               FROM students WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresStudentRepository) GetByChatID(ctx context.Context, chatID int64) (*student.Student, error) {
	query := `SELECT id, chat_id, platform_login, platform_password, display_name, is_active, needs_reauth, created_at, updated_at
               FROM students WHERE chat_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, chatID))
}

func (r *PostgresStudentRepository) scanOne(row *sql.Row) (*student.Student, error) {
	s := &student.Student{}
	err := row.Scan(&s.ID, &s.ChatID, &s.PlatformLogin, &s.PlatformPassword, &s.DisplayName, &s.IsActive, &s.NeedsReauth, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error getting student: %w", err)
	}
	return s, nil
}

func (r *PostgresStudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `UPDATE students
               SET platform_login = $1, platform_password = $2, display_name = $3, is_active = $4, needs_reauth = $5, updated_at = NOW()
               WHERE id = $6
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, s.PlatformLogin, s.PlatformPassword, s.DisplayName, s.IsActive, s.NeedsReauth, s.ID).Scan(&s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrStudentNotFound
		}
		return fmt.Errorf("error updating student: %w", err)
	}
	return nil
}

func (r *PostgresStudentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deleted rows: %w", err)
	}
	if affected == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *PostgresStudentRepository) ListActive(ctx context.Context) ([]*student.Student, error) {
	query := `SELECT id, chat_id, platform_login, platform_password, display_name, is_active, needs_reauth, created_at, updated_at
               FROM students WHERE is_active = TRUE AND needs_reauth = FALSE ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing active students: %w", err)
	}
	defer rows.Close()

	students := make([]*student.Student, 0)
	for rows.Next() {
		s := &student.Student{}
		if err := rows.Scan(&s.ID, &s.ChatID, &s.PlatformLogin, &s.PlatformPassword, &s.DisplayName, &s.IsActive, &s.NeedsReauth, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning active student: %w", err)
		}
		students = append(students, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active students: %w", err)
	}
	return students, nil
}
