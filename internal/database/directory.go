package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

// GetUser resolves a user from the directory table
func (m *Manager) GetUser(ctx context.Context, userID string) (*types.User, error) {
	query, args, err := m.psq.Select("id", "name", "email", "role").
		From("users").
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	var u types.User
	err = m.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// CourseExists reports whether a course row is present
func (m *Manager) CourseExists(ctx context.Context, courseID string) (bool, error) {
	query, args, err := m.psq.Select("COUNT(*)").
		From("courses").
		Where(sq.Eq{"id": courseID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build course query: %w", err)
	}

	var n int
	if err := m.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to query course: %w", err)
	}
	return n > 0, nil
}

// PutUser inserts or replaces a directory user
func (m *Manager) PutUser(ctx context.Context, u *types.User) error {
	return m.upsert(ctx, "users", []string{"id", "name", "email", "role"},
		[]interface{}{u.ID, u.Name, u.Email, u.Role},
		"name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role")
}

// PutCourse inserts or replaces a directory course
func (m *Manager) PutCourse(ctx context.Context, c *types.Course) error {
	return m.upsert(ctx, "courses", []string{"id", "title"},
		[]interface{}{c.ID, c.Title},
		"title = EXCLUDED.title")
}

// upsert relies on ON CONFLICT, which both sqlite (3.24+) and postgres accept
func (m *Manager) upsert(ctx context.Context, table string, columns []string, values []interface{}, update string) error {
	query, args, err := m.psq.Insert(table).
		Columns(columns...).
		Values(values...).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + update).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s upsert: %w", table, err)
	}

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", table, err)
		}
		return nil
	})
}
