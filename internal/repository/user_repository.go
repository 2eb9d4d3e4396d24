package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/film-festival/internal/model"
)

const userColumns = "id, username, email, password_hash, role, created_at"

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// CreateUser inserts u with a normalized email and fills ID and CreatedAt.
func (s *MySQLStore) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	id, err := s.insert(ctx,
		"INSERT INTO users (username, email, password_hash, role) VALUES (?,?,?,?)",
		u.Username, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	if err := s.q.QueryRowContext(ctx, "SELECT created_at FROM users WHERE id=?", id).Scan(&u.CreatedAt); err != nil {
		return mapError(err)
	}
	return nil
}

// GetUserByID fetches a user by id.
func (s *MySQLStore) GetUserByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(s.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetUserByLogin fetches a user by username or normalized email.
func (s *MySQLStore) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	login = strings.TrimSpace(login)
	return scanUser(s.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? OR email=? LIMIT 1",
		login, strings.ToLower(login)))
}
