package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StoreRefresh inserts a refresh token hash row.
func (s *MySQLStore) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	if _, err := s.exec(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC()); err != nil {
		return fmt.Errorf("store refresh: %w", err)
	}
	return nil
}

// ValidateRefresh returns the owner if a non-revoked, non-expired token exists.
func (s *MySQLStore) ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := s.q.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return 0, mapError(err)
	}
	if revokedAt.Valid || now.UTC().After(expiresAt) {
		return 0, ErrNotFound
	}
	return userID, nil
}

// RevokeRefresh marks a token as revoked. Zero affected rows means another
// request revoked it first, reported as ErrNotFound.
func (s *MySQLStore) RevokeRefresh(ctx context.Context, tokenHash string) error {
	res, err := s.exec(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
