package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInvalidToken indicates an unknown or expired token.
var ErrInvalidToken = errors.New("invalid token")

const resolveTokenSQL = `
SELECT user_id FROM user_token
WHERE token = $1 AND expires_at > NOW()`

// TokenStore resolves connection tokens to user identities. It implements
// server.TokenResolver.
type TokenStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewTokenStore creates the identity resolver.
func NewTokenStore(db *pgxpool.Pool, logger *slog.Logger) *TokenStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenStore{db: db, logger: logger}
}

// Resolve returns the user owning a token, or ErrInvalidToken.
func (s *TokenStore) Resolve(ctx context.Context, token string) (int64, error) {
	var userID int64
	err := s.db.QueryRow(ctx, resolveTokenSQL, token).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInvalidToken
	}
	if err != nil {
		return 0, fmt.Errorf("resolve token: %w", err)
	}
	return userID, nil
}
