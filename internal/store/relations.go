package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const friendExistsSQL = `
SELECT EXISTS (
    SELECT 1 FROM user_friend
    WHERE user_id = $1 AND friend_id = $2 AND deleted = FALSE
)`

// RelationStore answers authorization questions from the friend/group
// tables owned by the admin platform. It implements server.Authorizer.
type RelationStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewRelationStore creates the authorization lookup.
func NewRelationStore(db *pgxpool.Pool, logger *slog.Logger) *RelationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelationStore{db: db, logger: logger}
}

// IsAuthorized reports whether sender may message target.
func (s *RelationStore) IsAuthorized(ctx context.Context, senderID, targetID int64) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx, friendExistsSQL, senderID, targetID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("authorization lookup %d->%d: %w", senderID, targetID, err)
	}
	return ok, nil
}
