package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/chat-relay/internal/protocol"
)

const insertMessageSQL = `
INSERT INTO chat_messages (id, kind, sender_id, target_id, is_broadcast, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`

// MessageStore records delivered envelopes. It implements dispatch.Sink.
type MessageStore struct {
	db      *pgxpool.Pool
	timeout time.Duration
	logger  *slog.Logger
}

// NewMessageStore creates the persistence sink.
func NewMessageStore(db *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) *MessageStore {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &MessageStore{db: db, timeout: timeout, logger: logger}
}

// Record persists one delivered envelope. The envelope ID dedupes the
// write when a broadcast is recorded once per responsible node.
func (s *MessageStore) Record(ctx context.Context, env protocol.Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var targetID any
	if env.TargetID != 0 {
		targetID = env.TargetID
	}

	_, err := s.db.Exec(ctx, insertMessageSQL,
		env.ID,
		env.Kind,
		env.SenderID,
		targetID,
		env.Broadcast,
		[]byte(env.Payload),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert message %s: %w", env.ID, err)
	}
	return nil
}
