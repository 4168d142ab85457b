package presence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "chat:route:u:"

// Key returns the directory key for a user.
func Key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

// redisDirectory implements Directory on a shared redis instance.
type redisDirectory struct {
	rdb *redis.Client
}

// NewRedis creates a redis-backed Directory.
func NewRedis(rdb *redis.Client) Directory {
	return &redisDirectory{rdb: rdb}
}

func (d *redisDirectory) Put(ctx context.Context, userID int64, nodeID string, ttl time.Duration) error {
	if err := d.rdb.Set(ctx, Key(userID), nodeID, ttl).Err(); err != nil {
		return fmt.Errorf("presence put: %w", err)
	}
	return nil
}

func (d *redisDirectory) Get(ctx context.Context, userID int64) (string, error) {
	nodeID, err := d.rdb.Get(ctx, Key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("presence get: %w", err)
	}
	return nodeID, nil
}

func (d *redisDirectory) Refresh(ctx context.Context, userID int64, nodeID string, ttl time.Duration) error {
	// SET rather than EXPIRE: recreates the entry if it already lapsed.
	return d.Put(ctx, userID, nodeID, ttl)
}

func (d *redisDirectory) Remove(ctx context.Context, userID int64) error {
	if err := d.rdb.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("presence remove: %w", err)
	}
	return nil
}
