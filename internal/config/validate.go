package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *ChatConfig) Validate() error {
	if c.Node.ID == "" {
		return errors.New("node.id is required")
	}

	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}

	if err := c.Database.Postgres.validate("database.postgres"); err != nil {
		return err
	}

	if c.Heartbeat.Window <= 0 {
		return errors.New("heartbeat.window must be positive")
	}
	if c.Heartbeat.Grace <= 0 {
		return errors.New("heartbeat.grace must be positive")
	}
	if c.Heartbeat.SweepInterval <= 0 {
		return errors.New("heartbeat.sweep_interval must be positive")
	}
	if c.Heartbeat.PresenceTTL < c.Heartbeat.Window+c.Heartbeat.Grace {
		return fmt.Errorf("heartbeat.presence_ttl (%s) must cover window+grace (%s), or entries expire before eviction",
			c.Heartbeat.PresenceTTL, c.Heartbeat.Window+c.Heartbeat.Grace)
	}

	if c.Connections.QueueSize < 1 {
		return errors.New("connections.queue_size must be >= 1")
	}
	if c.Connections.ShardCount < 1 {
		return errors.New("connections.shard_count must be >= 1")
	}

	if c.Server.RateLimit <= 0 {
		return errors.New("server.rate_limit must be positive")
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
