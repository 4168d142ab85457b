package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerAddr    = ":8090"
	DefaultServerPath    = "/ws"
	DefaultRateLimit     = 20.0
	DefaultRateBurst     = 40
	DefaultRedisAddr     = "localhost:6379"
	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultMaxConns      = 10
	DefaultMinConns      = 2
	DefaultWindow        = 30 * time.Second
	DefaultGrace         = 15 * time.Second
	DefaultSweepInterval = 10 * time.Second
	DefaultPresenceTTL   = 60 * time.Second
	DefaultQueueSize     = 256
	DefaultWriteTimeout  = 5 * time.Second
	DefaultPingInterval  = 15 * time.Second
	DefaultReadLimit     = 64 << 10
	DefaultShardCount    = 32
	DefaultHealthPort    = 8091
	DefaultHealthPath    = "/health"
)

func (c *ChatConfig) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.Path == "" {
		c.Server.Path = DefaultServerPath
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = DefaultRateLimit
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = DefaultRateBurst
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}

	applyDBDefaults(&c.Database.Postgres)

	if c.Heartbeat.Window == 0 {
		c.Heartbeat.Window = DefaultWindow
	}
	if c.Heartbeat.Grace == 0 {
		c.Heartbeat.Grace = DefaultGrace
	}
	if c.Heartbeat.SweepInterval == 0 {
		c.Heartbeat.SweepInterval = DefaultSweepInterval
	}
	if c.Heartbeat.PresenceTTL == 0 {
		c.Heartbeat.PresenceTTL = DefaultPresenceTTL
	}

	if c.Connections.QueueSize == 0 {
		c.Connections.QueueSize = DefaultQueueSize
	}
	if c.Connections.WriteTimeout == 0 {
		c.Connections.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connections.PingInterval == 0 {
		c.Connections.PingInterval = DefaultPingInterval
	}
	if c.Connections.ReadLimit == 0 {
		c.Connections.ReadLimit = DefaultReadLimit
	}
	if c.Connections.ShardCount == 0 {
		c.Connections.ShardCount = DefaultShardCount
	}

	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.Path == "" {
		c.Health.Path = DefaultHealthPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
