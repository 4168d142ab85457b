// Package config loads and validates the chatd YAML configuration.
package config

import "time"

// ChatConfig is the root configuration for one chat node.
type ChatConfig struct {
	Node        NodeConfig        `yaml:"node"`
	Server      ServerConfig      `yaml:"server"`
	Redis       RedisConfig       `yaml:"redis"`
	Database    DatabaseConfig    `yaml:"database"`
	Heartbeat   HeartbeatConfig   `yaml:"heartbeat"`
	Connections ConnectionsConfig `yaml:"connections"`
	Health      HealthConfig      `yaml:"health"`
}

// NodeConfig identifies this process. The ID is the pub/sub addressing key
// and the value stored in presence entries; it must be configured, never
// derived.
type NodeConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds the websocket listener settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	Path           string   `yaml:"path"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      float64  `yaml:"rate_limit"` // inbound frames per second per connection
	RateBurst      int      `yaml:"rate_burst"`
}

// RedisConfig holds the shared store used for presence and pub/sub.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DatabaseConfig holds the relational store for the persistence
// collaborators.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HeartbeatConfig holds the liveness timeouts. The presence TTL must
// cover the full window-plus-grace cycle or entries underlive their
// connections.
type HeartbeatConfig struct {
	Window        time.Duration `yaml:"window"`
	Grace         time.Duration `yaml:"grace"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	PresenceTTL   time.Duration `yaml:"presence_ttl"`
}

// ConnectionsConfig holds per-connection transport settings.
type ConnectionsConfig struct {
	QueueSize    int           `yaml:"queue_size"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
	ReadLimit    int64         `yaml:"read_limit"`
	ShardCount   int           `yaml:"shard_count"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
