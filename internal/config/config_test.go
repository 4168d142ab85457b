package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
node:
  id: chat-node-1
server:
  addr: ":9000"
  path: /ws
  allowed_origins:
    - https://chat.example.com
redis:
  addr: localhost:6379
database:
  postgres:
    host: localhost
    port: 5432
    name: chat_db
    user: chatuser
    password: chatpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Node.ID != "chat-node-1" {
		t.Errorf("Node.ID = %q, want %q", cfg.Node.ID, "chat-node-1")
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":9000")
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://chat.example.com" {
		t.Errorf("Server.AllowedOrigins = %v, want the configured origin", cfg.Server.AllowedOrigins)
	}
	if cfg.Database.Postgres.Host != "localhost" {
		t.Errorf("Database.Postgres.Host = %q, want %q", cfg.Database.Postgres.Host, "localhost")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
node:
  id: chat-node-1
database:
  postgres:
    host: localhost
    name: chat_db
    user: chatuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Postgres.Password != "secret123" {
		t.Errorf("Database.Postgres.Password = %q, want %q", cfg.Database.Postgres.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
node:
  id: chat-node-1
database:
  postgres:
    host: localhost
    name: chat_db
    user: chatuser
    password: chatpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Server.Addr != DefaultServerAddr {
		t.Errorf("Server.Addr = %q, want default %q", cfg.Server.Addr, DefaultServerAddr)
	}
	if cfg.Server.Path != DefaultServerPath {
		t.Errorf("Server.Path = %q, want default %q", cfg.Server.Path, DefaultServerPath)
	}
	if cfg.Heartbeat.Window != DefaultWindow {
		t.Errorf("Heartbeat.Window = %v, want default %v", cfg.Heartbeat.Window, DefaultWindow)
	}
	if cfg.Heartbeat.PresenceTTL != DefaultPresenceTTL {
		t.Errorf("Heartbeat.PresenceTTL = %v, want default %v", cfg.Heartbeat.PresenceTTL, DefaultPresenceTTL)
	}
	if cfg.Connections.QueueSize != DefaultQueueSize {
		t.Errorf("Connections.QueueSize = %d, want default %d", cfg.Connections.QueueSize, DefaultQueueSize)
	}
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Database.Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Errorf("Health.Port = %d, want default %d", cfg.Health.Port, DefaultHealthPort)
	}
}

func TestValidate(t *testing.T) {
	valid := func() ChatConfig {
		return ChatConfig{
			Node:  NodeConfig{ID: "chat-node-1"},
			Redis: RedisConfig{Addr: "localhost:6379"},
			Database: DatabaseConfig{
				Postgres: DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 10, MinConns: 2},
			},
			Heartbeat: HeartbeatConfig{
				Window:        30 * time.Second,
				Grace:         15 * time.Second,
				SweepInterval: 10 * time.Second,
				PresenceTTL:   60 * time.Second,
			},
			Connections: ConnectionsConfig{QueueSize: 256, ShardCount: 32},
			Server:      ServerConfig{RateLimit: 20, RateBurst: 40},
			Health:      HealthConfig{Port: 8091},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ChatConfig)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(*ChatConfig) {},
			wantErr: "",
		},
		{
			name:    "missing node id",
			mutate:  func(c *ChatConfig) { c.Node.ID = "" },
			wantErr: "node.id is required",
		},
		{
			name:    "missing redis addr",
			mutate:  func(c *ChatConfig) { c.Redis.Addr = "" },
			wantErr: "redis.addr is required",
		},
		{
			name:    "missing postgres password",
			mutate:  func(c *ChatConfig) { c.Database.Postgres.Password = "" },
			wantErr: "database.postgres.password is required",
		},
		{
			name:    "min_conns exceeds max_conns",
			mutate:  func(c *ChatConfig) { c.Database.Postgres.MinConns = 20 },
			wantErr: "database.postgres.min_conns (20) cannot exceed max_conns (10)",
		},
		{
			name:    "presence ttl shorter than window plus grace",
			mutate:  func(c *ChatConfig) { c.Heartbeat.PresenceTTL = 40 * time.Second },
			wantErr: "heartbeat.presence_ttl (40s) must cover window+grace (45s), or entries expire before eviction",
		},
		{
			name:    "zero heartbeat window",
			mutate:  func(c *ChatConfig) { c.Heartbeat.Window = 0 },
			wantErr: "heartbeat.window must be positive",
		},
		{
			name:    "zero queue size",
			mutate:  func(c *ChatConfig) { c.Connections.QueueSize = 0 },
			wantErr: "connections.queue_size must be >= 1",
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *ChatConfig) { c.Server.RateLimit = 0 },
			wantErr: "server.rate_limit must be positive",
		},
		{
			name:    "bad health port",
			mutate:  func(c *ChatConfig) { c.Health.Port = 70000 },
			wantErr: "health.port must be between 1 and 65535, got 70000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
