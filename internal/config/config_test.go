package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("QUEUE_READ_TIMEOUT", "50ms")
	t.Setenv("DATABASE_DRIVER", "sqlite")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 50*time.Millisecond, cfg.Queue.ReadTimeout)
	assert.Equal(t, DefaultQueuePrefix, cfg.Queue.Prefix)
	assert.Equal(t, DefaultRelayChannel, cfg.Redis.RelayChannel)
	assert.Equal(t, 72*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 54*time.Second, cfg.WebSocket.PingPeriod())
}

func TestLoad_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("auth:\n  jwt_secret: from-file\nredis:\n  addr: redis:6380\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable TimeZone=UTC", d.DSN())
}
