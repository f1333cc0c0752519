package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("SIGNALING_REQUEST_TTL_MINUTES", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 64, cfg.Signaling.SendBufferSize)
	assert.Equal(t, 4*time.Hour, cfg.Signaling.RequestTTL())
	assert.Equal(t, 60*time.Second, cfg.Signaling.PongWait())
	assert.Equal(t, 5*time.Second, cfg.Workers.CallLogWriteTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SIGNALING_REQUEST_TTL_MINUTES", "0")
	t.Setenv("WORKER_SWEEP_INTERVAL_SECONDS", "15")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("AUTH_BCRYPT_COST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.Zero(t, cfg.Signaling.RequestTTL())
	assert.Equal(t, 15*time.Second, cfg.Workers.SweepInterval())
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "primary")
	_, err := Load()
	require.Error(t, err)
}

func TestSignalingOrigins(t *testing.T) {
	assert.Nil(t, SignalingConfig{}.Origins())
	assert.Equal(t, []string{"https://kiosk.example", "https://staff.example"},
		SignalingConfig{AllowedOrigins: " https://kiosk.example, ,https://staff.example"}.Origins())
}
