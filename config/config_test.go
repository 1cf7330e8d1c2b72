package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("GATEWAY_TOKEN", "gw")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("SWEEP_INTERVAL", "15s")
	t.Setenv("PORT", "")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.SweepInterval)
	assert.Equal(t, 30*time.Second, cfg.PayoutInterval)
	assert.Equal(t, 30, cfg.VoteRatePerMinute)
	assert.Equal(t, "https://a.example,https://b.example", cfg.Origins())
	assert.True(t, cfg.UsesSQLite())
	assert.True(t, cfg.Pretty())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GATEWAY_TOKEN", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{VoteRatePerMinute: 0, PayoutInterval: time.Second, SweepInterval: time.Second, ProfileSyncEvery: time.Second}
	assert.Error(t, cfg.Validate())

	cfg.VoteRatePerMinute = 10
	assert.NoError(t, cfg.Validate())

	cfg.SweepInterval = 0
	assert.Error(t, cfg.Validate())
}
