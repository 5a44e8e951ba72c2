package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, 8*time.Second, cfg.SyncInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.SyncConfirmDelay)
	assert.Equal(t, 3*time.Second, cfg.ScanCooldown)
	assert.Equal(t, time.Second, cfg.DecodeInterval)
	assert.Equal(t, 3, cfg.BadgeRetries)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.SyncConfigured())
	assert.False(t, cfg.CloudinaryEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SHEET_URL", "https://example.test/exec")
	t.Setenv("SYNC_INTERVAL", "20s")
	t.Setenv("SCAN_COOLDOWN", "not-a-duration")
	t.Setenv("BADGE_RETRIES", "5")
	t.Setenv("CORS_ORIGINS", "https://a.test, https://b.test,")

	cfg := Load()
	assert.True(t, cfg.SyncConfigured())
	assert.Equal(t, 20*time.Second, cfg.SyncInterval)
	assert.Equal(t, 3*time.Second, cfg.ScanCooldown)
	assert.Equal(t, 5, cfg.BadgeRetries)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)

	t.Setenv("SYNC_ENABLED", "false")
	assert.False(t, Load().SyncConfigured())
}
