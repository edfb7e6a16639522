package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/torneos_test?sslmode=disable")
	t.Setenv("JWT_SECRET_KEY", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 3*time.Minute, cfg.ReportGraceWindow)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Empty(t, cfg.R2AccountID)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/torneos_test")
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadParsesDurations(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REPORT_GRACE_WINDOW", "10m")
	t.Setenv("SWEEP_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.ReportGraceWindow)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "70000")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNegativeDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REPORT_GRACE_WINDOW", "-5m")

	_, err := Load()
	assert.Error(t, err)
}
