package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "ENV", "PORT", "API_PREFIX", "GRADES_CACHE_TTL", "NATS_SUBJECT",
		"GRADING_LATE_CREDIT", "GRADING_PASS_MARK", "GRADING_EXCELLENT_MARK", "ALLOWED_ORIGINS")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5*time.Minute, cfg.Cache.GradeTTL)
	assert.Equal(t, "events", cfg.Events.Subject)
	assert.Equal(t, 0.8, cfg.Grading.LateCredit)
	assert.Equal(t, 60.0, cfg.Grading.PassMark)
	assert.Equal(t, 85.0, cfg.Grading.ExcellentMark)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", EnvProduction)
	t.Setenv("PORT", "9090")
	t.Setenv("GRADES_CACHE_TTL", "90s")
	t.Setenv("EVENTS_RETRY_DELAY", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")
	t.Setenv("GRADING_LATE_CREDIT", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.Cache.GradeTTL)
	assert.Equal(t, time.Second, cfg.Events.RetryDelay)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 0.5, cfg.Grading.LateCredit)
}
