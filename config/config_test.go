package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "nexus", cfg.MongoDB)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, 60, cfg.RateLimitPerMin)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MONGO_DB", "nexus_test")
	t.Setenv("RATE_LIMIT_PER_MIN", "5")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "nexus_test", cfg.MongoDB)
	assert.Equal(t, 5, cfg.RateLimitPerMin)
}

func TestLoadBadNumberFallsBackToZero(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MIN", "not-a-number")

	cfg := Load()

	assert.Equal(t, 0, cfg.RateLimitPerMin)
}
