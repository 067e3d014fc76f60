package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SUGGESTION_CACHE_TTL", "90s")
	t.Setenv("SUGGESTION_MAX_LIMIT", "25")

	require.NoError(t, LoadConfig())

	assert.Equal(t, "s3cret", AppConfig.JWTSecret)
	assert.Equal(t, DriverMemory, AppConfig.StoreDriver)
	assert.Equal(t, "8080", AppConfig.Port)
	assert.Equal(t, 90*time.Second, AppConfig.SuggestionCacheTTL)
	assert.Equal(t, 10, AppConfig.SuggestionDefaultLimit)
	assert.Equal(t, 25, AppConfig.SuggestionMaxLimit)
	assert.Equal(t, 7*24*time.Hour, AppConfig.JWTTTL)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "memory")

	assert.ErrorContains(t, LoadConfig(), "JWT_SECRET")
}

func TestValidate(t *testing.T) {
	base := Config{JWTSecret: "x", StoreDriver: DriverMemory, SuggestionDefaultLimit: 10, SuggestionMaxLimit: 50}
	require.NoError(t, base.Validate())

	pg := base
	pg.StoreDriver = DriverPostgres
	assert.ErrorContains(t, pg.Validate(), "DATABASE_URL")

	unknown := base
	unknown.StoreDriver = "sqlite"
	assert.ErrorContains(t, unknown.Validate(), "unknown STORE_DRIVER")

	limits := base
	limits.SuggestionMaxLimit = 5
	assert.Error(t, limits.Validate())
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "DEBUG"}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (&Config{LogLevel: "warning"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "nope"}).SlogLevel())
}
