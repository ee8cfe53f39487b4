package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.False(t, cfg.Leveling.ConflictCacheEnabled)
	assert.Equal(t, 5*time.Minute, cfg.Leveling.ConflictCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.Leveling.LockTimeout)
	assert.Equal(t, "FILL_EXISTING_FIRST", cfg.Leveling.DefaultPolicy)
	assert.True(t, cfg.Swagger.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ENABLE_CONFLICT_CACHE", "true")
	t.Setenv("CONFLICT_CACHE_TTL", "90s")
	t.Setenv("MATRICULATION_LOCK_TIMEOUT", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("JWT_ISSUER", "identity")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Leveling.ConflictCacheEnabled)
	assert.Equal(t, 90*time.Second, cfg.Leveling.ConflictCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.Leveling.LockTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "identity", cfg.JWT.Issuer)
}

func TestLoadReadsDotEnv(t *testing.T) {
	chdirTemp(t)
	require.NoError(t, os.WriteFile(".env", []byte("PORT=9090\nMATRICULATION_POLICY=CREATION_ORDER\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("MATRICULATION_POLICY")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "CREATION_ORDER", cfg.Leveling.DefaultPolicy)
}
