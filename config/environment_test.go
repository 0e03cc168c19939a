package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("AUTH_CACHE_TTL", "45s")

	env, err := Load()
	require.NoError(t, err)

	assert.False(t, env.IsDevelopment)
	assert.Equal(t, "9090", env.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, env.AllowedOrigins)
	assert.Equal(t, 45*time.Second, env.AuthCacheTTL)
	assert.Equal(t, 2*time.Second, env.DeckCacheDedupe)
	assert.Equal(t, "sqlite", env.DBDriver)
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := "port: \"7000\"\nvision_provider: gcp\njwt_secret_key: fromfile\nauth_cache_ttl: 10s\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("APP_ENV", "production")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7001")

	env, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7001", env.Port)
	assert.Equal(t, "gcp", env.VisionProvider)
	assert.Equal(t, "fromfile", env.JWTSecretKey)
	assert.Equal(t, 10*time.Second, env.AuthCacheTTL)
}

func TestLoadRequiresAuth(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("AUTH_ISSUER", "")

	_, err := Load()
	assert.Error(t, err)
}
