package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "resumes", cfg.MinIO.Bucket)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxResumeBytes)
	assert.Empty(t, cfg.Upload.ClamdAddr)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("POSTGRES_DB", "tracker_test")
	t.Setenv("JWT_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("CLAMD_ADDR", "tcp://clamav:3310")
	t.Setenv("AUTH_COOKIE_DOMAIN", "tracker.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "tracker_test", cfg.Database.Name)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "tcp://clamav:3310", cfg.Upload.ClamdAddr)
	assert.Equal(t, "tracker.example.com", cfg.Auth.CookieDomain)
	assert.Contains(t, cfg.Database.DSN(), "dbname=tracker_test")
}

func TestLoad_MissingMinIOCredentials(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minio access key id is required")
}
