package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	t.Setenv("STUDY_CONFIG", p)
	return p
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STUDY_BASE_URL", "STUDY_TIMEOUT_MS", "STUDY_RETRY_MAX", "REDIS_URL",
		"STUDY_LINE_CACHE_TTL", "STUDY_VIEWER_ADDR", "STUDY_DRILL_CATALOG",
		"STUDY_PLAYER_COLOR", "STUDY_FIRST_REVEAL_MS", "STUDY_NEXT_REVEAL_MS",
		"STUDY_OPPONENT_DELAY_MS", "STUDY_MESSAGES_DIR", "X_USER_ID", "X_SESSION_ID",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	writeConfig(t, "")
	t.Setenv("STUDY_BASE_URL", "http://localhost:5000/")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.RequireBackend())
	assert.Equal(t, "http://localhost:5000", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.RetryMax)
	assert.Equal(t, 24*time.Hour, cfg.LineCacheTTL)
	assert.Equal(t, "w", cfg.PlayerColor)
	assert.Equal(t, time.Second, cfg.FirstReveal)
	assert.Equal(t, time.Duration(0), cfg.NextReveal)
	assert.Equal(t, 500*time.Millisecond, cfg.OpponentDelay)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
base_url: http://study.local
timeout: 2s
redis_url: redis://localhost:6379/1
line_cache_ttl: 30m
player_color: b
drill_catalog: /srv/drills.yaml
`)
	t.Setenv("STUDY_TIMEOUT_MS", "750")
	t.Setenv("STUDY_LINE_CACHE_TTL", "3600")
	t.Setenv("X_USER_ID", "u-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, "http://study.local", cfg.BaseURL)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeout)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
	assert.Equal(t, time.Hour, cfg.LineCacheTTL)
	assert.Equal(t, "b", cfg.PlayerColor)
	assert.Equal(t, "/srv/drills.yaml", cfg.DrillCatalog)
	assert.Equal(t, "u-1", cfg.XUserID)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"bad retry", map[string]string{"STUDY_BASE_URL": "http://x", "STUDY_RETRY_MAX": "0"}},
		{"bad millis", map[string]string{"STUDY_BASE_URL": "http://x", "STUDY_TIMEOUT_MS": "soon"}},
		{"bad ttl", map[string]string{"STUDY_BASE_URL": "http://x", "STUDY_LINE_CACHE_TTL": "-1h"}},
		{"bad color", map[string]string{"STUDY_BASE_URL": "http://x", "STUDY_PLAYER_COLOR": "red"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			writeConfig(t, "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRequireBackend(t *testing.T) {
	clearEnv(t)
	writeConfig(t, "")
	cfg, err := Load()
	require.NoError(t, err, "drills run without a backend")
	assert.ErrorIs(t, cfg.RequireBackend(), ErrNoBaseURL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("STUDY_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	t.Setenv("STUDY_BASE_URL", "http://x")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)
	writeConfig(t, "timeout: [1, 2")
	t.Setenv("STUDY_BASE_URL", "http://x")
	_, err := Load()
	assert.Error(t, err)
}
