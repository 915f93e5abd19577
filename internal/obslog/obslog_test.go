package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitFromEnvWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "study.log")
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FILE", path)
	t.Setenv("LOG_LEVEL", "debug")
	t.Cleanup(func() { Set(nil) })

	require.NoError(t, InitFromEnv())
	L().Debug("nav_step_into")
	Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"nav_step_into"`)
	assert.Contains(t, string(raw), `"level":"debug"`)
}

func TestInitFromEnvWithNoSinksIsNop(t *testing.T) {
	t.Setenv("LOG_TO_FILE", "false")
	t.Setenv("LOG_TO_CONSOLE", "")
	t.Cleanup(func() { Set(nil) })

	require.NoError(t, InitFromEnvWith(Defaults{Console: false}))
	assert.False(t, L().Core().Enabled(zapcore.ErrorLevel))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" Warning "))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, zapcore.DebugLevel, parseLevel(strings.ToUpper("debug")))
}

func TestSettingsFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "LOG_FORMAT", "LOG_TO_CONSOLE", "LOG_TO_FILE", "LOG_FILE", "LOG_CALLER"} {
		t.Setenv(k, "")
	}
	s := SettingsFromEnv(Defaults{Console: false, File: "var/tui.log"})
	assert.Equal(t, Settings{Level: zapcore.InfoLevel, Format: "legacy", File: "var/tui.log"}, s)

	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("LOG_TO_FILE", "false")
	t.Setenv("LOG_TO_CONSOLE", "TRUE")
	s = SettingsFromEnv(Defaults{})
	assert.Equal(t, "legacy", s.Format)
	assert.Empty(t, s.File)
	assert.True(t, s.Console)
}
