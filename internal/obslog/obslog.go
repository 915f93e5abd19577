// Package obslog holds the process-wide zap logger.
package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global atomic.Pointer[zap.Logger]

func init() { global.Store(zap.NewNop()) }

// L returns the global logger. It is a no-op until initialized.
func L() *zap.Logger { return global.Load() }

// Set replaces the global logger. nil restores the no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	global.Store(l)
}

// Sync flushes buffered entries. Errors from syncing stdout are ignored.
func Sync() { _ = L().Sync() }

// Defaults are used when the matching env var is unset.
type Defaults struct {
	Console bool
	File    string
}

const defaultLogFile = "logs/study.log"

// Settings is the parsed logging configuration.
type Settings struct {
	Level   zapcore.Level
	Format  string // legacy | json | console
	Console bool
	File    string // empty disables the file sink
	Caller  bool
}

// SettingsFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_TO_CONSOLE, LOG_TO_FILE,
// LOG_FILE and LOG_CALLER.
func SettingsFromEnv(def Defaults) Settings {
	s := Settings{
		Level:   parseLevel(env("LOG_LEVEL", "info")),
		Format:  strings.ToLower(strings.TrimSpace(env("LOG_FORMAT", "legacy"))),
		Console: isTrue(env("LOG_TO_CONSOLE", fmt.Sprint(def.Console))),
		Caller:  isTrue(env("LOG_CALLER", "false")),
	}
	switch s.Format {
	case "json", "console":
	default:
		s.Format = "legacy"
	}
	if isTrue(env("LOG_TO_FILE", "true")) {
		file := def.File
		if strings.TrimSpace(file) == "" {
			file = defaultLogFile
		}
		s.File = strings.TrimSpace(env("LOG_FILE", file))
	}
	return s
}

// InitFromEnv initializes the global logger with console output on.
func InitFromEnv() error {
	return InitFromEnvWith(Defaults{Console: true})
}

// InitFromEnvWith is InitFromEnv with caller-chosen defaults. Terminal UIs
// pass Console: false so log lines never land on the drawn screen.
func InitFromEnvWith(def Defaults) error {
	l, err := Build(SettingsFromEnv(def))
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Build creates a logger that tees to every enabled sink. With no sinks it
// returns a no-op logger. The legacy format always records the caller.
func Build(s Settings) (*zap.Logger, error) {
	var cores []zapcore.Core
	enc := encoderFor(s.Format)
	if s.Console {
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stdout), s.Level))
	}
	if s.File != "" {
		if dir := filepath.Dir(s.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log dir: %w", err)
			}
		}
		f, err := os.OpenFile(s.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(enc.Clone(), zapcore.AddSync(f), s.Level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if s.Caller || s.Format == "legacy" {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

func encoderFor(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	switch format {
	case "json":
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	case "console":
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	default:
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.ConsoleSeparator = " | "
		return zapcore.NewConsoleEncoder(cfg)
	}
}

func parseLevel(s string) zapcore.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func isTrue(s string) bool { return strings.EqualFold(strings.TrimSpace(s), "true") }

func env(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
