package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	yaml "gopkg.in/yaml.v3"
)

// configRelPath is looked up under the XDG config dirs when STUDY_CONFIG is unset.
const configRelPath = "cheese-study/config.yaml"

type AppConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`

	XUserID    string `yaml:"x_user_id"`
	XSessionID string `yaml:"x_session_id"`

	RedisURL     string        `yaml:"redis_url"`
	LineCacheTTL time.Duration `yaml:"line_cache_ttl"`

	ViewerAddr string `yaml:"viewer_addr"`

	DrillCatalog  string        `yaml:"drill_catalog"`
	PlayerColor   string        `yaml:"player_color"`
	FirstReveal   time.Duration `yaml:"first_reveal"`
	NextReveal    time.Duration `yaml:"next_reveal"`
	OpponentDelay time.Duration `yaml:"opponent_delay"`
	MessagesDir   string        `yaml:"messages_dir"`

	// Source is the YAML file that was applied, if any.
	Source string `yaml:"-"`
}

func defaults() *AppConfig {
	return &AppConfig{
		Timeout:       5 * time.Second,
		RetryMax:      3,
		LineCacheTTL:  24 * time.Hour,
		ViewerAddr:    "127.0.0.1:8088",
		PlayerColor:   "w",
		FirstReveal:   1000 * time.Millisecond,
		NextReveal:    0,
		OpponentDelay: 500 * time.Millisecond,
	}
}

// Load applies defaults, then the YAML file, then environment variables.
// Settings that only some modes need are checked by the callers.
func Load() (*AppConfig, error) {
	cfg := defaults()

	path, err := configPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	switch cfg.PlayerColor {
	case "w", "b":
	default:
		return nil, fmt.Errorf("player color must be w or b, got %q", cfg.PlayerColor)
	}
	return cfg, nil
}

// ErrNoBaseURL is returned by RequireBackend when STUDY_BASE_URL is unset.
var ErrNoBaseURL = errors.New("STUDY_BASE_URL is required")

// RequireBackend checks the settings every backend-driven mode needs. The
// exercise drills run offline and skip it.
func (c *AppConfig) RequireBackend() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	return nil
}

// configPath returns STUDY_CONFIG when set (the file must exist), otherwise
// the first XDG match or "".
func configPath() (string, error) {
	if v := strings.TrimSpace(os.Getenv("STUDY_CONFIG")); v != "" {
		if _, err := os.Stat(v); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return v, nil
	}
	p, err := xdg.SearchConfigFile(configRelPath)
	if err != nil {
		return "", nil
	}
	return p, nil
}

func (c *AppConfig) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Source = path
	return nil
}

func (c *AppConfig) applyEnv() error {
	setString(&c.BaseURL, "STUDY_BASE_URL")
	setString(&c.XUserID, "X_USER_ID")
	setString(&c.XSessionID, "X_SESSION_ID")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.ViewerAddr, "STUDY_VIEWER_ADDR")
	setString(&c.DrillCatalog, "STUDY_DRILL_CATALOG")
	setString(&c.PlayerColor, "STUDY_PLAYER_COLOR")
	setString(&c.MessagesDir, "STUDY_MESSAGES_DIR")
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.PlayerColor = strings.ToLower(c.PlayerColor)

	if v := strings.TrimSpace(os.Getenv("STUDY_RETRY_MAX")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("STUDY_RETRY_MAX: invalid value %q", v)
		}
		c.RetryMax = n
	}
	millis := []struct {
		key string
		dst *time.Duration
	}{
		{"STUDY_TIMEOUT_MS", &c.Timeout},
		{"STUDY_FIRST_REVEAL_MS", &c.FirstReveal},
		{"STUDY_NEXT_REVEAL_MS", &c.NextReveal},
		{"STUDY_OPPONENT_DELAY_MS", &c.OpponentDelay},
	}
	for _, m := range millis {
		if err := setMillis(m.dst, m.key); err != nil {
			return err
		}
	}
	if v := strings.TrimSpace(os.Getenv("STUDY_LINE_CACHE_TTL")); v != "" {
		d, err := parseTTL(v)
		if err != nil {
			return fmt.Errorf("STUDY_LINE_CACHE_TTL: %w", err)
		}
		c.LineCacheTTL = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setMillis(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fmt.Errorf("%s: invalid milliseconds %q", key, v)
	}
	*dst = time.Duration(n) * time.Millisecond
	return nil
}

// parseTTL accepts a Go duration ("6h") or plain seconds ("3600").
func parseTTL(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("invalid ttl %q", v)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid ttl %q", v)
	}
	return d, nil
}
