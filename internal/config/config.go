package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appName = "wagroups"

// ErrInvalid is returned by Validate for unusable configuration values.
var ErrInvalid = errors.New("invalid configuration")

var phonePattern = regexp.MustCompile(`^[0-9]{7,15}$`)

type Delays struct {
	AfterAdd      time.Duration `yaml:"after_add"`
	BetweenGroups time.Duration `yaml:"between_groups"`
	BetweenPhones time.Duration `yaml:"between_phones"`
}

type RateLimit struct {
	OperationsPerMinute float64 `yaml:"operations_per_minute"`
}

type Config struct {
	Keywords         []string      `yaml:"keywords"`
	BoundaryKeywords []string      `yaml:"boundary_keywords"`
	PhoneNumbers     []string      `yaml:"phone_numbers"`
	Delays           Delays        `yaml:"delays"`
	RateLimit        RateLimit     `yaml:"rate_limit"`
	OutputDir        string        `yaml:"output_dir"`
	SessionDB        string        `yaml:"session_db,omitempty"`
	InviteTimeout    time.Duration `yaml:"invite_timeout"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Keywords: []string{
			"growthschool", "outskillllllllll", "buildschool", "gs",
			"webinar", "workshop", "ai", "mastermind", "mentorship",
		},
		BoundaryKeywords: []string{"gs", "ai"},
		Delays: Delays{
			AfterAdd:      1500 * time.Millisecond,
			BetweenGroups: 2 * time.Second,
			BetweenPhones: 3 * time.Second,
		},
		OutputDir:     ".",
		InviteTimeout: 30 * time.Second,
	}
}

// GetConfigDir is $XDG_CONFIG_HOME/wagroups when set, otherwise the
// platform's per-user config location. It is empty when no home directory
// can be resolved.
func GetConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); filepath.IsAbs(dir) {
		return filepath.Join(dir, appName)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(homeDir, "AppData", "Local", appName)
	}
	return filepath.Join(homeDir, ".config", appName)
}

func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

func GetSessionPath() string {
	return filepath.Join(GetConfigDir(), "session.db")
}

// Load reads the YAML config at path, falling back to defaults when the file
// does not exist, then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("error reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}
	cfg.applyEnvOverrides()

	if cfg.SessionDB == "" {
		cfg.SessionDB = GetSessionPath()
	}

	return cfg, nil
}

func Save(cfg *Config, path string) error {
	if path == "" {
		path = GetConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WAGROUPS_PHONE_NUMBERS"); v != "" {
		c.PhoneNumbers = splitList(v)
	}
	if v := os.Getenv("WAGROUPS_KEYWORDS"); v != "" {
		c.Keywords = splitList(v)
	}
	if v := os.Getenv("WAGROUPS_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("WAGROUPS_SESSION_DB"); v != "" {
		c.SessionDB = v
	}
}

// Validate checks the fields every command relies on. Phone numbers are only
// required by the mutation stage and are checked by RequirePhones.
func (c *Config) Validate() error {
	if len(c.Keywords) == 0 {
		return fmt.Errorf("%w: no keywords configured", ErrInvalid)
	}
	for i, kw := range c.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("%w: keyword %d is empty", ErrInvalid, i)
		}
	}
	for _, phone := range c.PhoneNumbers {
		if !phonePattern.MatchString(phone) {
			return fmt.Errorf("%w: phone number %q must be 7-15 digits with country code", ErrInvalid, phone)
		}
	}
	if c.Delays.AfterAdd < 0 || c.Delays.BetweenGroups < 0 || c.Delays.BetweenPhones < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalid)
	}
	if c.RateLimit.OperationsPerMinute < 0 {
		return fmt.Errorf("%w: rate_limit.operations_per_minute must not be negative", ErrInvalid)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_dir is empty", ErrInvalid)
	}
	return nil
}

func (c *Config) RequirePhones() error {
	if len(c.PhoneNumbers) == 0 {
		return fmt.Errorf("%w: no phone_numbers configured", ErrInvalid)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
