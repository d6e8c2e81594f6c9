// Package config loads aurasync settings from YAML files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ProjectFile is the per-project config file name.
const ProjectFile = ".aurasync.yaml"

// Config holds all configurable aurasync settings.
type Config struct {
	Endpoint       string   `yaml:"endpoint,omitempty"        env:"AURASYNC_ENDPOINT"`
	APIKey         string   `yaml:"api_key,omitempty"         env:"AURASYNC_API_KEY"`
	User           string   `yaml:"user,omitempty"` // identity override; env lookup lives in profile
	ProjectName    string   `yaml:"project_name,omitempty"    env:"AURASYNC_PROJECT"`
	WatchDir       string   `yaml:"watch_dir,omitempty"       env:"AURASYNC_WATCH_DIR"`
	IgnorePatterns []string `yaml:"ignore_patterns,omitempty" env:"AURASYNC_IGNORE" envSeparator:","`
	LogLevel       string   `yaml:"log_level,omitempty"       env:"AURASYNC_LOG_LEVEL"`
	HostVersion    string   `yaml:"host_version,omitempty"    env:"AURASYNC_HOST_VERSION"`

	Debounce            time.Duration `yaml:"debounce,omitempty"             env:"AURASYNC_DEBOUNCE"`
	ProjectDebounce     time.Duration `yaml:"project_debounce,omitempty"     env:"AURASYNC_PROJECT_DEBOUNCE"`
	PollInterval        time.Duration `yaml:"poll_interval,omitempty"        env:"AURASYNC_POLL_INTERVAL"`
	InactivityThreshold time.Duration `yaml:"inactivity_threshold,omitempty" env:"AURASYNC_INACTIVITY_THRESHOLD"`
	ContextRefresh      time.Duration `yaml:"context_refresh,omitempty"      env:"AURASYNC_CONTEXT_REFRESH"`
	SendPace            time.Duration `yaml:"send_pace,omitempty"            env:"AURASYNC_SEND_PACE"`
	SendTimeout         time.Duration `yaml:"send_timeout,omitempty"         env:"AURASYNC_SEND_TIMEOUT"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		WatchDir:            ".",
		IgnorePatterns:      []string{"*.meta", "*.swp", "*~"},
		LogLevel:            "info",
		Debounce:            2 * time.Second,
		ProjectDebounce:     5 * time.Second,
		PollInterval:        120 * time.Second,
		InactivityThreshold: 300 * time.Second,
		ContextRefresh:      300 * time.Second,
		SendPace:            100 * time.Millisecond,
		SendTimeout:         10 * time.Second,
	}
}

// GlobalPath returns the global config file path:
// $XDG_CONFIG_HOME/aurasync/config.yaml or ~/.config/aurasync/config.yaml.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "aurasync", "config.yaml"), nil
}

// LoadGlobal reads the global config file.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .aurasync.yaml in dir.
// Returns nil (no error) if the file is absent.
func LoadProject(dir string) (*Config, error) {
	return loadFile(filepath.Join(dir, ProjectFile), false)
}

// loadFile reads and parses a YAML config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	if global != nil {
		overlay(&result, global)
	}
	if project != nil {
		overlay(&result, project)
	}
	return result
}

// overlay copies every set field of src over dst.
func overlay(dst, src *Config) {
	setString(&dst.Endpoint, src.Endpoint)
	setString(&dst.APIKey, src.APIKey)
	setString(&dst.User, src.User)
	setString(&dst.ProjectName, src.ProjectName)
	setString(&dst.WatchDir, src.WatchDir)
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.HostVersion, src.HostVersion)
	if len(src.IgnorePatterns) > 0 {
		dst.IgnorePatterns = src.IgnorePatterns
	}
	setDuration(&dst.Debounce, src.Debounce)
	setDuration(&dst.ProjectDebounce, src.ProjectDebounce)
	setDuration(&dst.PollInterval, src.PollInterval)
	setDuration(&dst.InactivityThreshold, src.InactivityThreshold)
	setDuration(&dst.ContextRefresh, src.ContextRefresh)
	setDuration(&dst.SendPace, src.SendPace)
	setDuration(&dst.SendTimeout, src.SendTimeout)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// ApplyEnv overrides cfg with any AURASYNC_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load resolves the effective config for the project in dir:
// defaults < global file < project file < environment.
func Load(dir string) (Config, error) {
	global, err := LoadGlobal()
	if err != nil {
		return Config{}, err
	}
	project, err := LoadProject(dir)
	if err != nil {
		return Config{}, err
	}
	cfg := Merge(global, project)
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
