package config

import (
	"path/filepath"
	"time"

	"github.com/mattjoyce/tooly/internal/host"
)

// Config represents the complete tooly configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service" toml:"service"`
	DataDir  string         `yaml:"data_dir" toml:"data_dir"`
	History  HistoryConfig  `yaml:"history" toml:"history"`
	Script   ScriptConfig   `yaml:"script" toml:"script"`
	Terminal TerminalConfig `yaml:"terminal" toml:"terminal"`
	API      APIConfig      `yaml:"api" toml:"api"`
	Menu     MenuConfig     `yaml:"menu" toml:"menu"`

	// SourcePath is the file the configuration was read from, empty for defaults.
	SourcePath string `yaml:"-" toml:"-"`
}

// ServiceConfig defines process-wide settings.
type ServiceConfig struct {
	Name      string `yaml:"name" toml:"name"`
	LogLevel  string `yaml:"log_level" toml:"log_level"`
	LogFormat string `yaml:"log_format" toml:"log_format"`
}

// HistoryConfig defines the SQLite action log.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// Path is relative to DataDir unless absolute.
	Path      string        `yaml:"path" toml:"path"`
	Retention time.Duration `yaml:"retention" toml:"retention"`
}

// ScriptConfig bounds background scripts.
type ScriptConfig struct {
	Timeout        time.Duration `yaml:"timeout" toml:"timeout"`
	GracePeriod    time.Duration `yaml:"grace_period" toml:"grace_period"`
	MaxOutputBytes int           `yaml:"max_output_bytes" toml:"max_output_bytes"`
}

// TerminalConfig controls where interactive terminal scripts are written.
type TerminalConfig struct {
	// TempDir defaults to the OS temp directory.
	TempDir       string `yaml:"temp_dir" toml:"temp_dir"`
	UniqueScripts bool   `yaml:"unique_scripts" toml:"unique_scripts"`
}

// APIConfig defines the local HTTP API served by "tooly serve".
type APIConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Listen  string `yaml:"listen" toml:"listen"`
	APIKey  string `yaml:"api_key" toml:"api_key"`
}

// MenuConfig points at the context-menu settings used by "tooly emit".
type MenuConfig struct {
	Settings string `yaml:"settings" toml:"settings"`
}

// Defaults returns a Config with every field set.
func Defaults() *Config {
	dataDir, err := host.DataDir()
	if err != nil {
		dataDir = filepath.Join(".", "data")
	}
	return &Config{
		Service: ServiceConfig{
			Name:      "tooly",
			LogLevel:  "info",
			LogFormat: "json",
		},
		DataDir: dataDir,
		History: HistoryConfig{
			Enabled:   true,
			Path:      "history.db",
			Retention: 30 * 24 * time.Hour,
		},
		Script: ScriptConfig{
			Timeout:        120 * time.Second,
			GracePeriod:    2 * time.Second,
			MaxOutputBytes: 1 << 20,
		},
		Terminal: TerminalConfig{
			UniqueScripts: true,
		},
		API: APIConfig{
			Enabled: true,
			Listen:  "127.0.0.1:7878",
		},
		Menu: MenuConfig{
			Settings: "settings.json",
		},
	}
}

// HistoryPath returns the absolute path of the history database.
func (c *Config) HistoryPath() string {
	return c.resolve(c.History.Path)
}

// MenuSettingsPath returns the absolute path of the context-menu settings.
func (c *Config) MenuSettingsPath() string {
	return c.resolve(c.Menu.Settings)
}

// LockPath returns the single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "tooly.lock")
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if out.API.APIKey != "" {
		out.API.APIKey = "********"
	}
	return &out
}
