package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/tooly/internal/host"
)

// EnvConfigPath names the environment variable that points at a config file.
const EnvConfigPath = "TOOLY_CONFIG"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads configuration from path. The format follows the extension:
// .toml is TOML, anything else is YAML. An empty path returns Defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return finish(cfg)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", path, err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	interpolated := interpolateEnv(string(data))
	if err := decode(absPath, interpolated, cfg); err != nil {
		return nil, err
	}
	cfg.SourcePath = absPath
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	applyConfigDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// decode unmarshals over cfg so keys absent from the file keep their defaults.
// Unknown keys are rejected in both formats.
func decode(path, data string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		md, err := toml.Decode(data, cfg)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return fmt.Errorf("parse %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
		return nil
	}

	dec := yaml.NewDecoder(strings.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Discover returns the config file to load. Priority order: explicit path,
// $TOOLY_CONFIG, <data dir>/config.yaml, <data dir>/config.toml. It returns
// "" when none exists, meaning defaults apply.
func Discover(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("$%s points at %s: %w", EnvConfigPath, p, err)
		}
		return p, nil
	}

	dir, err := host.DataDir()
	if err != nil {
		return "", nil
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

func applyConfigDefaults(cfg *Config) {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}
	cfg.Service.LogLevel = strings.ToLower(cfg.Service.LogLevel)
	cfg.Service.LogFormat = strings.ToLower(cfg.Service.LogFormat)

	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
	if cfg.History.Path == "" {
		cfg.History.Path = defaults.History.Path
	}
	if cfg.Script.Timeout == 0 {
		cfg.Script.Timeout = defaults.Script.Timeout
	}
	if cfg.Script.GracePeriod == 0 {
		cfg.Script.GracePeriod = defaults.Script.GracePeriod
	}
	if cfg.Script.MaxOutputBytes == 0 {
		cfg.Script.MaxOutputBytes = defaults.Script.MaxOutputBytes
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
	if cfg.Menu.Settings == "" {
		cfg.Menu.Settings = defaults.Menu.Settings
	}
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.Script.Timeout < 0 {
		return fmt.Errorf("script.timeout must be positive")
	}
	if cfg.Script.GracePeriod < 0 {
		return fmt.Errorf("script.grace_period must be positive")
	}
	if cfg.Script.MaxOutputBytes < 0 {
		return fmt.Errorf("script.max_output_bytes must be positive")
	}
	if cfg.History.Retention < 0 {
		return fmt.Errorf("history.retention must not be negative")
	}

	if cfg.API.Enabled {
		if _, port, err := net.SplitHostPort(cfg.API.Listen); err != nil || port == "" {
			return fmt.Errorf("api.listen must be host:port (got %q)", cfg.API.Listen)
		}
		if matches := envVarPattern.FindStringSubmatch(cfg.API.APIKey); len(matches) > 1 {
			return fmt.Errorf("api.api_key: environment variable ${%s} is not set", matches[1])
		}
	}
	return nil
}
