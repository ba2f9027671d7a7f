package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultBaseDir = ".wren"

// Paths holds resolved filesystem paths for wren data.
type Paths struct {
	Base   string // ~/.wren
	Config string // ~/.wren/config.yaml
	Data   string // ~/.wren/data
}

// ResolvePaths computes the standard paths from the home directory.
// WREN_HOME overrides the base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("WREN_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}
	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Data:   filepath.Join(base, "data"),
	}, nil
}

// EnsureDirs creates the standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes env references in credential fields so
// tokens and keys can be stored as ${ENV_VAR} in the config file.
func expandSensitiveFields(cfg *Config) {
	cfg.App.Token = expandEnvVars(cfg.App.Token)
	cfg.App.PublicKey = expandEnvVars(cfg.App.PublicKey)
}

// Load reads the config file, applies defaults and environment overrides,
// and returns the merged Config. A missing file produces defaults only.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(&cfg)
			applyEnvOverrides(&cfg)
			expandSensitiveFields(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = "gateway"
	}
	if cfg.Webhook.Port == 0 {
		cfg.Webhook.Port = 18111
	}
	if cfg.Webhook.Bind == "" {
		cfg.Webhook.Bind = "loopback"
	}
	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = "/interactions"
	}
	if cfg.Dispatch.AckTimeoutMs == 0 {
		cfg.Dispatch.AckTimeoutMs = 3000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = "pretty"
	}
}

// applyEnvOverrides reads WREN_* environment variables over config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WREN_APP_ID"); v != "" {
		cfg.App.ID = v
	}
	if v := os.Getenv("WREN_TOKEN"); v != "" {
		cfg.App.Token = v
	}
	if v := os.Getenv("WREN_PUBLIC_KEY"); v != "" {
		cfg.App.PublicKey = v
	}
	if v := os.Getenv("WREN_MODE"); v != "" {
		cfg.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("WREN_WEBHOOK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Webhook.Port = port
		}
	}
	if v := os.Getenv("WREN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
