package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gateway", cfg.Mode)
	assert.Equal(t, 18111, cfg.Webhook.Port)
	assert.Equal(t, "loopback", cfg.Webhook.Bind)
	assert.Equal(t, "/interactions", cfg.Webhook.Path)
	assert.Equal(t, 3000, cfg.Dispatch.AckTimeoutMs)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "pretty", cfg.Logging.Style)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
app:
  id: "123"
  token: "secret"
mode: webhook
webhook:
  port: 9000
  path: /hooks
dispatch:
  ackTimeoutMs: 2500
logging:
  level: debug
  style: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123", cfg.App.ID)
	assert.Equal(t, "secret", cfg.App.Token)
	assert.Equal(t, "webhook", cfg.Mode)
	assert.Equal(t, 9000, cfg.Webhook.Port)
	assert.Equal(t, "/hooks", cfg.Webhook.Path)
	assert.Equal(t, 2500, cfg.Dispatch.AckTimeoutMs)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Style)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "mode: [unclosed")
	_, err := Load(path)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
app:
  token: from-file
mode: gateway
`)
	t.Setenv("WREN_TOKEN", "from-env")
	t.Setenv("WREN_MODE", "WEBHOOK")
	t.Setenv("WREN_WEBHOOK_PORT", "7777")
	t.Setenv("WREN_LOG_LEVEL", "TRACE")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.App.Token)
	assert.Equal(t, "webhook", cfg.Mode)
	assert.Equal(t, 7777, cfg.Webhook.Port)
	assert.Equal(t, "trace", cfg.Logging.Level)
}

func TestLoad_EnvVarExpansionInCredentials(t *testing.T) {
	path := writeConfig(t, `
app:
  token: "${TEST_BOT_TOKEN}"
  publicKey: "${TEST_PUBLIC_KEY}"
`)
	t.Setenv("TEST_BOT_TOKEN", "expanded-token")
	t.Setenv("TEST_PUBLIC_KEY", "expanded-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-token", cfg.App.Token)
	assert.Equal(t, "expanded-key", cfg.App.PublicKey)
}

func TestLoad_UnsetEnvVarLeftAsIs(t *testing.T) {
	path := writeConfig(t, `
app:
  token: "${DEFINITELY_NOT_SET_ANYWHERE}"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${DEFINITELY_NOT_SET_ANYWHERE}", cfg.App.Token)
}

func TestResolvePaths_HomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WREN_HOME", dir)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, dir, paths.Base)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(dir, "data"), paths.Data)

	require.NoError(t, paths.EnsureDirs())
	assert.DirExists(t, paths.Data)
}

func issuePaths(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Path)
	}
	return out
}

func TestValidate_ValidGatewayConfig(t *testing.T) {
	cfg := Config{Mode: "gateway", App: AppConfig{Token: "tok"}}
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_InvalidMode(t *testing.T) {
	cfg := Config{Mode: "both", App: AppConfig{Token: "tok"}}
	assert.Contains(t, issuePaths(Validate(&cfg)), "mode")
}

func TestValidate_TokenRequired(t *testing.T) {
	cfg := Config{Mode: "gateway"}
	assert.Contains(t, issuePaths(Validate(&cfg)), "app.token")
}

func TestValidate_WebhookNeedsPublicKey(t *testing.T) {
	cfg := Config{Mode: "webhook", App: AppConfig{Token: "tok"}}
	assert.Contains(t, issuePaths(Validate(&cfg)), "app.publicKey")

	cfg.App.PublicKey = "abcd"
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_SyncNeedsAppID(t *testing.T) {
	cfg := Config{
		Mode: "gateway",
		App:  AppConfig{Token: "tok"},
		Sync: SyncConfig{Enabled: true},
	}
	assert.Contains(t, issuePaths(Validate(&cfg)), "app.id")
}

func TestValidate_TLSNeedsCertAndKey(t *testing.T) {
	cfg := Config{
		Mode:    "gateway",
		App:     AppConfig{Token: "tok"},
		Webhook: WebhookConfig{TLS: TLSConfig{Enabled: true}},
	}
	assert.Contains(t, issuePaths(Validate(&cfg)), "webhook.tls")
}

func TestValidate_NegativeAckTimeout(t *testing.T) {
	cfg := Config{
		Mode:     "gateway",
		App:      AppConfig{Token: "tok"},
		Dispatch: DispatchConfig{AckTimeoutMs: -1},
	}
	assert.Contains(t, issuePaths(Validate(&cfg)), "dispatch.ackTimeoutMs")
}
