package config

// Config is the root configuration for the wren daemon.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Mode     string         `yaml:"mode,omitempty"` // "webhook" | "gateway"
	Webhook  WebhookConfig  `yaml:"webhook,omitempty"`
	Gateway  GatewayConfig  `yaml:"gateway,omitempty"`
	Sync     SyncConfig     `yaml:"sync,omitempty"`
	Dispatch DispatchConfig `yaml:"dispatch,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// AppConfig identifies the platform application.
type AppConfig struct {
	ID        string `yaml:"id,omitempty"`
	Token     string `yaml:"token,omitempty"`     // bot token; supports ${VAR}
	PublicKey string `yaml:"publicKey,omitempty"` // hex Ed25519 key; supports ${VAR}
}

// WebhookConfig controls the pull transport listener.
type WebhookConfig struct {
	Port           int       `yaml:"port,omitempty"`
	Bind           string    `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string    `yaml:"customBindHost,omitempty"`
	Path           string    `yaml:"path,omitempty"`
	TLS            TLSConfig `yaml:"tls,omitempty"`
}

// TLSConfig enables HTTPS on the webhook listener.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// GatewayConfig controls the push transport connection.
type GatewayConfig struct {
	URL     string `yaml:"url,omitempty"`
	Intents int    `yaml:"intents,omitempty"`
}

// SyncConfig controls startup command registration.
type SyncConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

// DispatchConfig tunes the dispatch engine.
type DispatchConfig struct {
	AckTimeoutMs int `yaml:"ackTimeoutMs,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // trace…silent
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}

// ConfigError is a configuration load or parse failure.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
