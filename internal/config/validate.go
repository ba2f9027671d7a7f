package config

import "fmt"

// Issue is one validation problem with a config path and message.
type Issue struct {
	Path    string
	Message string
}

// Validate checks cross-field constraints. Returns all issues found.
func Validate(cfg *Config) []Issue {
	var issues []Issue

	switch cfg.Mode {
	case "webhook", "gateway":
	default:
		// The two transports are mutually exclusive operating modes;
		// running both at once is unsupported.
		issues = append(issues, Issue{
			Path:    "mode",
			Message: fmt.Sprintf("mode must be \"webhook\" or \"gateway\", got %q", cfg.Mode),
		})
	}

	if cfg.App.Token == "" {
		issues = append(issues, Issue{Path: "app.token", Message: "bot token is required"})
	}

	if cfg.Mode == "webhook" && cfg.App.PublicKey == "" {
		issues = append(issues, Issue{
			Path:    "app.publicKey",
			Message: "public key is required in webhook mode",
		})
	}

	if cfg.Sync.Enabled && cfg.App.ID == "" {
		issues = append(issues, Issue{
			Path:    "app.id",
			Message: "application id is required when command sync is enabled",
		})
	}

	if cfg.Webhook.TLS.Enabled && (cfg.Webhook.TLS.CertPath == "" || cfg.Webhook.TLS.KeyPath == "") {
		issues = append(issues, Issue{
			Path:    "webhook.tls",
			Message: "certPath and keyPath are required when TLS is enabled",
		})
	}

	if cfg.Dispatch.AckTimeoutMs < 0 {
		issues = append(issues, Issue{
			Path:    "dispatch.ackTimeoutMs",
			Message: "ack timeout must not be negative",
		})
	}

	return issues
}
