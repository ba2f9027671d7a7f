package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wrenbot/wren/internal/config"
	"github.com/wrenbot/wren/pkg/dispatch"
	"github.com/wrenbot/wren/pkg/gateway"
	"github.com/wrenbot/wren/pkg/interaction"
	"github.com/wrenbot/wren/pkg/logging"
	"github.com/wrenbot/wren/pkg/rest"
	"github.com/wrenbot/wren/pkg/store"
	"github.com/wrenbot/wren/pkg/webhook"
)

func newServeCmd() *cobra.Command {
	var (
		mode string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the interactions daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if mode != "" {
				cfg.Mode = mode
			}
			if port != 0 {
				cfg.Webhook.Port = port
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			log = logging.New(nil, cfg.Logging.Level, cfg.Logging.Style)

			registry := dispatch.NewRegistry()
			if err := registerDemoHandlers(registry); err != nil {
				return fmt.Errorf("registering handlers: %w", err)
			}

			sender := rest.New(cfg.App.Token, log)
			dispatcher := dispatch.New(registry, sender, log,
				dispatch.WithAckTimeout(time.Duration(cfg.Dispatch.AckTimeoutMs)*time.Millisecond),
			)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Sync.Enabled {
				if err := paths.EnsureDirs(); err != nil {
					return err
				}
				db, err := store.Open(filepath.Join(paths.Data, "wren.db"), log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()

				cache := store.NewCommandSync(db)
				pushed, err := cache.SyncIfChanged(ctx, cfg.App.ID, registry.CommandSchemas(), sender.BulkOverwriteCommands)
				if err != nil {
					return fmt.Errorf("syncing commands: %w", err)
				}
				log.Info().Bool("pushed", pushed).Msg("command sync complete")
			}

			switch cfg.Mode {
			case "webhook":
				srv, err := webhook.New(webhook.Config{
					Port:           cfg.Webhook.Port,
					Bind:           cfg.Webhook.Bind,
					CustomBindHost: cfg.Webhook.CustomBindHost,
					Path:           cfg.Webhook.Path,
					TLS: webhook.TLSConfig{
						Enabled:  cfg.Webhook.TLS.Enabled,
						CertPath: cfg.Webhook.TLS.CertPath,
						KeyPath:  cfg.Webhook.TLS.KeyPath,
					},
				}, cfg.App.PublicKey, dispatcher, log)
				if err != nil {
					return err
				}
				return srv.Start(ctx)
			case "gateway":
				client := gateway.New(gateway.Config{
					URL:     cfg.Gateway.URL,
					Token:   cfg.App.Token,
					Intents: cfg.Gateway.Intents,
				}, dispatcher, sender, log)
				return client.Run(ctx)
			default:
				return fmt.Errorf("unsupported mode %q", cfg.Mode)
			}
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "override transport mode (webhook, gateway)")
	cmd.Flags().IntVar(&port, "port", 0, "override webhook port")

	return cmd
}

// registerDemoHandlers installs the reference handlers the daemon ships
// with: an echo command and a confirm button family.
func registerDemoHandlers(registry *dispatch.Registry) error {
	echoSchema := json.RawMessage(`{
		"name": "echo",
		"description": "Repeat a message back",
		"options": [
			{"type": 3, "name": "message", "description": "What to repeat", "required": true}
		]
	}`)

	if err := registry.RegisterCommand("echo", echoSchema, func(ctx *dispatch.Context) {
		var data struct {
			Options []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"options"`
		}
		message := "(nothing to repeat)"
		if err := json.Unmarshal(ctx.Interaction.Data, &data); err == nil {
			for _, opt := range data.Options {
				if opt.Name == "message" {
					message = opt.Value
				}
			}
		}
		payload, _ := json.Marshal(map[string]any{"content": message})
		ctx.Respond(payload)
	}); err != nil {
		return err
	}

	// Matches confirm:yes, confirm:no, and anything else under the prefix.
	return registry.RegisterComponent("confirm:", func(ctx *dispatch.Context) {
		payload, _ := json.Marshal(map[string]any{
			"content": "choice recorded: " + ctx.Interaction.CustomID,
		})
		ctx.RespondWith(interaction.AckUpdateMessage, payload)
	})
}
