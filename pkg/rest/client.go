// Package rest sends interaction callbacks, followup messages, and command
// registrations to the platform HTTP API. Delivery is single-attempt: the
// engine never retries, by contract.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wrenbot/wren/pkg/interaction"
	"github.com/wrenbot/wren/pkg/logging"
)

// DefaultBaseURL is the platform API root.
const DefaultBaseURL = "https://discord.com/api/v10"

// Client is the outbound sender. It implements dispatch.Responder (for the
// push transport, where acknowledgements are network calls) and
// dispatch.FollowupSender (for both transports).
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root (tests, proxies).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a sender authenticated with the application's bot token.
func New(token string, log *logging.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log.Sub("rest"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ack delivers an acknowledgement through the interaction callback
// endpoint. Used by the push transport, where there is no held HTTP
// request to complete.
func (c *Client) Ack(ctx context.Context, inter interaction.Interaction, resp interaction.Response) error {
	path := fmt.Sprintf("/interactions/%s/%s/callback", inter.ID, inter.Token)
	return c.post(ctx, path, resp, false)
}

// Closed implements dispatch.Responder. A push-transport interaction that
// times out needs no cleanup here; the platform fails it independently.
func (c *Client) Closed(inter interaction.Interaction, cause error) {
	c.log.Debug().Str("interactionId", inter.ID).Err(cause).Msg("interaction closed unacknowledged")
}

// Followup sends a post-acknowledgement message through the interaction's
// webhook. Payload is an opaque message object.
func (c *Client) Followup(ctx context.Context, inter interaction.Interaction, payload json.RawMessage) error {
	appID := inter.ApplicationID
	path := fmt.Sprintf("/webhooks/%s/%s", appID, inter.Token)
	return c.post(ctx, path, payload, false)
}

// BulkOverwriteCommands replaces the application's global command set with
// the given declared schemas.
func (c *Client) BulkOverwriteCommands(ctx context.Context, appID string, schemas []json.RawMessage) error {
	body, err := json.Marshal(schemas)
	if err != nil {
		return fmt.Errorf("marshaling command schemas: %w", err)
	}
	path := fmt.Sprintf("/applications/%s/commands", appID)
	return c.do(ctx, http.MethodPut, path, body, true)
}

// post marshals v and issues a single POST.
func (c *Client) post(ctx context.Context, path string, v any, authed bool) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body, authed)
}

// do issues one request and checks the status. Interaction callbacks and
// followups authenticate via the interaction token in the URL; application
// endpoints need the bot token header.
func (c *Client) do(ctx context.Context, method, path string, body []byte, authed bool) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bot "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, detail)
	}

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("api call")
	return nil
}
