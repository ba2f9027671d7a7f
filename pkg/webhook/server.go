// Package webhook is the pull transport: one signed HTTP request per
// interaction, authenticated with the application's Ed25519 public key,
// held open until the handler acknowledges.
package webhook

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/wrenbot/wren/pkg/dispatch"
	"github.com/wrenbot/wren/pkg/interaction"
	"github.com/wrenbot/wren/pkg/logging"
)

// maxBodySize bounds inbound request bodies. Interaction payloads are
// small; anything larger is not the platform.
const maxBodySize = 1 << 20

// Config controls the webhook listener.
type Config struct {
	Port           int
	Bind           string // "loopback" | "lan" | "custom"
	CustomBindHost string
	Path           string // route, default "/interactions"
	TLS            TLSConfig
}

// TLSConfig enables HTTPS on the listener.
type TLSConfig struct {
	Enabled  bool
	CertPath string
	KeyPath  string
}

// Server receives signed interaction requests and feeds the dispatcher.
type Server struct {
	cfg        Config
	pubKey     ed25519.PublicKey
	dispatcher *dispatch.Dispatcher
	log        *logging.Logger
	httpServer *http.Server
}

// New creates a webhook server. The public key is the application's
// hex-encoded Ed25519 verification key.
func New(cfg Config, publicKeyHex string, dispatcher *dispatch.Dispatcher, log *logging.Logger) (*Server, error) {
	pub, err := ParsePublicKey(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	if cfg.Path == "" {
		cfg.Path = "/interactions"
	}
	return &Server{
		cfg:        cfg,
		pubKey:     pub,
		dispatcher: dispatcher,
		log:        log.Sub("webhook"),
	}, nil
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg Config) string {
	switch cfg.Bind {
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening. It blocks until the context is cancelled or an
// error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+s.cfg.Path, s.handleInteraction)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      withMiddleware(mux, s.log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(s.cfg.TLS.CertPath, s.cfg.TLS.KeyPath)
		if err != nil {
			ln.Close()
			return fmt.Errorf("loading TLS certificate: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
		s.log.Info().Msg("TLS enabled")
	} else if s.cfg.Bind != "loopback" && s.cfg.Bind != "" {
		s.log.Warn().Msg("TLS is not enabled, expecting a terminating proxy in front")
	}

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("path", s.cfg.Path).
		Msg("webhook server starting")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down webhook server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the interaction endpoint handler for mounting on an
// external mux (tests, embedding applications).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+s.cfg.Path, s.handleInteraction)
	return withMiddleware(mux, s.log)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInteraction authenticates, decodes, and dispatches one request,
// holding it open until the response state machine leaves pending.
func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	sig := r.Header.Get(HeaderSignature)
	ts := r.Header.Get(HeaderTimestamp)
	if sig == "" || ts == "" {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("rejecting request without signature headers")
		http.Error(w, "missing signature headers", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	if !Verify(s.pubKey, ts, body, sig) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("rejecting request with invalid signature")
		http.Error(w, "invalid request signature", http.StatusUnauthorized)
		return
	}

	inter, err := interaction.Decode(body, interaction.TransportPull)
	if err != nil {
		s.log.Warn().Err(err).Msg("rejecting undecodable interaction")
		http.Error(w, "malformed interaction", http.StatusBadRequest)
		return
	}

	// Pings never touch the registry or dispatcher.
	if inter.Kind == interaction.KindPing {
		writeJSON(w, http.StatusOK, interaction.Pong())
		return
	}

	responder := newHeldResponder()
	if err := s.dispatcher.Dispatch(inter, responder); err != nil {
		if errors.Is(err, dispatch.ErrUnknownInteraction) {
			// Platform-originated, not attributable to a caller:
			// accept and drop.
			w.WriteHeader(http.StatusAccepted)
			return
		}
		http.Error(w, "dispatch failed", http.StatusInternalServerError)
		return
	}

	// Hold the request open until the handler acknowledges or the state
	// machine force-closes. The grace period covers scheduling slop past
	// the dispatcher's own deadline timer.
	select {
	case resp := <-responder.ack:
		writeJSON(w, http.StatusOK, resp)
	case <-responder.closed:
		http.Error(w, "interaction not acknowledged in time", http.StatusGatewayTimeout)
	case <-time.After(s.dispatcher.AckTimeout() + time.Second):
		http.Error(w, "interaction not acknowledged in time", http.StatusGatewayTimeout)
	}
}

// heldResponder completes the held HTTP request with the acknowledgement.
type heldResponder struct {
	ack    chan interaction.Response
	closed chan struct{}
}

func newHeldResponder() *heldResponder {
	return &heldResponder{
		ack:    make(chan interaction.Response, 1),
		closed: make(chan struct{}),
	}
}

// Ack implements dispatch.Responder by handing the acknowledgement to the
// waiting HTTP handler. Called at most once by the state machine.
func (h *heldResponder) Ack(_ context.Context, _ interaction.Interaction, resp interaction.Response) error {
	h.ack <- resp
	return nil
}

// Closed implements dispatch.Responder: wakes the held request so it can
// fail fast instead of waiting out the grace period.
func (h *heldResponder) Closed(_ interaction.Interaction, _ error) {
	close(h.closed)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
