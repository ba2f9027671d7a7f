// Package gateway is the push transport: a persistent websocket connection
// to the platform that delivers already-authenticated interaction events.
// Acknowledgements and followups leave through the REST sender instead of
// an HTTP response body.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wrenbot/wren/pkg/dispatch"
	"github.com/wrenbot/wren/pkg/interaction"
	"github.com/wrenbot/wren/pkg/logging"
)

// DefaultURL is the platform gateway endpoint.
const DefaultURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// Config controls the gateway connection.
type Config struct {
	URL     string
	Token   string
	Intents int
}

// Client maintains the gateway connection and feeds interaction events to
// the dispatcher. The REST sender doubles as the Responder because there
// is no held request to complete on this transport.
type Client struct {
	cfg        Config
	dispatcher *dispatch.Dispatcher
	responder  dispatch.Responder
	log        *logging.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	lastSeq atomic.Int64
}

// New creates a gateway client. responder is typically the rest.Client.
func New(cfg Config, dispatcher *dispatch.Dispatcher, responder dispatch.Responder, log *logging.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	return &Client{
		cfg:        cfg,
		dispatcher: dispatcher,
		responder:  responder,
		log:        log.Sub("gateway"),
	}
}

// Run connects and processes events until the context is cancelled,
// reconnecting with exponential backoff on connection loss.
func (c *Client) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Dur("backoff", backoff).Msg("gateway connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > time.Minute {
			backoff = time.Minute
		}
	}
}

// runOnce performs one full session: connect, hello, identify, then the
// read loop until the connection drops or the context ends.
func (c *Client) runOnce(ctx context.Context) error {
	sessionID := uuid.New().String()
	log := c.log.WithField("session", sessionID)

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dialing gateway: %w", err)
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// Close the socket when the context ends so the blocking reads return.
	stop := context.AfterFunc(ctx, func() {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down"))
		conn.Close()
	})
	defer stop()

	hello, err := c.readFrame(conn)
	if err != nil {
		return fmt.Errorf("reading hello: %w", err)
	}
	if hello.Op != OpHello {
		return fmt.Errorf("expected hello, got op %d", hello.Op)
	}
	var hd helloData
	if err := json.Unmarshal(hello.Data, &hd); err != nil {
		return fmt.Errorf("parsing hello: %w", err)
	}
	interval := time.Duration(hd.HeartbeatIntervalMs) * time.Millisecond
	if interval <= 0 {
		return errors.New("hello without heartbeat interval")
	}

	if err := c.identify(conn); err != nil {
		return err
	}

	log.Info().Dur("heartbeatInterval", interval).Msg("gateway session established")

	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	go c.heartbeatLoop(hbCtx, conn, interval, log)

	return c.readLoop(conn, log)
}

func (c *Client) identify(conn *websocket.Conn) error {
	frame, err := newIdentify(c.cfg.Token, c.cfg.Intents)
	if err != nil {
		return fmt.Errorf("building identify: %w", err)
	}
	return c.writeFrame(conn, frame)
}

// heartbeatLoop keeps the session alive at the server-specified interval.
func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := newHeartbeat(c.lastSeq.Load())
			if err != nil {
				log.Error().Err(err).Msg("building heartbeat")
				return
			}
			if err := c.writeFrame(conn, frame); err != nil {
				log.Warn().Err(err).Msg("heartbeat write failed")
				return
			}
		}
	}
}

// readLoop processes frames until the connection errors out.
func (c *Client) readLoop(conn *websocket.Conn, log *logging.Logger) error {
	for {
		frame, err := c.readFrame(conn)
		if err != nil {
			return err
		}
		if frame.Seq != nil {
			c.lastSeq.Store(*frame.Seq)
		}

		switch frame.Op {
		case OpDispatch:
			c.handleDispatch(frame, log)
		case OpHeartbeat:
			// Server requested an immediate heartbeat.
			hb, err := newHeartbeat(c.lastSeq.Load())
			if err == nil {
				c.writeFrame(conn, hb)
			}
		case OpHeartbeatAck:
			// Liveness confirmed, nothing to do.
		case OpReconnect, OpInvalidSession:
			return fmt.Errorf("server requested reconnect (op %d)", frame.Op)
		default:
			log.Debug().Int("op", frame.Op).Msg("ignoring frame")
		}
	}
}

// handleDispatch feeds interaction events into the dispatcher. The event
// was authenticated upstream by the identify handshake, so the payload is
// trusted as-is.
func (c *Client) handleDispatch(frame Frame, log *logging.Logger) {
	if frame.Type != EventInteractionCreate {
		log.Debug().Str("event", frame.Type).Msg("ignoring event")
		return
	}

	inter, err := interaction.Decode(frame.Data, interaction.TransportPush)
	if err != nil {
		log.Warn().Err(err).Msg("dropping undecodable interaction event")
		return
	}
	if inter.Kind == interaction.KindPing {
		// Pings only occur on the webhook transport.
		return
	}

	// Unknown interactions are already logged by the dispatcher; nothing
	// to deliver back on this transport.
	_ = c.dispatcher.Dispatch(inter, c.responder)
}

func (c *Client) readFrame(conn *websocket.Conn) (Frame, error) {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return Frame{}, fmt.Errorf("parsing frame: %w", err)
	}
	return f, nil
}

// writeFrame serializes writes; gorilla connections allow one concurrent
// writer only.
func (c *Client) writeFrame(conn *websocket.Conn, f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return conn.WriteJSON(f)
}
