package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wrenbot/wren/pkg/interaction"
	"github.com/wrenbot/wren/pkg/logging"
)

// DefaultAckTimeout is the platform-mandated acknowledgement budget.
const DefaultAckTimeout = 3 * time.Second

// State is the response protocol state of one Context.
type State int32

const (
	Pending State = iota
	AckedImmediate
	AckedDeferred
	Closed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case AckedImmediate:
		return "acked-immediate"
	case AckedDeferred:
		return "acked-deferred"
	case Closed:
		return "closed"
	default:
		return "invalid"
	}
}

// Responder delivers acknowledgements for one interaction. The pull
// transport implements it by completing the held HTTP request; the push
// transport by calling the platform's callback endpoint.
type Responder interface {
	// Ack delivers the single acknowledgement. Called at most once.
	Ack(ctx context.Context, inter interaction.Interaction, resp interaction.Response) error

	// Closed signals that the context was force-closed while still
	// pending, so no acknowledgement will ever arrive.
	Closed(inter interaction.Interaction, cause error)
}

// FollowupSender delivers post-acknowledgement messages. Delivery is
// fire-and-forget for the engine: failures are logged, never retried.
type FollowupSender interface {
	Followup(ctx context.Context, inter interaction.Interaction, payload json.RawMessage) error
}

// Context is the per-interaction handle passed to handlers. All response
// protocol transitions happen through it; it owns the deadline timer and
// is safe for use from the single handler goroutine that receives it.
type Context struct {
	Interaction interaction.Interaction

	// TraceID correlates log lines across the dispatch of one interaction.
	TraceID string

	log       *logging.Logger
	responder Responder
	followups FollowupSender
	reporter  Reporter

	mu    sync.Mutex
	state State
	timer *time.Timer
}

// newContext builds a pending context and arms the deadline timer.
func newContext(
	inter interaction.Interaction,
	traceID string,
	responder Responder,
	followups FollowupSender,
	reporter Reporter,
	deadline time.Duration,
	log *logging.Logger,
) *Context {
	c := &Context{
		Interaction: inter,
		TraceID:     traceID,
		log:         log,
		responder:   responder,
		followups:   followups,
		reporter:    reporter,
		state:       Pending,
	}
	c.timer = time.AfterFunc(deadline, c.onDeadline)
	return c
}

// State returns the current response state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Respond delivers the final acknowledgement with a message payload.
// Legal only while pending; a second acknowledgement attempt returns
// AlreadyAcknowledgedError and the first payload stands.
func (c *Context) Respond(payload json.RawMessage) error {
	return c.acknowledge(AckedImmediate, interaction.Response{
		Type: interaction.AckChannelMessage,
		Data: payload,
	})
}

// RespondWith delivers an acknowledgement with an explicit callback type,
// e.g. AckUpdateMessage for component edits or AckModal to open a modal.
func (c *Context) RespondWith(ackType int, payload json.RawMessage) error {
	return c.acknowledge(AckedImmediate, interaction.Response{Type: ackType, Data: payload})
}

// Defer acknowledges with a placeholder: the platform shows a loading
// indicator until a followup arrives. Components and modal submits use the
// deferred-update code so the original message is not replaced.
func (c *Context) Defer() error {
	ackType := interaction.AckDeferredChannelMessage
	switch c.Interaction.Kind {
	case interaction.KindComponent, interaction.KindModalSubmit:
		ackType = interaction.AckDeferredUpdateMessage
	}
	return c.acknowledge(AckedDeferred, interaction.Response{Type: ackType})
}

// acknowledge performs the single Pending transition and delivers the ack.
func (c *Context) acknowledge(next State, resp interaction.Response) error {
	c.mu.Lock()
	if c.state != Pending {
		st := c.state
		c.mu.Unlock()
		return &AlreadyAcknowledgedError{State: st}
	}
	c.state = next
	c.timer.Stop()
	c.mu.Unlock()

	sendCtx, cancel := context.WithTimeout(context.Background(), DefaultAckTimeout)
	defer cancel()
	if err := c.responder.Ack(sendCtx, c.Interaction, resp); err != nil {
		// The transition stands: the platform saw (or lost) one ack
		// attempt and a retry would risk a double acknowledgement.
		c.log.Error().Err(err).Str("trace", c.TraceID).Msg("acknowledgement delivery failed")
		return err
	}
	return nil
}

// Followup sends an additional message after acknowledgement. May be
// called any number of times; each call is one network delivery.
func (c *Context) Followup(payload json.RawMessage) error {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	if st != AckedImmediate && st != AckedDeferred {
		return &ProtocolOrderError{State: st}
	}

	sendCtx, cancel := context.WithTimeout(context.Background(), DefaultAckTimeout)
	defer cancel()
	if err := c.followups.Followup(sendCtx, c.Interaction, payload); err != nil {
		c.log.Error().Err(err).Str("trace", c.TraceID).Msg("followup delivery failed")
		return err
	}
	return nil
}

// onDeadline fires when the acknowledgement budget elapses. If the context
// is still pending it is force-closed and the timeout reported exactly once.
func (c *Context) onDeadline() {
	c.mu.Lock()
	if c.state != Pending {
		c.mu.Unlock()
		return
	}
	c.state = Closed
	c.mu.Unlock()

	cause := &AcknowledgementTimeoutError{InteractionID: c.Interaction.ID}
	c.responder.Closed(c.Interaction, cause)
	c.reporter.ReportTimeout(c.Interaction, cause)
}

// closeOnFault emits a generic error acknowledgement if the handler
// panicked before acknowledging. Returns true if the ack was emitted.
func (c *Context) closeOnFault(errAck interaction.Response) bool {
	c.mu.Lock()
	if c.state != Pending {
		c.mu.Unlock()
		return false
	}
	c.state = Closed
	c.timer.Stop()
	c.mu.Unlock()

	sendCtx, cancel := context.WithTimeout(context.Background(), DefaultAckTimeout)
	defer cancel()
	if err := c.responder.Ack(sendCtx, c.Interaction, errAck); err != nil {
		c.log.Error().Err(err).Str("trace", c.TraceID).Msg("error acknowledgement delivery failed")
	}
	return true
}
