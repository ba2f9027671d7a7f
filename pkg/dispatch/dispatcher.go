package dispatch

import (
	"encoding/json"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/wrenbot/wren/pkg/interaction"
	"github.com/wrenbot/wren/pkg/logging"
)

// genericErrorAck is the acknowledgement emitted when a handler faults
// before acknowledging. Ephemeral so only the invoking user sees it.
var genericErrorAck = interaction.Response{
	Type: interaction.AckChannelMessage,
	Data: json.RawMessage(`{"content":"Something went wrong while handling this interaction.","flags":64}`),
}

// Dispatcher resolves canonical interactions to handlers and runs them.
// One Dispatcher serves all in-flight interactions; each dispatch runs in
// its own goroutine with its own Context.
type Dispatcher struct {
	registry   *Registry
	followups  FollowupSender
	reporter   Reporter
	ackTimeout time.Duration
	log        *logging.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAckTimeout overrides the platform acknowledgement budget.
func WithAckTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.ackTimeout = d
		}
	}
}

// WithReporter installs a custom failure reporter.
func WithReporter(r Reporter) Option {
	return func(dp *Dispatcher) {
		if r != nil {
			dp.reporter = r
		}
	}
}

// New creates a Dispatcher over a registry. The registry is frozen here:
// all handlers must be registered before the first transport starts.
func New(registry *Registry, followups FollowupSender, log *logging.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:   registry,
		followups:  followups,
		ackTimeout: DefaultAckTimeout,
		log:        log.Sub("dispatch"),
	}
	d.reporter = NewLogReporter(log)
	for _, opt := range opts {
		opt(d)
	}
	registry.Freeze()
	return d
}

// AckTimeout returns the configured acknowledgement budget.
func (d *Dispatcher) AckTimeout() time.Duration {
	return d.ackTimeout
}

// Dispatch resolves the interaction and invokes its handler in a new
// goroutine. Returns ErrUnknownInteraction when nothing matches; the
// transport decides how to close out its own delivery in that case.
// Pings never reach here: transports short-circuit them.
func (d *Dispatcher) Dispatch(inter interaction.Interaction, responder Responder) error {
	handler, ok := d.registry.Lookup(inter.Kind, inter.Identity())
	if !ok {
		d.log.Warn().
			Str("kind", inter.Kind.String()).
			Str("identity", inter.Identity()).
			Str("transport", string(inter.Transport)).
			Msg("discarding interaction with no matching handler")
		return ErrUnknownInteraction
	}

	traceID := uuid.New().String()
	ctx := newContext(inter, traceID, responder, d.followups, d.reporter, d.ackTimeout, d.log)

	d.log.Debug().
		Str("trace", traceID).
		Str("kind", inter.Kind.String()).
		Str("identity", inter.Identity()).
		Msg("dispatching interaction")

	go d.run(handler, ctx)
	return nil
}

// run executes the handler with fault isolation. A panic is recovered at
// this boundary, converted to a generic error acknowledgement when the
// context is still pending, and reported; it never reaches the transport
// or other in-flight interactions.
func (d *Dispatcher) run(handler Handler, ctx *Context) {
	defer func() {
		if r := recover(); r != nil {
			ctx.closeOnFault(genericErrorAck)
			d.log.Error().
				Str("trace", ctx.TraceID).
				Any("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("handler panicked")
			d.reporter.ReportHandlerFault(ctx.Interaction, r)
		}
	}()
	handler(ctx)
}
