package dispatch

import (
	"errors"
	"fmt"

	"github.com/wrenbot/wren/pkg/interaction"
)

// ErrUnknownInteraction is returned by Dispatch when no handler matches.
// The event is platform-generated, so it is logged and discarded rather
// than surfaced to any caller.
var ErrUnknownInteraction = errors.New("no handler registered for interaction")

// ErrRegistryFrozen is returned when registering after Freeze.
var ErrRegistryFrozen = errors.New("registry is frozen; register handlers before starting transports")

// DuplicateHandlerError reports a registration-time identity conflict.
type DuplicateHandlerError struct {
	Kind     interaction.Kind
	Identity string
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("duplicate %s handler for %q", e.Kind, e.Identity)
}

// ProtocolOrderError reports a followup attempted before acknowledgement,
// or after the context was force-closed.
type ProtocolOrderError struct {
	State State
}

func (e *ProtocolOrderError) Error() string {
	return fmt.Sprintf("followup requires a prior acknowledgement (state %s)", e.State)
}

// AlreadyAcknowledgedError reports a second acknowledgement attempt. The
// platform accepts exactly one per interaction; this is a caller bug.
type AlreadyAcknowledgedError struct {
	State State
}

func (e *AlreadyAcknowledgedError) Error() string {
	return fmt.Sprintf("interaction already acknowledged (state %s)", e.State)
}

// AcknowledgementTimeoutError reports a context that was still pending when
// the platform deadline elapsed.
type AcknowledgementTimeoutError struct {
	InteractionID string
}

func (e *AcknowledgementTimeoutError) Error() string {
	return fmt.Sprintf("interaction %s not acknowledged before deadline", e.InteractionID)
}
