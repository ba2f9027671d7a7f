package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrenbot/wren/pkg/interaction"
	"github.com/wrenbot/wren/pkg/logging"
)

// mockResponder records acknowledgements and close signals.
type mockResponder struct {
	mu     sync.Mutex
	acks   []interaction.Response
	closed []error
	ackErr error
}

func (m *mockResponder) Ack(_ context.Context, _ interaction.Interaction, resp interaction.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks = append(m.acks, resp)
	return m.ackErr
}

func (m *mockResponder) Closed(_ interaction.Interaction, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = append(m.closed, cause)
}

func (m *mockResponder) ackCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.acks)
}

func (m *mockResponder) closedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.closed)
}

// mockFollowups records followup payloads.
type mockFollowups struct {
	mu   sync.Mutex
	sent []json.RawMessage
	err  error
}

func (m *mockFollowups) Followup(_ context.Context, _ interaction.Interaction, payload json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, payload)
	return m.err
}

// mockReporter counts reports.
type mockReporter struct {
	mu       sync.Mutex
	timeouts int
	faults   int
}

func (m *mockReporter) ReportTimeout(interaction.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts++
}

func (m *mockReporter) ReportHandlerFault(interaction.Interaction, any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults++
}

func (m *mockReporter) timeoutCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeouts
}

func testInteraction(kind interaction.Kind) interaction.Interaction {
	return interaction.Interaction{
		ID:    "10001",
		Token: "tok",
		Kind:  kind,
	}
}

func newTestContext(kind interaction.Kind, deadline time.Duration) (*Context, *mockResponder, *mockFollowups, *mockReporter) {
	responder := &mockResponder{}
	followups := &mockFollowups{}
	reporter := &mockReporter{}
	ctx := newContext(testInteraction(kind), "trace", responder, followups, reporter, deadline, logging.Nop())
	return ctx, responder, followups, reporter
}

func TestContext_RespondTransitionsToAckedImmediate(t *testing.T) {
	ctx, responder, _, _ := newTestContext(interaction.KindCommand, time.Second)

	require.NoError(t, ctx.Respond(json.RawMessage(`{"content":"hi"}`)))
	assert.Equal(t, AckedImmediate, ctx.State())
	require.Equal(t, 1, responder.ackCount())
	assert.Equal(t, interaction.AckChannelMessage, responder.acks[0].Type)
}

func TestContext_SecondAcknowledgementFails(t *testing.T) {
	ctx, responder, _, _ := newTestContext(interaction.KindCommand, time.Second)

	require.NoError(t, ctx.Respond(json.RawMessage(`{"content":"first"}`)))

	err := ctx.Respond(json.RawMessage(`{"content":"second"}`))
	var already *AlreadyAcknowledgedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, AckedImmediate, already.State)

	// Only the first payload was delivered.
	require.Equal(t, 1, responder.ackCount())
	assert.JSONEq(t, `{"content":"first"}`, string(responder.acks[0].Data))
}

func TestContext_DeferThenRespondFails(t *testing.T) {
	ctx, _, _, _ := newTestContext(interaction.KindCommand, time.Second)

	require.NoError(t, ctx.Defer())
	assert.Equal(t, AckedDeferred, ctx.State())

	var already *AlreadyAcknowledgedError
	assert.ErrorAs(t, ctx.Respond(nil), &already)
	assert.ErrorAs(t, ctx.Defer(), &already)
}

func TestContext_DeferUsesDeferredMessageForCommands(t *testing.T) {
	ctx, responder, _, _ := newTestContext(interaction.KindCommand, time.Second)
	require.NoError(t, ctx.Defer())
	require.Equal(t, 1, responder.ackCount())
	assert.Equal(t, interaction.AckDeferredChannelMessage, responder.acks[0].Type)
}

func TestContext_DeferUsesDeferredUpdateForComponents(t *testing.T) {
	ctx, responder, _, _ := newTestContext(interaction.KindComponent, time.Second)
	require.NoError(t, ctx.Defer())
	require.Equal(t, 1, responder.ackCount())
	assert.Equal(t, interaction.AckDeferredUpdateMessage, responder.acks[0].Type)
}

func TestContext_FollowupBeforeAckFails(t *testing.T) {
	ctx, _, followups, _ := newTestContext(interaction.KindCommand, time.Second)

	err := ctx.Followup(json.RawMessage(`{"content":"early"}`))
	var order *ProtocolOrderError
	require.ErrorAs(t, err, &order)
	assert.Equal(t, Pending, order.State)
	assert.Empty(t, followups.sent)
}

func TestContext_FollowupAfterAckSucceedsRepeatedly(t *testing.T) {
	ctx, _, followups, _ := newTestContext(interaction.KindCommand, time.Second)

	require.NoError(t, ctx.Defer())
	require.NoError(t, ctx.Followup(json.RawMessage(`{"content":"one"}`)))
	require.NoError(t, ctx.Followup(json.RawMessage(`{"content":"two"}`)))
	assert.Len(t, followups.sent, 2)
}

func TestContext_DeadlineForcesCloseAndReportsOnce(t *testing.T) {
	ctx, responder, _, reporter := newTestContext(interaction.KindCommand, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		return ctx.State() == Closed
	}, time.Second, 5*time.Millisecond)

	// Exactly one timeout report and one close signal, no ack.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, reporter.timeoutCount())
	assert.Equal(t, 1, responder.closedCount())
	assert.Equal(t, 0, responder.ackCount())
}

func TestContext_AckAfterDeadlineFails(t *testing.T) {
	ctx, _, _, _ := newTestContext(interaction.KindCommand, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return ctx.State() == Closed
	}, time.Second, 5*time.Millisecond)

	var already *AlreadyAcknowledgedError
	assert.ErrorAs(t, ctx.Respond(nil), &already)
	assert.Equal(t, Closed, already.State)
}

func TestContext_AckCancelsDeadline(t *testing.T) {
	ctx, _, _, reporter := newTestContext(interaction.KindCommand, 30*time.Millisecond)

	require.NoError(t, ctx.Respond(nil))
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, 0, reporter.timeoutCount())
	assert.Equal(t, AckedImmediate, ctx.State())
}

func TestContext_FollowupAfterForcedCloseFails(t *testing.T) {
	ctx, _, _, _ := newTestContext(interaction.KindCommand, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return ctx.State() == Closed
	}, time.Second, 5*time.Millisecond)

	var order *ProtocolOrderError
	assert.ErrorAs(t, ctx.Followup(nil), &order)
}
