package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/planbilling/internal/clock"
	"github.com/smallbiznis/planbilling/internal/notification/domain"
	"github.com/smallbiznis/planbilling/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSink struct {
	name    string
	accepts func(domain.Type) bool
	err     error
	block   chan struct{}

	mu       sync.Mutex
	received []domain.Message
	cids     []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Accepts(t domain.Type) bool {
	if s.accepts == nil {
		return true
	}
	return s.accepts(t)
}

func (s *recordingSink) Deliver(ctx context.Context, msg domain.Message) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, msg)
	s.cids = append(s.cids, correlation.ExtractCorrelationID(ctx))
	return s.err
}

func (s *recordingSink) messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.received...)
}

func newClock() clock.Clock {
	return clock.NewFakeClock(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
}

func TestDispatcherDeliversToAcceptingSinks(t *testing.T) {
	all := &recordingSink{name: "store"}
	failuresOnly := &recordingSink{name: "slack", accepts: domain.Type.IsFailure}

	d := NewDispatcher(DispatcherConfig{QueueSize: 8, Workers: 2}, zap.NewNop(), nil, newClock(), all, failuresOnly)
	d.Start()

	ctx := correlation.ContextWithCorrelationID(context.Background(), "tick-1")
	require.True(t, d.Notify(ctx, 1, domain.TypePaymentSucceeded, "Paid", "ok"))
	require.True(t, d.Notify(ctx, 1, domain.TypePaymentFailed, "Failed", "declined"))
	require.NoError(t, d.Stop(context.Background()))

	assert.Len(t, all.messages(), 2)
	got := failuresOnly.messages()
	require.Len(t, got, 1)
	assert.Equal(t, domain.TypePaymentFailed, got[0].Type)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, []string{"tick-1"}, failuresOnly.cids)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	block := make(chan struct{})
	sink := &recordingSink{name: "store", block: block}

	d := NewDispatcher(DispatcherConfig{QueueSize: 1, Workers: 1}, zap.New(core), nil, newClock(), sink)
	d.Start()

	ctx := context.Background()
	// The first message is taken by the worker and blocks in the sink, the
	// second fills the queue.
	require.True(t, d.Notify(ctx, 1, domain.TypePaymentFailed, "a", ""))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.True(t, d.Notify(ctx, 1, domain.TypePaymentFailed, "b", ""))
	assert.False(t, d.Notify(ctx, 1, domain.TypePaymentFailed, "c", ""))

	close(block)
	require.NoError(t, d.Stop(context.Background()))

	assert.Len(t, sink.messages(), 2)
	assert.Equal(t, 1, logs.FilterMessage("notification dropped").Len())
}

func TestDispatcherSinkFailureDoesNotStopOthers(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	broken := &recordingSink{name: "email", err: errors.New("smtp down")}
	store := &recordingSink{name: "store"}

	d := NewDispatcher(DispatcherConfig{QueueSize: 4, Workers: 1}, zap.New(core), nil, newClock(), broken, store)
	d.Start()
	require.True(t, d.Notify(context.Background(), 3, domain.TypeMembershipCancelled, "Cancelled", ""))
	require.NoError(t, d.Stop(context.Background()))

	assert.Len(t, broken.messages(), 1)
	assert.Len(t, store.messages(), 1)
	entries := logs.FilterMessage("notification delivery failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "email", entries[0].ContextMap()["sink"])
}

func TestNotifyAfterStopIsDropped(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{}, zap.NewNop(), nil, newClock())
	d.Start()
	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Stop(context.Background()))

	assert.False(t, d.Notify(context.Background(), 1, domain.TypePaymentFailed, "x", ""))
}
