package eventbus_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/flowzen/flowzen/pkg/channels/gochannel"
	"github.com/flowzen/flowzen/pkg/eventbus"
	"github.com/flowzen/flowzen/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_DeliversTypedEvents(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	received := make(chan *events.ConnectionCreated, 1)

	require.NoError(t, bus.Handle(events.ConnectionCreatedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.ConnectionCreated)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	published := events.ConnectionCreated{
		BaseEvent:      events.NewBaseEvent(events.ConnectionCreatedEvent, "user-1", ""),
		ConnectionID:   "conn-1",
		ConnectionType: "Slack",
	}
	require.NoError(t, bus.Publish(ctx, "user-1", published))

	select {
	case event := <-received:
		assert.Equal(t, "conn-1", event.ConnectionID)
		assert.Equal(t, "Slack", event.ConnectionType)
		assert.Equal(t, "user-1", event.UserID)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_IgnoresUnhandledTypes(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	received := make(chan struct{}, 1)

	require.NoError(t, bus.Handle(events.WorkflowPublishedEvent, func(context.Context, any) error {
		received <- struct{}{}

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "wf-1", events.WorkflowCreated{
		BaseEvent: events.NewBaseEvent(events.WorkflowCreatedEvent, "user-1", "wf-1"),
		Name:      "draft",
	}))
	require.NoError(t, bus.Publish(ctx, "wf-1", events.WorkflowPublished{
		BaseEvent: events.NewBaseEvent(events.WorkflowPublishedEvent, "user-1", "wf-1"),
	}))

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("published event was not delivered")
	}

	assert.Empty(t, received)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
