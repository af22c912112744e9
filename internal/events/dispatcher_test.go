package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcherRoutesByType(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var created, changed int
	d.Subscribe(EventComplaintCreated, func(context.Context, Event) error {
		created++
		return nil
	})
	d.Subscribe(EventComplaintStateChanged, func(context.Context, Event) error {
		changed++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventComplaintCreated}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventComplaintCreated}))

	assert.Equal(t, 2, created)
	assert.Equal(t, 0, changed)
}

func TestDispatcherHandlerFailureDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var reached bool
	d.Subscribe(EventComplaintCreated, func(context.Context, Event) error {
		return errors.New("handler exploded")
	})
	d.Subscribe(EventComplaintCreated, func(context.Context, Event) error {
		reached = true
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventComplaintCreated}))
	assert.True(t, reached)
}

func TestDispatcherNoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventComplaintAssigned}))
}
