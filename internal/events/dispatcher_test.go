package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: 7})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].TicketID)
}

func TestDispatcherIgnoresUnrelatedEventTypes(t *testing.T) {
	d := NewInMemoryDispatcher()

	called := false
	d.Subscribe(EventTicketCreated, func(_ context.Context, _ Event) error {
		called = true
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketReplyAdded}))
	assert.False(t, called)
}

func TestDispatcherHandlerErrorDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var order []string
	d.Subscribe(EventTicketStateChanged, func(_ context.Context, _ Event) error {
		order = append(order, "first")
		return errors.New("handler blew up")
	})
	d.Subscribe(EventTicketStateChanged, func(_ context.Context, _ Event) error {
		order = append(order, "second")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketStateChanged})
	require.NoError(t, err, "handler failures must never reach the publisher")
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatcherWithNoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
}
