package bus

import (
	"testing"
	"time"

	"github.com/orbitdesk/ticketrouter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_ReceivesPublishedEventsInOrder(t *testing.T) {
	b := New()
	sub, err := b.Subscribe(8)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	for i := 0; i < 5; i++ {
		b.Publish(models.Event{TicketID: "t", Stage: models.StageSpamCheck, Status: "started", Message: string(rune('a' + i))})
	}

	for i := 0; i < 5; i++ {
		select {
		case e := <-sub.Events:
			assert.Equal(t, string(rune('a'+i)), e.Message)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestSubscribe_DropsOldestOnOverflow(t *testing.T) {
	b := New()
	sub, err := b.Subscribe(2)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// Fill the queue and then some, without draining, so overflow occurs.
	for i := 0; i < 10; i++ {
		b.Publish(models.Event{Message: string(rune('a' + i))})
	}

	// Allow the producer-side enqueue to settle before asserting drops.
	require.Eventually(t, func() bool {
		return sub.Drops() > 0
	}, time.Second, time.Millisecond)
}

func TestPublish_ToClosedBusIsNoop(t *testing.T) {
	b := New()
	sub, err := b.Subscribe(4)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	b.Close()
	b.Publish(models.Event{Message: "dropped"})

	select {
	case <-sub.Events:
		t.Fatal("expected no event after close")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribe_ToClosedBusFails(t *testing.T) {
	b := New()
	b.Close()
	_, err := b.Subscribe(4)
	require.ErrorIs(t, err, ErrBusClosed)
}

func TestUnsubscribe_IsIdempotent(t *testing.T) {
	b := New()
	sub, err := b.Subscribe(4)
	require.NoError(t, err)

	sub.Unsubscribe()
	assert.NotPanics(t, func() { sub.Unsubscribe() })
}
