package events

import (
	"context"
	"testing"
	"time"
)

func TestLocalPublishDelivers(t *testing.T) {
	h := NewHub(nil, nil)

	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(context.Background(), RosterEvent{
		Type:         TypeSignup,
		ActivityID:   1,
		ActivityName: "Chess Club",
		Email:        "alice@mergington.edu",
	})

	select {
	case ev := <-ch:
		if ev.Type != TypeSignup || ev.ActivityName != "Chess Club" {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if ev.At.IsZero() {
			t.Fatalf("expected timestamp to be set")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected event delivery")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub(nil, nil)

	ch, cancel := h.Subscribe()
	cancel()

	h.Publish(context.Background(), RosterEvent{Type: TypeUnregister, ActivityID: 2})

	// Channel is closed on unsubscribe; a received value must be the
	// zero value from the close, not an event.
	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel, got event %+v", ev)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("expected channel to be closed")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(nil, nil)

	ch, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Overflow the subscriber buffer; Publish must never stall.
		for i := 0; i < 100; i++ {
			h.Publish(context.Background(), RosterEvent{Type: TypeSignup, ActivityID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on slow subscriber")
	}

	// Drain what fit in the buffer.
	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			if received == 0 {
				t.Fatalf("expected at least one buffered event")
			}
			return
		}
	}
}
