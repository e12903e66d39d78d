package events

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestBus(buffer int) *Bus {
	return NewBus(buffer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case e, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestPublishFansOut(t *testing.T) {
	bus := newTestBus(4)
	a := bus.Subscribe()
	b := bus.Subscribe()
	defer a.Unsubscribe()
	defer b.Unsubscribe()

	bus.Publish(New("claim.committed", "1:1:3"))

	for _, sub := range []*Subscription{a, b} {
		e := receive(t, sub)
		if e.Type != "claim.committed" || e.Payload != "1:1:3" {
			t.Fatalf("unexpected event: %+v", e)
		}
		if e.ID == "" {
			t.Fatal("expected event id")
		}
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	bus := newTestBus(1)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	bus.Publish(New("a", nil))
	bus.Publish(New("b", nil))
	bus.Publish(New("c", nil))

	if got := receive(t, sub); got.Type != "a" {
		t.Fatalf("expected first event to be kept, got %q", got.Type)
	}
	if sub.Dropped() != 2 {
		t.Fatalf("expected 2 dropped events, got %d", sub.Dropped())
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := newTestBus(1)
	sub := bus.Subscribe()

	sub.Unsubscribe()
	sub.Unsubscribe()

	if _, ok := <-sub.C(); ok {
		t.Fatal("expected closed channel")
	}
	if bus.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", bus.Subscribers())
	}

	// Publishing after unsubscribe must not panic on the closed channel.
	bus.Publish(New("late", nil))
}

func TestCloseEndsSubscriptions(t *testing.T) {
	bus := newTestBus(1)
	sub := bus.Subscribe()

	bus.Close()
	bus.Publish(New("ignored", nil))

	if _, ok := <-sub.C(); ok {
		t.Fatal("expected closed channel after bus close")
	}

	late := bus.Subscribe()
	if _, ok := <-late.C(); ok {
		t.Fatal("subscribing to a closed bus should yield a closed channel")
	}
	late.Unsubscribe()
	sub.Unsubscribe()
}
