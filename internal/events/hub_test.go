package events

import (
	"testing"
	"time"
)

func TestHub_PublishSubscribe(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(Event{Type: BossSpawned, BossKind: "tide_titan"})

	select {
	case evt := <-ch:
		if evt.Type != BossSpawned || evt.BossKind != "tide_titan" {
			t.Errorf("event = %+v; want boss_spawned/tide_titan", evt)
		}
		if evt.At.IsZero() {
			t.Error("event timestamp not stamped on publish")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestHub_MultipleSubscribers(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch1, cancel1 := h.Subscribe()
	defer cancel1()
	ch2, cancel2 := h.Subscribe()
	defer cancel2()

	if h.SubscriberCount() != 2 {
		t.Fatalf("SubscriberCount = %d; want 2", h.SubscriberCount())
	}

	h.Publish(Event{Type: BossDied})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Type != BossDied {
				t.Errorf("subscriber %d got %s; want boss_died", i, evt.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d got nothing", i)
		}
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	h := NewHub()
	_, cancel := h.Subscribe()
	defer cancel()

	// Overfill the subscriber buffer without draining; Publish must
	// drop rather than stall.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			h.Publish(Event{Type: BossWarning})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on a lagging subscriber")
	}
}

func TestHub_CancelUnsubscribes(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch, cancel := h.Subscribe()
	cancel()

	if h.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount after cancel = %d; want 0", h.SubscriberCount())
	}
	if _, open := <-ch; open {
		t.Error("channel still open after cancel")
	}

	// Idempotent.
	cancel()
}

func TestHub_Close(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Close()

	if _, open := <-ch; open {
		t.Error("subscriber channel still open after Close")
	}

	// Publishing and subscribing after Close are no-ops.
	h.Publish(Event{Type: BossSpawned})
	ch2, cancel2 := h.Subscribe()
	defer cancel2()
	if _, open := <-ch2; open {
		t.Error("Subscribe after Close returned a live channel")
	}
}
