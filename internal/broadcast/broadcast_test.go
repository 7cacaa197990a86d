package broadcast

import (
	"encoding/json"
	"testing"
	"time"

	"mazecoord/internal/events"
)

func TestNewBroadcaster(t *testing.T) {
	b := NewBroadcaster()
	if b == nil {
		t.Fatal("NewBroadcaster() returned nil")
	}
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()

	ch := b.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() returned nil")
	}

	b.Mu.Lock()
	if len(b.Clients) != 1 {
		t.Errorf("clients count = %d, want 1", len(b.Clients))
	}
	b.Mu.Unlock()

	b.Unsubscribe(ch)
	// Second unsubscribe must not panic on a closed channel.
	b.Unsubscribe(ch)

	b.Mu.Lock()
	if len(b.Clients) != 0 {
		t.Errorf("clients count after unsubscribe = %d, want 0", len(b.Clients))
	}
	b.Mu.Unlock()
}

func TestBroadcaster_Broadcast(t *testing.T) {
	b := NewBroadcaster()

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	b.Broadcast("test-event", "hello")

	for i, ch := range []chan SSEMessage{ch1, ch2} {
		select {
		case msg := <-ch:
			if msg.Event != "test-event" || msg.Data != "hello" {
				t.Errorf("ch%d got %+v, want event=test-event, data=hello", i+1, msg)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("ch%d timed out", i+1)
		}
	}

	b.Unsubscribe(ch1)
	b.Unsubscribe(ch2)
}

func TestBroadcaster_SkipsFullChannels(t *testing.T) {
	b := NewBroadcaster()

	ch := b.Subscribe()

	// Fill the channel buffer (capacity 10)
	for i := 0; i < 10; i++ {
		b.Broadcast("fill", "data")
	}

	done := make(chan bool)
	go func() {
		b.Broadcast("overflow", "data")
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Broadcast blocked on full channel")
	}

	b.Unsubscribe(ch)
}

func TestBroadcaster_PublishLifecycleEvent(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()

	err := b.Publish(events.Event{Kind: events.GameEnded, RoomCode: "ABC123", Winner: "antagonist"})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-ch:
		if msg.Event != string(events.GameEnded) {
			t.Errorf("event = %q, want %q", msg.Event, events.GameEnded)
		}
		var got events.Event
		if err := json.Unmarshal([]byte(msg.Data), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.RoomCode != "ABC123" || got.Winner != "antagonist" {
			t.Errorf("got %+v", got)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for lifecycle event")
	}
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	b.Close()

	if _, ok := <-ch; ok {
		t.Fatal("subscriber channel should be closed")
	}
	b.Unsubscribe(ch)
}
