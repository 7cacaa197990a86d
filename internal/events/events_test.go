package events

import (
	"testing"
	"time"
)

func TestNewBus(t *testing.T) {
	bus := NewBus(10)
	if bus == nil {
		t.Fatal("NewBus() returned nil")
	}
	if bus.Lifecycle == nil {
		t.Fatal("Lifecycle channel is nil")
	}
	if cap(bus.Lifecycle) != 10 {
		t.Errorf("cap = %d, want 10", cap(bus.Lifecycle))
	}
	if cap(NewBus(0).Lifecycle) != 1 {
		t.Error("size below 1 should be raised to 1")
	}
}

func TestBus_PublishReceive(t *testing.T) {
	bus := NewBus(1)
	ev := Event{Kind: GameEnded, RoomCode: "ABC123", Winner: "explorer"}

	if !bus.Publish(ev) {
		t.Fatal("Publish into an empty bus should succeed")
	}

	select {
	case received := <-bus.Lifecycle:
		if received.Kind != GameEnded || received.Winner != "explorer" {
			t.Errorf("received %+v", received)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_PublishDropsWhenFull(t *testing.T) {
	bus := NewBus(2)

	for i := 0; i < 2; i++ {
		if !bus.Publish(Event{Kind: RoomCreated}) {
			t.Fatalf("publish %d should fit", i)
		}
	}
	// Must not block.
	if bus.Publish(Event{Kind: RoomClosed}) {
		t.Fatal("publish into a full bus should report a drop")
	}

	for i := 0; i < 2; i++ {
		if ev := <-bus.Lifecycle; ev.Kind != RoomCreated {
			t.Errorf("got %s, the dropped event leaked in", ev.Kind)
		}
	}
}
