package broadcast

import (
	"encoding/json"
	"sync"

	"mazecoord/internal/events"
)

// SSEMessage is one server-sent event: Event is the SSE event name, Data the
// JSON body.
type SSEMessage struct {
	Event string
	Data  string
}

type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan SSEMessage]bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		Clients: make(map[chan SSEMessage]bool),
	}
}

func (b *Broadcaster) Subscribe() chan SSEMessage {
	ch := make(chan SSEMessage, 10)
	b.Mu.Lock()
	b.Clients[ch] = true
	b.Mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan SSEMessage) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	if b.Clients[ch] {
		delete(b.Clients, ch)
		close(ch)
	}
}

// Publish encodes a lifecycle event and fans it out under the event's kind.
func (b *Broadcaster) Publish(ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	b.Broadcast(string(ev.Kind), string(data))
	return nil
}

func (b *Broadcaster) Broadcast(event string, data string) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		select {
		case ch <- SSEMessage{Event: event, Data: data}:
		default:
			// skip subscribers that are not keeping up
		}
	}
}

// Close disconnects every subscriber.
func (b *Broadcaster) Close() {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		delete(b.Clients, ch)
		close(ch)
	}
}
