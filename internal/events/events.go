package events

import "time"

type Kind string

const (
	RoomCreated Kind = "room_created"
	GameStarted Kind = "game_started"
	GameEnded   Kind = "game_ended"
	RoomClosed  Kind = "room_closed"
)

// Event is one room lifecycle change. Only the fields relevant to Kind are
// set: Roles on GameStarted, Winner on GameEnded, Reason on RoomClosed.
type Event struct {
	Kind     Kind              `json:"kind"`
	RoomCode string            `json:"roomCode"`
	Seed     int64             `json:"seed,omitempty"`
	Roles    map[string]string `json:"roles,omitempty"`
	Winner   string            `json:"winner,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	At       time.Time         `json:"at"`
}

type Bus struct {
	Lifecycle chan Event
}

func NewBus(size int) *Bus {
	if size < 1 {
		size = 1
	}
	return &Bus{
		Lifecycle: make(chan Event, size),
	}
}

// Publish queues ev without blocking. It reports false when the bus is full
// and the event was dropped.
func (b *Bus) Publish(ev Event) bool {
	select {
	case b.Lifecycle <- ev:
		return true
	default:
		return false
	}
}
