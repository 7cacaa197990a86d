package server

import (
	"context"

	"mazecoord/internal/events"
)

// Record drains the lifecycle bus into the SSE broadcaster and, when a
// database is configured, the match history. On cancel it records whatever
// is still queued and returns.
func (s *Server) Record(ctx context.Context) {
	for {
		select {
		case ev := <-s.bus.Lifecycle:
			s.record(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-s.bus.Lifecycle:
					s.record(ev)
				default:
					return
				}
			}
		}
	}
}

func (s *Server) record(ev events.Event) {
	if err := s.Broadcaster.Publish(ev); err != nil {
		s.Log.Error("encoding lifecycle event", "kind", ev.Kind, "room", ev.RoomCode, "error", err)
	}
	if s.DB == nil {
		return
	}

	var err error
	switch ev.Kind {
	case events.RoomCreated:
		err = s.DB.RecordRoomCreated(ev.RoomCode, ev.At)
	case events.GameStarted:
		_, err = s.DB.CreateGame(ev.RoomCode, ev.Seed, ev.Roles, ev.At)
	case events.GameEnded:
		err = s.DB.EndGame(ev.RoomCode, ev.Winner, ev.At)
	case events.RoomClosed:
		err = s.DB.RecordRoomClosed(ev.RoomCode, ev.Reason, ev.At)
	}
	if err != nil {
		s.Log.Error("recording lifecycle event", "kind", ev.Kind, "room", ev.RoomCode, "error", err)
	}
}
