package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrUnknownType    = errors.New("unknown message type")
)

// Decode parses one inbound frame and checks that the fields its kind needs
// are present. Unknown kinds return ErrUnknownType alongside the decoded
// message so the caller can log the kind.
func Decode(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type == "" {
		return ClientMessage{}, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}
	if err := validate(&msg); err != nil {
		return msg, err
	}
	return msg, nil
}

func validate(msg *ClientMessage) error {
	switch msg.Type {
	case KindCreateRoom, KindActivityUpdate, KindPing, KindPlayAgain:
		return nil

	case KindJoinRoom:
		msg.RoomCode = NormalizeCode(msg.RoomCode)
		if msg.RoomCode == "" {
			return fmt.Errorf("%w: join_room needs roomCode", ErrInvalidMessage)
		}

	case KindRestoreSession:
		if msg.State == nil {
			return fmt.Errorf("%w: restore_session needs state", ErrInvalidMessage)
		}
		msg.State.RoomCode = NormalizeCode(msg.State.RoomCode)
		if msg.State.RoomCode == "" {
			return fmt.Errorf("%w: restore_session needs state.roomCode", ErrInvalidMessage)
		}

	case KindPlayerPosition, KindMonsterPosition:
		if msg.Position == nil || isNull(msg.Rotation) {
			return fmt.Errorf("%w: %s needs position and rotation", ErrInvalidMessage, msg.Type)
		}

	case KindMazeData:
		if isNull(msg.Maze) {
			return fmt.Errorf("%w: maze_data needs maze", ErrInvalidMessage)
		}

	case KindArchitectWallChange, KindArchitectUpdate:
		if msg.X == nil || msg.Z == nil {
			return fmt.Errorf("%w: %s needs x and z", ErrInvalidMessage, msg.Type)
		}
		if msg.Action != ActionAdd && msg.Action != ActionRemove {
			return fmt.Errorf("%w: action must be %q or %q", ErrInvalidMessage, ActionAdd, ActionRemove)
		}

	case KindGameOver:
		if msg.Winner == "" {
			return fmt.Errorf("%w: game_over needs winner", ErrInvalidMessage)
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
	return nil
}

// NormalizeCode trims and upper-cases a room code typed by a person.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
