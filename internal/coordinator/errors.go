package coordinator

import (
	"errors"

	"mazecoord/internal/maze"
	"mazecoord/internal/protocol"
	"mazecoord/internal/rooms"
)

var (
	ErrAlreadyInRoom = errors.New("connection is already in a room")
	ErrUnreachable   = errors.New("wall change would cut the path from start to exit")
	ErrOutOfBounds   = maze.ErrOutOfBounds
	ErrNoMaze        = errors.New("no maze loaded")
)

// errorCode maps an error to the code carried in error replies.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyInRoom):
		return protocol.CodeAlreadyInRoom
	case errors.Is(err, rooms.ErrRoomNotFound):
		return protocol.CodeRoomNotFound
	case errors.Is(err, rooms.ErrRoomFull):
		return protocol.CodeRoomFull
	case errors.Is(err, rooms.ErrRoomGone):
		return protocol.CodeRoomGone
	case errors.Is(err, protocol.ErrInvalidMessage), errors.Is(err, maze.ErrInvalidPayload):
		return protocol.CodeInvalidMessage
	default:
		return ""
	}
}

// errorText is the human-readable part of an error reply.
func errorText(err error) string {
	switch errorCode(err) {
	case protocol.CodeRoomNotFound:
		return "Room not found"
	case protocol.CodeRoomFull:
		return "Room is full"
	case protocol.CodeRoomGone:
		return "Room no longer exists"
	case protocol.CodeAlreadyInRoom:
		return "Already in a room"
	case "":
		return "Internal error"
	default:
		return err.Error()
	}
}
