package client

import (
	"encoding/json"

	"mazecoord/internal/protocol"
)

func (c *Client) CreateRoom() error {
	return c.Send(protocol.ClientMessage{Type: protocol.KindCreateRoom})
}

func (c *Client) JoinRoom(code string) error {
	return c.Send(protocol.ClientMessage{Type: protocol.KindJoinRoom, RoomCode: code})
}

func (c *Client) Ping() error {
	return c.Send(protocol.ClientMessage{Type: protocol.KindPing})
}

func (c *Client) Activity() error {
	return c.Send(protocol.ClientMessage{Type: protocol.KindActivityUpdate})
}

// Move reports the local pose. kind is player_position or monster_position.
func (c *Client) Move(kind string, pos protocol.Vector3, rotation json.RawMessage) error {
	return c.Send(protocol.ClientMessage{Type: kind, Position: &pos, Rotation: rotation})
}

func (c *Client) SendMaze(payload json.RawMessage) error {
	return c.Send(protocol.ClientMessage{Type: protocol.KindMazeData, Maze: payload})
}

func (c *Client) ChangeWall(x, z float64, action string) error {
	return c.Send(protocol.ClientMessage{Type: protocol.KindArchitectWallChange, X: &x, Z: &z, Action: action})
}

func (c *Client) GameOver(winner string) error {
	return c.Send(protocol.ClientMessage{Type: protocol.KindGameOver, Winner: winner})
}

func (c *Client) PlayAgain() error {
	st, _ := c.Session()
	return c.Send(protocol.ClientMessage{Type: protocol.KindPlayAgain, RoomCode: st.RoomCode})
}
