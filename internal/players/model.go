package players

import (
	"encoding/json"
	"time"

	"mazecoord/internal/gamedata"
	"mazecoord/internal/protocol"
)

// Pose is the last position a participant reported. Kind is the message kind
// it arrived as (player_position or monster_position).
type Pose struct {
	Kind     string
	Position protocol.Vector3
	Rotation json.RawMessage
}

type Participant struct {
	ID           string
	Role         gamedata.Role
	Pose         *Pose
	JoinedAt     time.Time
	LastActivity time.Time
	Warned       bool

	seq uint64
}
