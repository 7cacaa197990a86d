// Package protocol defines the JSON messages exchanged between maze clients
// and the coordinator. Every message carries a "type" discriminator.
package protocol

import "encoding/json"

// Client -> coordinator kinds.
const (
	KindCreateRoom          = "create_room"
	KindJoinRoom            = "join_room"
	KindRestoreSession      = "restore_session"
	KindActivityUpdate      = "activity_update"
	KindPing                = "ping"
	KindPlayerPosition      = "player_position"
	KindMonsterPosition     = "monster_position"
	KindMazeData            = "maze_data"
	KindArchitectWallChange = "architect_wall_change"
	KindArchitectUpdate     = "architect_update"
	KindGameOver            = "game_over"
	KindPlayAgain           = "play_again"
)

// Coordinator -> client kinds. maze_data, player_position, monster_position
// and architect_update are shared with the client set above.
const (
	KindRoomCreated       = "room_created"
	KindRoomJoined        = "room_joined"
	KindPlayerJoined      = "player_joined"
	KindPlayerLeft        = "player_left"
	KindRoleAssigned      = "role_assigned"
	KindGameReady         = "game_ready"
	KindWaitingForPlayers = "waiting_for_players"
	KindArchitectError    = "architect_error"
	KindSessionRestored   = "session_restored"
	KindPlayerRejoined    = "player_rejoined"
	KindHostAssigned      = "host_assigned"
	KindGameTerminated    = "game_terminated"
	KindPlayAgainRestart  = "play_again_restart"
	KindWarning           = "warning"
	KindError             = "error"
	KindPong              = "pong"
)

// Error codes carried in error replies.
const (
	CodeInvalidMessage = "InvalidMessage"
	CodeRoomNotFound   = "RoomNotFound"
	CodeRoomFull       = "RoomFull"
	CodeRoomGone       = "RoomGone"
	CodeAlreadyInRoom  = "AlreadyInRoom"
)

// Wall edit actions.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SessionState is what a reconnecting client remembers about its last room.
// IsHost is an older spelling of WasHost.
type SessionState struct {
	RoomCode string `json:"roomCode"`
	Role     string `json:"role,omitempty"`
	WasHost  bool   `json:"wasHost,omitempty"`
	IsHost   bool   `json:"isHost,omitempty"`
}

func (s SessionState) Host() bool {
	return s.WasHost || s.IsHost
}

// ClientMessage is the union of every client -> coordinator message. Only the
// fields relevant to Type are set.
type ClientMessage struct {
	Type      string          `json:"type"`
	RoomCode  string          `json:"roomCode,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	State     *SessionState   `json:"state,omitempty"`
	Position  *Vector3        `json:"position,omitempty"`
	Rotation  json.RawMessage `json:"rotation,omitempty"`
	Maze      json.RawMessage `json:"maze,omitempty"`
	X         *float64        `json:"x,omitempty"`
	Z         *float64        `json:"z,omitempty"`
	Action    string          `json:"action,omitempty"`
	Winner    string          `json:"winner,omitempty"`
}

// ServerMessage is the union of every coordinator -> client message. Build it
// with the constructors below rather than by hand.
type ServerMessage struct {
	Type           string          `json:"type"`
	RoomCode       string          `json:"roomCode,omitempty"`
	Role           string          `json:"role,omitempty"`
	MazeSeed       *int64          `json:"mazeSeed,omitempty"`
	PlayerID       string          `json:"playerId,omitempty"`
	Message        string          `json:"message,omitempty"`
	CanStart       *bool           `json:"canStart,omitempty"`
	CurrentPlayers *int            `json:"currentPlayers,omitempty"`
	Maze           json.RawMessage `json:"maze,omitempty"`
	Position       *Vector3        `json:"position,omitempty"`
	Rotation       json.RawMessage `json:"rotation,omitempty"`
	X              *float64        `json:"x,omitempty"`
	Z              *float64        `json:"z,omitempty"`
	GridX          *int            `json:"gridX,omitempty"`
	GridZ          *int            `json:"gridZ,omitempty"`
	Action         string          `json:"action,omitempty"`
	Winner         string          `json:"winner,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	Error          string          `json:"error,omitempty"`
	Code           string          `json:"code,omitempty"`
}

func ptr[T any](v T) *T { return &v }

func RoomCreated(code, role string, seed int64) ServerMessage {
	return ServerMessage{Type: KindRoomCreated, RoomCode: code, Role: role, MazeSeed: ptr(seed)}
}

func RoomJoined(code, role string, seed int64) ServerMessage {
	return ServerMessage{Type: KindRoomJoined, RoomCode: code, Role: role, MazeSeed: ptr(seed)}
}

func PlayerJoined(playerID, role string) ServerMessage {
	return ServerMessage{Type: KindPlayerJoined, PlayerID: playerID, Role: role}
}

func PlayerLeft(playerID string) ServerMessage {
	return ServerMessage{Type: KindPlayerLeft, PlayerID: playerID}
}

func RoleAssigned(role, message string) ServerMessage {
	return ServerMessage{Type: KindRoleAssigned, Role: role, Message: message}
}

func GameReady(canStart bool) ServerMessage {
	return ServerMessage{Type: KindGameReady, CanStart: ptr(canStart)}
}

func WaitingForPlayers(message string, current int) ServerMessage {
	return ServerMessage{Type: KindWaitingForPlayers, Message: message, CurrentPlayers: ptr(current)}
}

func MazeData(raw json.RawMessage) ServerMessage {
	return ServerMessage{Type: KindMazeData, Maze: raw}
}

// Pose relays a position update. kind is player_position or monster_position,
// matching what the sender used.
func Pose(kind, playerID string, pos Vector3, rot json.RawMessage, role string) ServerMessage {
	return ServerMessage{Type: kind, PlayerID: playerID, Position: ptr(pos), Rotation: rot, Role: role}
}

func ArchitectUpdate(x, z float64, gridX, gridZ int, action string) ServerMessage {
	return ServerMessage{
		Type:   KindArchitectUpdate,
		X:      ptr(x),
		Z:      ptr(z),
		GridX:  ptr(gridX),
		GridZ:  ptr(gridZ),
		Action: action,
	}
}

func ArchitectError(msg string) ServerMessage {
	return ServerMessage{Type: KindArchitectError, Error: msg}
}

func SessionRestored(code, role string, seed int64) ServerMessage {
	return ServerMessage{Type: KindSessionRestored, RoomCode: code, Role: role, MazeSeed: ptr(seed)}
}

func PlayerRejoined(playerID, role string) ServerMessage {
	return ServerMessage{Type: KindPlayerRejoined, PlayerID: playerID, Role: role}
}

func HostAssigned() ServerMessage {
	return ServerMessage{Type: KindHostAssigned}
}

func GameTerminated(winner, reason string) ServerMessage {
	return ServerMessage{Type: KindGameTerminated, Winner: winner, Reason: reason}
}

func PlayAgainRestart(code string, seed int64) ServerMessage {
	return ServerMessage{Type: KindPlayAgainRestart, RoomCode: code, MazeSeed: ptr(seed)}
}

func Warning(message string) ServerMessage {
	return ServerMessage{Type: KindWarning, Message: message}
}

func Error(code, message string) ServerMessage {
	return ServerMessage{Type: KindError, Code: code, Error: message}
}

func Pong() ServerMessage {
	return ServerMessage{Type: KindPong}
}
