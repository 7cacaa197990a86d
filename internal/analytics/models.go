package analytics

import "time"

type RoleWinRate struct {
	Role  string  `json:"role"`
	Games int     `json:"games"`
	Wins  int     `json:"wins"`
	Rate  float64 `json:"rate"` // percentage of finished games won
}

type RecentGame struct {
	ID        string     `json:"id"`
	RoomCode  string     `json:"roomCode"`
	Seed      int64      `json:"seed"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	Winner    string     `json:"winner,omitempty"`
	Players   int        `json:"players"`
}

type Stats struct {
	TotalGames    int           `json:"totalGames"`
	FinishedGames int           `json:"finishedGames"`
	OpenRooms     int           `json:"openRooms"`
	RoleWinRates  []RoleWinRate `json:"roleWinRates"`
	Recent        []RecentGame  `json:"recent"`
}
