package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type GameRecord struct {
	ID        string
	RoomCode  string
	Seed      int64
	StartedAt time.Time
	EndedAt   *time.Time
	Winner    string
	Roles     map[string]string
}

// CreateGame records a round that just started along with who played what.
func (d *DB) CreateGame(roomCode string, seed int64, roles map[string]string, at time.Time) (string, error) {
	id := uuid.NewString()

	tx, err := d.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("creating game: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO games (id, room_code, seed, started_at)
		VALUES ($1, $2, $3, $4)
	`, id, roomCode, seed, at); err != nil {
		return "", fmt.Errorf("creating game: %w", err)
	}

	for playerID, role := range roles {
		if _, err := tx.Exec(`
			INSERT INTO game_roles (game_id, player_id, role)
			VALUES ($1, $2, $3)
			ON CONFLICT (game_id, player_id) DO UPDATE SET role = $3
		`, id, playerID, role); err != nil {
			return "", fmt.Errorf("adding game role: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("creating game: %w", err)
	}
	return id, nil
}

// EndGame closes the room's open round with a winner. Rounds that were never
// recorded as started are ignored.
func (d *DB) EndGame(roomCode, winner string, at time.Time) error {
	_, err := d.conn.Exec(`
		UPDATE games SET ended_at = $3, winner = $2
		WHERE room_code = $1 AND ended_at IS NULL
	`, roomCode, winner, at)
	if err != nil {
		return fmt.Errorf("ending game: %w", err)
	}
	return nil
}

func (d *DB) GetGame(id string) (*GameRecord, error) {
	g := GameRecord{Roles: make(map[string]string)}
	var winner *string
	err := d.conn.QueryRow(`
		SELECT id, room_code, seed, started_at, ended_at, winner FROM games WHERE id = $1
	`, id).Scan(&g.ID, &g.RoomCode, &g.Seed, &g.StartedAt, &g.EndedAt, &winner)
	if err != nil {
		return nil, fmt.Errorf("getting game: %w", err)
	}
	if winner != nil {
		g.Winner = *winner
	}

	rows, err := d.conn.Query(`SELECT player_id, role FROM game_roles WHERE game_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("getting game roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var playerID, role string
		if err := rows.Scan(&playerID, &role); err != nil {
			return nil, err
		}
		g.Roles[playerID] = role
	}
	return &g, rows.Err()
}
