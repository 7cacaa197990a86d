package db

import (
	"fmt"
	"time"
)

func (d *DB) RecordRoomCreated(code string, at time.Time) error {
	_, err := d.conn.Exec(`
		INSERT INTO rooms (code, created_at) VALUES ($1, $2)
	`, code, at)
	if err != nil {
		return fmt.Errorf("recording room: %w", err)
	}
	return nil
}

// RecordRoomClosed closes the open room row for code and abandons any round
// that was still running in it.
func (d *DB) RecordRoomClosed(code, reason string, at time.Time) error {
	if _, err := d.conn.Exec(`
		UPDATE rooms SET closed_at = $2, close_reason = $3
		WHERE code = $1 AND closed_at IS NULL
	`, code, at, reason); err != nil {
		return fmt.Errorf("closing room: %w", err)
	}
	if _, err := d.conn.Exec(`
		UPDATE games SET ended_at = $2
		WHERE room_code = $1 AND ended_at IS NULL
	`, code, at); err != nil {
		return fmt.Errorf("abandoning games: %w", err)
	}
	return nil
}

func (d *DB) OpenRooms() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM rooms WHERE closed_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting open rooms: %w", err)
	}
	return n, nil
}
