// internal/database/game.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/game"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordGameResults persists the final standings of a finished game. The
// room version at GAME_OVER identifies the game, so replays are idempotent.
func RecordGameResults(ctx context.Context, pool *pgxpool.Pool, room *models.Room) error {
	finished := room.UpdatedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	err := pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO game_results (room_code, room_version, variant, player_id, player_name, score, rank, role, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (room_code, room_version, player_id)
			DO UPDATE SET score = $6, rank = $7
		`
		for _, s := range game.Standings(room) {
			var role *string
			if s.Role != "" {
				r := string(s.Role)
				role = &r
			}
			if _, err := tx.Exec(ctx, q, room.Code, room.Version, string(room.Variant),
				s.PlayerID, s.Name, s.Score, s.Rank, role, finished); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert game results: %w", err)
	}
	return nil
}

// GameResult is one stored leaderboard line.
type GameResult struct {
	RoomCode   string    `json:"roomCode"`
	Version    int64     `json:"version"`
	Variant    string    `json:"variant"`
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Score      int       `json:"score"`
	Rank       int       `json:"rank"`
	FinishedAt time.Time `json:"finishedAt"`
}

// GetRoomResults returns every finished game of a room, newest first.
func GetRoomResults(ctx context.Context, pool *pgxpool.Pool, code string) ([]GameResult, error) {
	q := `
		SELECT room_code, room_version, variant, player_id, player_name, score, rank, finished_at
		FROM game_results
		WHERE room_code = $1
		ORDER BY room_version DESC, rank ASC
	`
	rows, err := pool.Query(ctx, q, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameResult
	for rows.Next() {
		var r GameResult
		if err := rows.Scan(&r.RoomCode, &r.Version, &r.Variant, &r.PlayerID, &r.PlayerName,
			&r.Score, &r.Rank, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
