package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/cache"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventSink writes historian batches into room_events.
type EventSink struct {
	Pool *pgxpool.Pool
}

// InsertEvents stores a batch in a single transaction. Records already
// stored are skipped.
func (s *EventSink) InsertEvents(ctx context.Context, records []cache.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO room_events (room_code, room_version, seq, event_type, actor, target, payload, occurred_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8)
			ON CONFLICT (room_code, room_version, seq) DO NOTHING
		`
		for _, rec := range records {
			payload := rec.Payload
			if payload == nil {
				payload = map[string]interface{}{}
			}
			data, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("marshal payload: %w", err)
			}
			at := time.UnixMilli(rec.Timestamp).UTC()
			if _, err := tx.Exec(ctx, q, rec.RoomCode, rec.Version, rec.Seq, rec.Type,
				rec.Actor, rec.Target, data, at); err != nil {
				return fmt.Errorf("insert event %s/%d/%d: %w", rec.RoomCode, rec.Version, rec.Seq, err)
			}
		}
		return nil
	})
}
