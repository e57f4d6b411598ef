package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xoslabs/workforce/internal/domain"
)

// DefaultChannel is the Postgres channel events are announced on.
const DefaultChannel = "new_event"

// Postgres persists every event to the events table and announces it with
// pg_notify in the same transaction, so listeners only see committed events.
// The notification carries the event id and type only: Postgres caps notify
// payloads below 8000 bytes, and listeners load the full row by id.
type Postgres struct {
	db      *pgxpool.Pool
	channel string
}

func NewPostgres(db *pgxpool.Pool, channel string) *Postgres {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Postgres{db: db, channel: channel}
}

func (p *Postgres) Publish(ctx context.Context, eventType string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	e := domain.Event{Type: eventType, Payload: payload}

	err := pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO events (type, payload) VALUES ($1, $2) RETURNING id, created_at`,
			e.Type, e.Payload,
		).Scan(&e.ID, &e.CreatedAt); err != nil {
			return err
		}

		msg, err := notification(e)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `SELECT pg_notify($1, $2)`, p.channel, msg)
		return err
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// notification is the channel message for e: its identity without the payload.
func notification(e domain.Event) (string, error) {
	msg, err := json.Marshal(domain.Event{ID: e.ID, Type: e.Type, CreatedAt: e.CreatedAt})
	if err != nil {
		return "", err
	}
	return string(msg), nil
}
