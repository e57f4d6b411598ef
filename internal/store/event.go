package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xoslabs/workforce/internal/domain"
)

type EventStore struct {
	db *pgxpool.Pool
}

func NewEventStore(db *pgxpool.Pool) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) List(ctx context.Context, eventType string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, type, payload, created_at FROM events
		 WHERE ($1 = '' OR type = $1)
		 ORDER BY created_at DESC
		 LIMIT $2`,
		eventType, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Type, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *EventStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	var e domain.Event
	err := s.db.QueryRow(ctx,
		`SELECT id, type, payload, created_at FROM events WHERE id = $1`, id,
	).Scan(&e.ID, &e.Type, &e.Payload, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}
