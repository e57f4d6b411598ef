package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xoslabs/workforce/internal/domain"
)

type ClientStore struct {
	db *pgxpool.Pool
}

func NewClientStore(db *pgxpool.Pool) *ClientStore {
	return &ClientStore{db: db}
}

func (s *ClientStore) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	c := &domain.Client{}
	var phone *string
	err := s.db.QueryRow(ctx,
		`SELECT id, name, email, phone, external_id, created_at, updated_at
		 FROM clients WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Email, &phone, &c.ExternalID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if phone != nil {
		c.Phone = *phone
	}
	return c, nil
}
