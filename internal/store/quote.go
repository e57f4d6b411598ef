package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xoslabs/workforce/internal/domain"
)

const quoteColumns = `id, client_id, title, description, amount, status, external_quote_id,
	sent_at, followup_count, created_at, updated_at`

type QuoteStore struct {
	db *pgxpool.Pool
}

func NewQuoteStore(db *pgxpool.Pool) *QuoteStore {
	return &QuoteStore{db: db}
}

func (s *QuoteStore) Create(ctx context.Context, q *domain.Quote) error {
	if q.Status == "" {
		q.Status = domain.QuoteStatusDraft
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO quotes (client_id, title, description, amount, status, external_quote_id, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, followup_count, created_at, updated_at`,
		q.ClientID, q.Title, q.Description, q.Amount, q.Status, q.ExternalQuoteID, q.SentAt,
	).Scan(&q.ID, &q.FollowupCount, &q.CreatedAt, &q.UpdatedAt)
	return translate(err)
}

func (s *QuoteStore) GetByID(ctx context.Context, id int64) (*domain.Quote, error) {
	q, err := scanQuote(s.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return q, nil
}

func (s *QuoteStore) ListNeedingFirstFollowup(ctx context.Context, cutoff time.Time) ([]domain.Quote, error) {
	return s.list(ctx,
		`SELECT `+quoteColumns+` FROM quotes
		 WHERE status = 'sent' AND sent_at < $1 AND followup_count = 0
		 ORDER BY id`,
		cutoff)
}

func (s *QuoteStore) ListNeedingSecondaryFollowup(ctx context.Context, cutoff time.Time, maxFollowups int) ([]domain.Quote, error) {
	return s.list(ctx,
		`SELECT `+quoteColumns+` FROM quotes
		 WHERE status = 'sent' AND followup_count >= 1 AND followup_count < $2 AND updated_at < $1
		 ORDER BY id`,
		cutoff, maxFollowups)
}

func (s *QuoteStore) RecordFollowup(ctx context.Context, quoteID int64, expectedCount int, a *domain.Action) error {
	if a.Payload == nil {
		a.Payload = map[string]any{}
	}
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE quotes SET followup_count = followup_count + 1, updated_at = now()
			 WHERE id = $1 AND followup_count = $2`,
			quoteID, expectedCount)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrConflict
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO actions (type, payload, status, created_by)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, created_at`,
			a.Type, a.Payload, a.Status, a.CreatedBy,
		).Scan(&a.ID, &a.CreatedAt)
		return translate(err)
	})
}

func (s *QuoteStore) list(ctx context.Context, query string, args ...any) ([]domain.Quote, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []domain.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, rows.Err()
}

func scanQuote(row scanner) (*domain.Quote, error) {
	q := &domain.Quote{}
	var description *string
	err := row.Scan(&q.ID, &q.ClientID, &q.Title, &description, &q.Amount, &q.Status, &q.ExternalQuoteID,
		&q.SentAt, &q.FollowupCount, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description != nil {
		q.Description = *description
	}
	return q, nil
}
