package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xoslabs/workforce/internal/domain"
)

const actionColumns = `id, type, payload, status, created_by, approved_by, approved_at,
	idempotency_key, claimed_by, claimed_until, created_at`

type ActionStore struct {
	db *pgxpool.Pool
}

func NewActionStore(db *pgxpool.Pool) *ActionStore {
	return &ActionStore{db: db}
}

func (s *ActionStore) Create(ctx context.Context, a *domain.Action) error {
	if a.Payload == nil {
		a.Payload = map[string]any{}
	}
	if a.Status == "" {
		a.Status = domain.ActionStatusPending
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO actions (type, payload, status, created_by, idempotency_key)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		a.Type, a.Payload, a.Status, a.CreatedBy, a.IdempotencyKey,
	).Scan(&a.ID, &a.CreatedAt)
	return translate(err)
}

func (s *ActionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	return s.getOne(ctx, `SELECT `+actionColumns+` FROM actions WHERE id = $1`, id)
}

func (s *ActionStore) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Action, error) {
	return s.getOne(ctx, `SELECT `+actionColumns+` FROM actions WHERE idempotency_key = $1`, key)
}

func (s *ActionStore) List(ctx context.Context, f domain.ActionFilter) ([]domain.Action, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, string(*f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		args = append(args, statusStrings(f.Statuses))
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if f.CreatedBy != nil {
		args = append(args, *f.CreatedBy)
		conds = append(conds, fmt.Sprintf("created_by = $%d", len(args)))
	}

	query := `SELECT ` + actionColumns + ` FROM actions`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := []domain.Action{}
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, *a)
	}
	return actions, rows.Err()
}

func (s *ActionStore) Decide(ctx context.Context, id uuid.UUID, to domain.ActionStatus, approver uuid.UUID, at time.Time, extra map[string]any) (*domain.Action, error) {
	if extra == nil {
		extra = map[string]any{}
	}
	a, err := scanAction(s.db.QueryRow(ctx,
		`UPDATE actions
		 SET status = $2, approved_by = $3, approved_at = $4, payload = payload || $5::jsonb
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+actionColumns,
		id, to, approver, at, extra,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.missOrConflict(ctx, id)
		}
		return nil, translate(err)
	}
	return a, nil
}

func (s *ActionStore) Resolve(ctx context.Context, id uuid.UUID, to domain.ActionStatus, from []domain.ActionStatus) (*domain.Action, error) {
	a, err := scanAction(s.db.QueryRow(ctx,
		`UPDATE actions
		 SET status = $2, claimed_until = NULL
		 WHERE id = $1 AND status = ANY($3)
		 RETURNING `+actionColumns,
		id, to, statusStrings(from),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.missOrConflict(ctx, id)
		}
		return nil, err
	}
	return a, nil
}

func (s *ActionStore) Claim(ctx context.Context, id uuid.UUID, owner string, until time.Time, from []domain.ActionStatus) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE actions
		 SET claimed_by = $2, claimed_until = $3
		 WHERE id = $1 AND status = ANY($4)
		   AND (claimed_until IS NULL OR claimed_until < now() OR claimed_by = $2)`,
		id, owner, until, statusStrings(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// missOrConflict explains why a conditional update touched no row.
func (s *ActionStore) missOrConflict(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM actions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *ActionStore) getOne(ctx context.Context, query string, arg any) (*domain.Action, error) {
	a, err := scanAction(s.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanAction(row scanner) (*domain.Action, error) {
	a := &domain.Action{}
	err := row.Scan(&a.ID, &a.Type, &a.Payload, &a.Status, &a.CreatedBy, &a.ApprovedBy, &a.ApprovedAt,
		&a.IdempotencyKey, &a.ClaimedBy, &a.ClaimedUntil, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func statusStrings(statuses []domain.ActionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
