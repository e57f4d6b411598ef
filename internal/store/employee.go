package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xoslabs/workforce/internal/domain"
)

type EmployeeStore struct {
	db *pgxpool.Pool
}

func NewEmployeeStore(db *pgxpool.Pool) *EmployeeStore {
	return &EmployeeStore{db: db}
}

func (s *EmployeeStore) Create(ctx context.Context, e *domain.Employee) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO employees (full_name, email, role)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		e.FullName, e.Email, e.Role,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return translate(err)
}

func (s *EmployeeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Employee, error) {
	return s.getOne(ctx,
		`SELECT id, full_name, email, role, created_at, updated_at
		 FROM employees WHERE id = $1`, id)
}

func (s *EmployeeStore) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	return s.getOne(ctx,
		`SELECT id, full_name, email, role, created_at, updated_at
		 FROM employees WHERE email = $1`, email)
}

func (s *EmployeeStore) getOne(ctx context.Context, query string, arg any) (*domain.Employee, error) {
	e := &domain.Employee{}
	err := s.db.QueryRow(ctx, query, arg).
		Scan(&e.ID, &e.FullName, &e.Email, &e.Role, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}
