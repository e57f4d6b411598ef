package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xoslabs/workforce/internal/domain"
)

const agentColumns = `id, code_name, description, skills, owner_emp_id, created_at, updated_at`

type AgentStore struct {
	db *pgxpool.Pool
}

func NewAgentStore(db *pgxpool.Pool) *AgentStore {
	return &AgentStore{db: db}
}

func (s *AgentStore) Create(ctx context.Context, a *domain.Agent) error {
	if a.Skills == nil {
		a.Skills = []string{}
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO agents (code_name, description, skills, owner_emp_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		a.CodeName, a.Description, a.Skills, a.OwnerEmpID,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return translate(err)
}

func (s *AgentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	return s.getOne(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
}

func (s *AgentStore) GetByCodeName(ctx context.Context, codeName string) (*domain.Agent, error) {
	return s.getOne(ctx, `SELECT `+agentColumns+` FROM agents WHERE code_name = $1`, codeName)
}

func (s *AgentStore) ListByOwner(ctx context.Context, ownerEmpID uuid.UUID) ([]domain.Agent, error) {
	return s.list(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE owner_emp_id = $1 ORDER BY created_at`,
		ownerEmpID)
}

func (s *AgentStore) ListWithAnySkill(ctx context.Context, skills []string) ([]domain.Agent, error) {
	if len(skills) == 0 {
		return nil, nil
	}
	return s.list(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE skills ?| $1 ORDER BY created_at`,
		skills)
}

func (s *AgentStore) getOne(ctx context.Context, query string, arg any) (*domain.Agent, error) {
	a, err := scanAgent(s.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *AgentStore) list(ctx context.Context, query string, args ...any) ([]domain.Agent, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

func scanAgent(row scanner) (*domain.Agent, error) {
	a := &domain.Agent{}
	var description *string
	if err := row.Scan(&a.ID, &a.CodeName, &description, &a.Skills, &a.OwnerEmpID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if description != nil {
		a.Description = *description
	}
	return a, nil
}
