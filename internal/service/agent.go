package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/xoslabs/workforce/internal/domain"
	"github.com/xoslabs/workforce/internal/store"
)

// WorkforceService manages the employees who approve actions and the agents
// that propose them.
type WorkforceService struct {
	employees domain.EmployeeStore
	agents    domain.AgentStore
}

func NewWorkforceService(es domain.EmployeeStore, as domain.AgentStore) *WorkforceService {
	return &WorkforceService{employees: es, agents: as}
}

var (
	ErrAgentNotFound      = errors.New("agent not found")
	ErrAgentConflict      = errors.New("agent with this code name already exists")
	ErrAgentOwnerNotFound = errors.New("owner employee not found")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrEmployeeConflict   = errors.New("employee with this email already exists")
)

func (s *WorkforceService) CreateEmployee(ctx context.Context, e *domain.Employee) error {
	e.Email = strings.TrimSpace(strings.ToLower(e.Email))
	if err := s.employees.Create(ctx, e); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrEmployeeConflict
		}
		return err
	}
	return nil
}

func (s *WorkforceService) GetEmployee(ctx context.Context, id uuid.UUID) (*domain.Employee, error) {
	e, err := s.employees.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *WorkforceService) GetEmployeeByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	e, err := s.employees.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *WorkforceService) CreateAgent(ctx context.Context, a *domain.Agent) error {
	if _, err := s.GetEmployee(ctx, a.OwnerEmpID); err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return ErrAgentOwnerNotFound
		}
		return err
	}
	err := s.agents.Create(ctx, a)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return ErrAgentConflict
		case errors.Is(err, store.ErrInvalidReference):
			return ErrAgentOwnerNotFound
		}
		return err
	}
	return nil
}

func (s *WorkforceService) GetAgent(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	a, err := s.agents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *WorkforceService) GetAgentByCodeName(ctx context.Context, codeName string) (*domain.Agent, error) {
	a, err := s.agents.GetByCodeName(ctx, codeName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *WorkforceService) ListAgentsByOwner(ctx context.Context, employeeID uuid.UUID) ([]domain.Agent, error) {
	return s.agents.ListByOwner(ctx, employeeID)
}

func (s *WorkforceService) ListAgentsWithSkills(ctx context.Context, skills []string) ([]domain.Agent, error) {
	return s.agents.ListWithAnySkill(ctx, skills)
}
