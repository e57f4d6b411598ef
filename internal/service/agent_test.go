package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xoslabs/workforce/internal/domain"
	"github.com/xoslabs/workforce/internal/storetest"
)

func newWorkforce() *WorkforceService {
	return NewWorkforceService(storetest.NewEmployeeStore(), storetest.NewAgentStore())
}

func TestWorkforceService_CreateEmployee(t *testing.T) {
	s := newWorkforce()
	ctx := context.Background()

	e := &domain.Employee{FullName: "Test Employee", Email: "  Test@Example.com ", Role: "manager"}
	require.NoError(t, s.CreateEmployee(ctx, e))
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, "test@example.com", e.Email)

	got, err := s.GetEmployeeByEmail(ctx, "TEST@example.com")
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)

	dup := &domain.Employee{FullName: "Other", Email: "test@example.com"}
	assert.ErrorIs(t, s.CreateEmployee(ctx, dup), ErrEmployeeConflict)
}

func TestWorkforceService_GetEmployeeNotFound(t *testing.T) {
	s := newWorkforce()

	_, err := s.GetEmployee(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestWorkforceService_CreateAgent(t *testing.T) {
	s := newWorkforce()
	ctx := context.Background()
	owner := &domain.Employee{FullName: "Owner", Email: "owner@example.com"}
	require.NoError(t, s.CreateEmployee(ctx, owner))

	a := &domain.Agent{
		CodeName:   "SUZIE",
		Skills:     []string{domain.SkillFollowUpEmails},
		OwnerEmpID: owner.ID,
	}
	require.NoError(t, s.CreateAgent(ctx, a))
	assert.NotEqual(t, uuid.Nil, a.ID)

	byName, err := s.GetAgentByCodeName(ctx, "SUZIE")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byName.ID)

	owned, err := s.ListAgentsByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	skilled, err := s.ListAgentsWithSkills(ctx, []string{domain.SkillFollowUpEmails, "payment_chasing"})
	require.NoError(t, err)
	assert.Len(t, skilled, 1)

	dup := &domain.Agent{CodeName: "SUZIE", OwnerEmpID: owner.ID}
	assert.ErrorIs(t, s.CreateAgent(ctx, dup), ErrAgentConflict)
}

func TestWorkforceService_CreateAgentUnknownOwner(t *testing.T) {
	s := newWorkforce()

	err := s.CreateAgent(context.Background(), &domain.Agent{CodeName: "BOT", OwnerEmpID: uuid.New()})
	assert.ErrorIs(t, err, ErrAgentOwnerNotFound)
}

func TestWorkforceService_GetAgentNotFound(t *testing.T) {
	s := newWorkforce()

	_, err := s.GetAgent(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAgentNotFound)
	_, err = s.GetAgentByCodeName(context.Background(), "NOBODY")
	assert.ErrorIs(t, err, ErrAgentNotFound)
}
