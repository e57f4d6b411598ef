package estimate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewService(t *testing.T) {
	svc, err := NewService(context.Background(), Config{Provider: ProviderMock, MaxAttempts: 3}, zap.NewNop())
	require.NoError(t, err)
	_, ok := svc.(*Retrying)
	assert.True(t, ok)

	est, err := svc.CreateDraftEstimate(context.Background(), "CUST-1")
	require.NoError(t, err)
	assert.NotEmpty(t, est.ID)

	_, err = NewService(context.Background(), Config{Provider: "quickbooks"}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewService_ZohoWithoutCredentialFailsFast(t *testing.T) {
	svc, err := NewService(context.Background(), Config{Provider: ProviderZoho, APIURL: "http://127.0.0.1:1"}, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.CreateDraftEstimate(context.Background(), "CUST-1")
	assert.ErrorIs(t, err, ErrNoCredential)
}
