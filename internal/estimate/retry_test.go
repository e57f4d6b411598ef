package estimate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRetrying_Defaults(t *testing.T) {
	assert.Equal(t, 3, DefaultMaxAttempts)
	assert.Equal(t, 2*time.Second, DefaultRetryDelay)

	r := NewRetrying(NewMockClient(), 0, -1, zap.NewNop())
	assert.Equal(t, DefaultMaxAttempts, r.maxAttempts)
	assert.Equal(t, DefaultRetryDelay, r.delay)
}

func TestRetrying_ExhaustsAttempts(t *testing.T) {
	mock := NewMockClient()
	mock.Errors = []error{errors.New("timeout 1"), errors.New("timeout 2"), errors.New("timeout 3")}
	delay := 20 * time.Millisecond
	r := NewRetrying(mock, 3, delay, zap.NewNop())

	_, err := r.CreateDraftEstimate(context.Background(), "CUST-1")
	require.Error(t, err)

	var effErr *EffectorError
	require.ErrorAs(t, err, &effErr)
	assert.Equal(t, "createDraftEstimate", effErr.Operation)
	assert.Equal(t, "CUST-1", effErr.CustomerID)
	assert.Equal(t, 3, effErr.Attempts)
	assert.Contains(t, err.Error(), "timeout 3")

	require.Equal(t, 3, mock.CallCount())
	for i := 1; i < len(mock.CallTimes); i++ {
		gap := mock.CallTimes[i].Sub(mock.CallTimes[i-1])
		assert.GreaterOrEqual(t, gap, delay, "gap before attempt %d", i+1)
	}
}

func TestRetrying_DefaultDelayBetweenAttempts(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the production retry delay")
	}
	mock := NewMockClient()
	mock.AlwaysFail = errors.New("crm down")
	r := NewRetrying(mock, DefaultMaxAttempts, DefaultRetryDelay, zap.NewNop())

	_, err := r.CreateDraftEstimate(context.Background(), "CUST-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crm down")
	require.Equal(t, 3, mock.CallCount())
	for i := 1; i < len(mock.CallTimes); i++ {
		assert.GreaterOrEqual(t, mock.CallTimes[i].Sub(mock.CallTimes[i-1]), 2*time.Second)
	}
}

func TestRetrying_SucceedsAfterTransientFailure(t *testing.T) {
	mock := NewMockClient()
	mock.Errors = []error{fmt.Errorf("connection reset")}
	r := NewRetrying(mock, 3, 0, zap.NewNop())

	est, err := r.CreateDraftEstimate(context.Background(), "CUST-2")
	require.NoError(t, err)
	assert.NotEmpty(t, est.ID)
	assert.Equal(t, "CUST-2", est.CustomerID)
	assert.Equal(t, 2, mock.CallCount())
}

func TestRetrying_NoCredentialFailsFast(t *testing.T) {
	client := NewZohoClient(Config{APIURL: "http://127.0.0.1:1", OrgID: "org"}, nil)
	r := NewRetrying(client, 3, time.Second, zap.NewNop())

	start := time.Now()
	_, err := r.CreateDraftEstimate(context.Background(), "CUST-3")
	require.ErrorIs(t, err, ErrNoCredential)
	assert.Less(t, time.Since(start), time.Second)

	var effErr *EffectorError
	assert.False(t, errors.As(err, &effErr))
}

func TestRetrying_ContextCancelled(t *testing.T) {
	mock := NewMockClient()
	mock.AlwaysFail = errors.New("crm down")
	r := NewRetrying(mock, 3, time.Hour, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := r.CreateDraftEstimate(ctx, "CUST-4")
	require.Error(t, err)
	assert.Equal(t, 1, mock.CallCount())

	var effErr *EffectorError
	require.ErrorAs(t, err, &effErr)
	assert.Equal(t, 1, effErr.Attempts)
	assert.ErrorIs(t, err, mock.AlwaysFail, "the last remote failure is kept")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
