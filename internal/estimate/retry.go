package estimate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/xoslabs/workforce/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second

	operationCreateDraftEstimate = "createDraftEstimate"
)

// EffectorError is returned once every attempt against the CRM has failed.
type EffectorError struct {
	Operation  string
	CustomerID string
	Attempts   int
	Err        error
}

func (e *EffectorError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts for customer %s: %v", e.Operation, e.Attempts, e.CustomerID, e.Err)
}

func (e *EffectorError) Unwrap() error {
	return e.Err
}

// Retrying wraps an estimate service with a bounded, fixed-delay retry:
// no jitter and no exponential growth.
type Retrying struct {
	next        domain.EstimateService
	maxAttempts int
	delay       time.Duration
	logger      *zap.Logger
	tracer      trace.Tracer
	attempts    metric.Int64Counter
}

func NewRetrying(next domain.EstimateService, maxAttempts int, delay time.Duration, logger *zap.Logger) *Retrying {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if delay < 0 {
		delay = DefaultRetryDelay
	}
	attempts, _ := otel.Meter("github.com/xoslabs/workforce/internal/estimate").
		Int64Counter("estimate.attempts", metric.WithDescription("Remote create-estimate attempts"))
	return &Retrying{
		next:        next,
		maxAttempts: maxAttempts,
		delay:       delay,
		logger:      logger,
		tracer:      otel.Tracer("github.com/xoslabs/workforce/internal/estimate"),
		attempts:    attempts,
	}
}

func (r *Retrying) CreateDraftEstimate(ctx context.Context, customerExternalID string) (*domain.Estimate, error) {
	ctx, span := r.tracer.Start(ctx, operationCreateDraftEstimate,
		trace.WithAttributes(attribute.String("customer.id", customerExternalID)))
	defer span.End()

	attempt := 0
	var lastErr error
	op := func() (*domain.Estimate, error) {
		attempt++
		r.attempts.Add(ctx, 1)
		est, err := r.next.CreateDraftEstimate(ctx, customerExternalID)
		if err != nil {
			lastErr = err
			if errors.Is(err, ErrNoCredential) {
				return nil, backoff.Permanent(err)
			}
			r.logger.Warn("create draft estimate attempt failed",
				zap.String("customer_id", customerExternalID),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", r.maxAttempts),
				zap.Error(err))
			return nil, err
		}
		return est, nil
	}

	est, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.delay)),
		backoff.WithMaxTries(uint(r.maxAttempts)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		// A context that ends during the wait hides the remote failure.
		if ctx.Err() != nil && lastErr != nil && !errors.Is(err, lastErr) {
			err = errors.Join(lastErr, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrNoCredential) {
			r.logger.Error("create draft estimate skipped: no credential",
				zap.String("operation", operationCreateDraftEstimate),
				zap.String("customer_id", customerExternalID))
			return nil, err
		}
		r.logger.Error("create draft estimate exhausted retries",
			zap.String("operation", operationCreateDraftEstimate),
			zap.String("customer_id", customerExternalID),
			zap.Int("attempts_made", attempt),
			zap.Error(err))
		return nil, &EffectorError{
			Operation:  operationCreateDraftEstimate,
			CustomerID: customerExternalID,
			Attempts:   attempt,
			Err:        err,
		}
	}

	span.SetAttributes(attribute.Int("estimate.attempt", attempt))
	r.logger.Info("draft estimate created",
		zap.String("customer_id", customerExternalID),
		zap.String("estimate_id", est.ID),
		zap.Int("attempt", attempt))
	return est, nil
}
