package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xoslabs/workforce/internal/clock"
	"github.com/xoslabs/workforce/internal/domain"
	"github.com/xoslabs/workforce/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const (
	initialFollowupMessage   = "This is an initial follow-up to check if the client has any questions about their quote."
	secondaryFollowupMessage = "This is a secondary follow-up to remind the client about their quote."

	followupRunTimeout = 5 * time.Minute
)

var (
	// ErrQuoteAlreadyFollowedUp is returned when another run recorded a
	// follow-up for the quote between selection and recording.
	ErrQuoteAlreadyFollowedUp = errors.New("quote follow-up already recorded")
	ErrQuoteNotFound          = errors.New("quote not found")
)

// FollowupPolicy configures which quotes are stale and who chases them.
type FollowupPolicy struct {
	FollowDays    int
	MaxFollowups  int
	AgentCodeName string
	// Schedule is a standard five-field cron expression evaluated in UTC.
	Schedule string
}

func DefaultFollowupPolicy() FollowupPolicy {
	return FollowupPolicy{
		FollowDays:    3,
		MaxFollowups:  3,
		AgentCodeName: "SUZIE",
		Schedule:      "0 6 * * *",
	}
}

// FollowupRunResult summarises one scheduler run.
type FollowupRunResult struct {
	Initial   int `json:"initial"`
	Secondary int `json:"secondary"`
	Skipped   int `json:"skipped"`
}

// FollowupScheduler turns stale quotes into pending follow-up actions. Each
// follow-up increments the quote's follow-up count in the same transaction,
// which takes the quote out of the selection until it is stale again.
type FollowupScheduler struct {
	quotes   domain.QuoteStore
	agents   domain.AgentStore
	notifier domain.Notifier
	logger   *zap.Logger
	policy   FollowupPolicy

	cron    *cron.Cron
	wg      sync.WaitGroup
	created metric.Int64Counter
}

func NewFollowupScheduler(qs domain.QuoteStore, as domain.AgentStore, notifier domain.Notifier, policy FollowupPolicy, logger *zap.Logger) *FollowupScheduler {
	def := DefaultFollowupPolicy()
	if policy.FollowDays <= 0 {
		policy.FollowDays = def.FollowDays
	}
	if policy.MaxFollowups <= 0 {
		policy.MaxFollowups = def.MaxFollowups
	}
	if policy.AgentCodeName == "" {
		policy.AgentCodeName = def.AgentCodeName
	}
	if policy.Schedule == "" {
		policy.Schedule = def.Schedule
	}
	created, _ := otel.Meter("github.com/xoslabs/workforce/internal/service").
		Int64Counter("followups.created", metric.WithDescription("Follow-up actions created by the scheduler"))
	return &FollowupScheduler{
		quotes:   qs,
		agents:   as,
		notifier: notifier,
		logger:   logger,
		policy:   policy,
		created:  created,
	}
}

func (s *FollowupScheduler) Policy() FollowupPolicy {
	return s.policy
}

// Start runs one check immediately in the background and registers the
// periodic check on the cron schedule.
func (s *FollowupScheduler) Start() error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(s.policy.Schedule, s.scheduledRun); err != nil {
		return fmt.Errorf("parse follow-up schedule %q: %w", s.policy.Schedule, err)
	}
	s.cron = c
	c.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.scheduledRun()
	}()

	s.logger.Info("follow-up scheduler started",
		zap.String("schedule", s.policy.Schedule),
		zap.Int("follow_days", s.policy.FollowDays),
		zap.Int("max_followups", s.policy.MaxFollowups))
	return nil
}

// Stop cancels the cron trigger and waits for running checks to return.
func (s *FollowupScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()
	s.logger.Info("follow-up scheduler stopped")
}

func (s *FollowupScheduler) scheduledRun() {
	ctx, cancel := context.WithTimeout(context.Background(), followupRunTimeout)
	defer cancel()
	res, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("follow-up check failed", zap.Error(err))
		return
	}
	s.logger.Info("follow-up check finished",
		zap.Int("initial", res.Initial),
		zap.Int("secondary", res.Secondary),
		zap.Int("skipped", res.Skipped))
}

// RunOnce selects stale quotes and records one follow-up action for each. It
// is safe to call repeatedly and concurrently.
func (s *FollowupScheduler) RunOnce(ctx context.Context) (FollowupRunResult, error) {
	var res FollowupRunResult
	cutoff := clock.Now().UTC().AddDate(0, 0, -s.policy.FollowDays)

	first, err := s.quotes.ListNeedingFirstFollowup(ctx, cutoff)
	if err != nil {
		return res, fmt.Errorf("list quotes needing first follow-up: %w", err)
	}
	for i := range first {
		a, err := s.createFollowup(ctx, &first[i], false)
		switch {
		case errors.Is(err, ErrQuoteAlreadyFollowedUp):
			res.Skipped++
		case err != nil:
			s.logger.Warn("failed to create follow-up action",
				zap.Int64("quote_id", first[i].ID),
				zap.Error(err))
			res.Skipped++
		case a == nil:
			res.Skipped++
		default:
			res.Initial++
		}
	}

	secondary, err := s.quotes.ListNeedingSecondaryFollowup(ctx, cutoff, s.policy.MaxFollowups)
	if err != nil {
		return res, fmt.Errorf("list quotes needing secondary follow-up: %w", err)
	}
	for i := range secondary {
		a, err := s.createFollowup(ctx, &secondary[i], true)
		switch {
		case errors.Is(err, ErrQuoteAlreadyFollowedUp):
			res.Skipped++
		case err != nil:
			s.logger.Warn("failed to create secondary follow-up action",
				zap.Int64("quote_id", secondary[i].ID),
				zap.Error(err))
			res.Skipped++
		case a == nil:
			res.Skipped++
		default:
			res.Secondary++
		}
	}
	return res, nil
}

// CreateFollowupAction records a follow-up action for the quote on behalf of
// the follow-up agent. It returns nil without error when the agent does not
// exist.
func (s *FollowupScheduler) CreateFollowupAction(ctx context.Context, quoteID int64, secondary bool) (*domain.Action, error) {
	q, err := s.quotes.GetByID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("load quote %d: %w", quoteID, err)
	}
	return s.createFollowup(ctx, q, secondary)
}

func (s *FollowupScheduler) createFollowup(ctx context.Context, q *domain.Quote, secondary bool) (*domain.Action, error) {
	agent, err := s.agents.GetByCodeName(ctx, s.policy.AgentCodeName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("follow-up agent not found",
				zap.String("code_name", s.policy.AgentCodeName),
				zap.Int64("quote_id", q.ID))
			return nil, nil
		}
		return nil, fmt.Errorf("load follow-up agent: %w", err)
	}

	actionType := domain.ActionTypeQuoteFollowup
	message := initialFollowupMessage
	if secondary {
		actionType = domain.ActionTypeQuoteSecondaryFollowup
		message = secondaryFollowupMessage
	}

	a := &domain.Action{
		Type: actionType,
		Payload: map[string]any{
			"quoteId":     q.ID,
			"isSecondary": secondary,
			"message":     message,
		},
		Status:    domain.ActionStatusPending,
		CreatedBy: agent.ID,
	}
	if err := s.quotes.RecordFollowup(ctx, q.ID, q.FollowupCount, a); err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.logger.Info("quote already followed up by a concurrent run",
				zap.Int64("quote_id", q.ID))
			return nil, ErrQuoteAlreadyFollowedUp
		}
		return nil, fmt.Errorf("record follow-up for quote %d: %w", q.ID, err)
	}

	s.created.Add(ctx, 1, metric.WithAttributes(attribute.Bool("secondary", secondary)))
	s.logger.Info("follow-up action created",
		zap.Int64("quote_id", q.ID),
		zap.String("action_id", a.ID.String()),
		zap.String("type", actionType))

	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, domain.EventActionCreated, map[string]any{
			"actionId":  a.ID.String(),
			"type":      a.Type,
			"createdBy": agent.ID.String(),
			"quoteId":   q.ID,
		}); err != nil {
			s.logger.Warn("failed to publish action event",
				zap.String("event_type", domain.EventActionCreated),
				zap.Error(err))
		}
	}
	return a, nil
}
