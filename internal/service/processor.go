package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xoslabs/workforce/internal/clock"
	"github.com/xoslabs/workforce/internal/domain"
	"github.com/xoslabs/workforce/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultProcessorInterval = 60 * time.Second
	defaultClaimLease        = 5 * time.Minute
	actionTimeout            = 2 * time.Minute

	defaultCustomerID = "DEFAULT"

	defaultFollowupEmail          = "This is a follow-up regarding the quote we sent. Please let us know if you have any questions."
	defaultSecondaryFollowupEmail = "This is a secondary follow-up to remind you about the quote we sent previously."
)

// processorSkills are the agent skills whose actions the processor executes.
var processorSkills = []string{domain.SkillQuoteGeneration, domain.SkillFollowUpEmails}

// ProcessResult summarises one processor pass.
type ProcessResult struct {
	Agents    int `json:"agents"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// OrphanedQuoteError reports a draft quote that was saved for an action the
// processor then failed to complete, typically because the action moved on
// under another processor instance.
type OrphanedQuoteError struct {
	QuoteID int64
	Err     error
}

func (e *OrphanedQuoteError) Error() string {
	return fmt.Sprintf("quote %d saved but action not completed: %v", e.QuoteID, e.Err)
}

func (e *OrphanedQuoteError) Unwrap() error { return e.Err }

// ActionProcessor periodically executes approved actions of agents that hold
// a processing skill.
type ActionProcessor struct {
	queue     *ActionQueue
	agents    domain.AgentStore
	clients   domain.ClientStore
	quotes    domain.QuoteStore
	estimates domain.EstimateService
	sender    domain.FollowupSender
	notifier  domain.Notifier
	errors    *ErrorRecorder
	logger    *zap.Logger

	instanceID string
	lease      time.Duration
	interval   time.Duration

	runMu    sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
	wakeCh   chan struct{}
	wg       sync.WaitGroup
	tracer   trace.Tracer
	outcome  metric.Int64Counter
}

func NewActionProcessor(
	queue *ActionQueue,
	agents domain.AgentStore,
	clients domain.ClientStore,
	quotes domain.QuoteStore,
	estimates domain.EstimateService,
	sender domain.FollowupSender,
	notifier domain.Notifier,
	logger *zap.Logger,
) *ActionProcessor {
	outcome, _ := otel.Meter("github.com/xoslabs/workforce/internal/service").
		Int64Counter("processor.actions", metric.WithDescription("Actions executed by the processor, by outcome"))
	return &ActionProcessor{
		queue:      queue,
		agents:     agents,
		clients:    clients,
		quotes:     quotes,
		estimates:  estimates,
		sender:     sender,
		notifier:   notifier,
		errors:     NewErrorRecorder(notifier, "action-processor", logger),
		logger:     logger,
		instanceID: defaultInstanceID(),
		lease:      defaultClaimLease,
		interval:   defaultProcessorInterval,
		stopCh:     make(chan struct{}),
		wakeCh:     make(chan struct{}, 1),
		tracer:     otel.Tracer("github.com/xoslabs/workforce/internal/service"),
		outcome:    outcome,
	}
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "processor"
	}
	return host + "-" + uuid.NewString()[:8]
}

func (p *ActionProcessor) SetInterval(d time.Duration) {
	if d > 0 {
		p.interval = d
	}
}

func (p *ActionProcessor) SetClaimLease(d time.Duration) {
	if d > 0 {
		p.lease = d
	}
}

func (p *ActionProcessor) InstanceID() string {
	return p.instanceID
}

// Start runs a pass immediately, then on every interval tick and on every
// wake-up until Stop is called.
func (p *ActionProcessor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.logger.Info("action processor started",
			zap.Duration("interval", p.interval),
			zap.String("instance_id", p.instanceID))

		p.tick(ctx)
		for {
			select {
			case <-ticker.C:
				p.tick(ctx)
			case <-p.wakeCh:
				p.tick(ctx)
			case <-p.stopCh:
				p.logger.Info("action processor stopped")
				return
			}
		}
	}()

	// A pass in flight finishes its current action, then observes ctx.
	go func() {
		<-p.stopCh
		cancel()
	}()
}

// Stop cancels the periodic trigger and waits for the running pass. It is
// safe to call more than once.
func (p *ActionProcessor) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

// Wake requests an early pass. It never blocks.
func (p *ActionProcessor) Wake() {
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

// HandleEvent wakes the processor when new work may have appeared.
func (p *ActionProcessor) HandleEvent(e domain.Event) {
	switch e.Type {
	case domain.EventActionCreated, domain.EventActionApproved:
		p.Wake()
	}
}

func (p *ActionProcessor) tick(ctx context.Context) {
	res, err := p.RunOnce(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("processor pass failed", zap.Error(err))
		return
	}
	if res.Completed+res.Failed > 0 {
		p.logger.Info("processor pass finished",
			zap.Int("agents", res.Agents),
			zap.Int("completed", res.Completed),
			zap.Int("failed", res.Failed),
			zap.Int("skipped", res.Skipped))
	}
}

// RunOnce executes every executable action of every skilled agent. Passes are
// serialised within the process; cancelling ctx stops the pass between actions.
func (p *ActionProcessor) RunOnce(ctx context.Context) (ProcessResult, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	var res ProcessResult
	ctx, span := p.tracer.Start(ctx, "processor.run")
	defer span.End()

	agents, err := p.agents.ListWithAnySkill(ctx, processorSkills)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, fmt.Errorf("list skilled agents: %w", err)
	}
	res.Agents = len(agents)

	for _, agent := range agents {
		actions, err := p.queue.ListExecutableByAgent(ctx, agent.ID)
		if err != nil {
			p.logger.Error("failed to list executable actions",
				zap.String("agent_id", agent.ID.String()),
				zap.String("agent", agent.CodeName),
				zap.Error(err))
			continue
		}
		for i := range actions {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			switch p.processAction(ctx, &agent, &actions[i]) {
			case outcomeCompleted:
				res.Completed++
			case outcomeFailed:
				res.Failed++
			default:
				res.Skipped++
			}
		}
	}

	span.SetAttributes(
		attribute.Int("processor.completed", res.Completed),
		attribute.Int("processor.failed", res.Failed),
		attribute.Int("processor.skipped", res.Skipped),
	)
	return res, nil
}

type actionOutcome string

const (
	outcomeCompleted actionOutcome = "completed"
	outcomeFailed    actionOutcome = "failed"
	outcomeSkipped   actionOutcome = "skipped"
)

func (p *ActionProcessor) processAction(parent context.Context, agent *domain.Agent, a *domain.Action) actionOutcome {
	kind := a.Kind()
	if kind == domain.ActionKindUnknown {
		p.logger.Debug("skipping action of unknown type",
			zap.String("action_id", a.ID.String()),
			zap.String("type", a.Type))
		return outcomeSkipped
	}

	// The action runs to completion even if the pass is cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), actionTimeout)
	defer cancel()

	claimed, err := p.queue.Claim(ctx, a.ID, p.instanceID, p.lease)
	if err != nil {
		p.logger.Warn("failed to claim action",
			zap.String("action_id", a.ID.String()),
			zap.Error(err))
		return outcomeSkipped
	}
	if !claimed {
		return outcomeSkipped
	}

	ctx, span := p.tracer.Start(ctx, "processor.execute", trace.WithAttributes(
		attribute.String("action.id", a.ID.String()),
		attribute.String("action.type", a.Type),
		attribute.String("agent.code_name", agent.CodeName),
	))
	defer span.End()

	err = p.execute(ctx, kind, agent, a)
	if err == nil {
		p.outcome.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcomeCompleted))))
		return outcomeCompleted
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var stack []byte
	var pe *PanicError
	if errors.As(err, &pe) {
		stack = pe.Stack
	}
	details := map[string]any{
		"actionId": a.ID.String(),
		"agentId":  agent.ID.String(),
		"payload":  a.Payload,
	}
	var oq *OrphanedQuoteError
	if errors.As(err, &oq) {
		details["orphanedQuoteId"] = oq.QuoteID
	}
	p.errors.Record(ctx, kind.String(), err, stack, details)
	if _, ferr := p.queue.Fail(ctx, a.ID); ferr != nil {
		p.logger.Error("failed to mark action failed",
			zap.String("action_id", a.ID.String()),
			zap.Error(ferr))
	}
	p.outcome.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcomeFailed))))
	return outcomeFailed
}

// execute dispatches on the action kind. A panic in a handler is converted
// into an error so one bad action cannot stop the pass.
func (p *ActionProcessor) execute(ctx context.Context, kind domain.ActionKind, agent *domain.Agent, a *domain.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()

	switch kind {
	case domain.ActionKindGenerateQuote:
		return p.generateQuote(ctx, agent, a)
	case domain.ActionKindQuoteFollowup:
		return p.sendFollowup(ctx, agent, a, false)
	case domain.ActionKindQuoteSecondaryFollowup:
		return p.sendFollowup(ctx, agent, a, true)
	default:
		return fmt.Errorf("unsupported action type %q", a.Type)
	}
}

func (p *ActionProcessor) generateQuote(ctx context.Context, agent *domain.Agent, a *domain.Action) error {
	var payload domain.GenerateQuotePayload
	if err := a.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decode generate_quote payload: %w", err)
	}
	var missing []string
	if payload.ClientID == 0 {
		missing = append(missing, "clientId")
	}
	if strings.TrimSpace(payload.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(string(payload.Amount)) == "" {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}

	client, err := p.clients.GetByID(ctx, payload.ClientID.Int64())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrClientNotFound, payload.ClientID.Int64())
		}
		return fmt.Errorf("load client: %w", err)
	}

	customerID := defaultCustomerID
	if client.ExternalID != nil && strings.TrimSpace(*client.ExternalID) != "" {
		customerID = *client.ExternalID
	}

	est, err := p.estimates.CreateDraftEstimate(ctx, customerID)
	if err != nil {
		return err
	}

	quote := &domain.Quote{
		ClientID:        client.ID,
		Title:           payload.Title,
		Description:     payload.Description,
		Amount:          string(payload.Amount),
		Status:          domain.QuoteStatusDraft,
		ExternalQuoteID: &est.ID,
	}
	if err := p.quotes.Create(ctx, quote); err != nil {
		return fmt.Errorf("persist quote: %w", err)
	}

	if _, err := p.queue.Complete(ctx, a.ID); err != nil {
		p.logger.Warn("quote persisted but action not completed",
			zap.String("action_id", a.ID.String()),
			zap.Int64("quote_id", quote.ID),
			zap.Error(err))
		return &OrphanedQuoteError{QuoteID: quote.ID, Err: fmt.Errorf("complete action: %w", err)}
	}

	p.publish(ctx, domain.EventQuoteCreated, map[string]any{
		"quoteId":         quote.ID,
		"clientId":        client.ID,
		"externalQuoteId": est.ID,
		"actionId":        a.ID.String(),
		"agentId":         agent.ID.String(),
		"agentGenerated":  true,
	})
	p.logger.Info("quote generated",
		zap.String("action_id", a.ID.String()),
		zap.Int64("quote_id", quote.ID),
		zap.String("estimate_id", est.ID))
	return nil
}

func (p *ActionProcessor) sendFollowup(ctx context.Context, agent *domain.Agent, a *domain.Action, secondary bool) error {
	var payload domain.FollowupPayload
	if err := a.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decode follow-up payload: %w", err)
	}
	if payload.QuoteID == 0 {
		return &ValidationError{Fields: []string{"quoteId"}}
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		message = defaultFollowupEmail
		if secondary {
			message = defaultSecondaryFollowupEmail
		}
	}

	if err := p.sender.SendFollowup(ctx, payload.QuoteID.Int64(), message, secondary); err != nil {
		return fmt.Errorf("send follow-up: %w", err)
	}

	if _, err := p.queue.Complete(ctx, a.ID); err != nil {
		return fmt.Errorf("complete action: %w", err)
	}

	event := domain.EventQuoteFollowupSent
	if secondary {
		event = domain.EventQuoteSecondaryFollowupSent
	}
	p.publish(ctx, event, map[string]any{
		"quoteId":     payload.QuoteID.Int64(),
		"actionId":    a.ID.String(),
		"agentId":     agent.ID.String(),
		"isSecondary": secondary,
		"timestamp":   clock.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

func (p *ActionProcessor) publish(ctx context.Context, eventType string, payload map[string]any) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Publish(ctx, eventType, payload); err != nil {
		p.logger.Warn("failed to publish processor event",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}
