package service

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/xoslabs/workforce/internal/domain"
	"go.uber.org/zap"
)

// ErrorRecorder turns a failure inside a background component into an
// agent_error event so operators can find it without reading process logs.
type ErrorRecorder struct {
	notifier domain.Notifier
	logger   *zap.Logger
	service  string
}

func NewErrorRecorder(notifier domain.Notifier, service string, logger *zap.Logger) *ErrorRecorder {
	return &ErrorRecorder{notifier: notifier, service: service, logger: logger}
}

// Record logs err and publishes it. stack may be nil. Publish failures are
// logged and dropped.
func (r *ErrorRecorder) Record(ctx context.Context, operation string, err error, stack []byte, details map[string]any) {
	fields := []zap.Field{
		zap.String("service", r.service),
		zap.String("operation", operation),
		zap.Error(err),
	}
	for k, v := range details {
		fields = append(fields, zap.Any(k, v))
	}
	r.logger.Error("operation failed", fields...)

	if r.notifier == nil {
		return
	}
	payload := map[string]any{
		"service":   r.service,
		"operation": operation,
		"error":     err.Error(),
		"context":   details,
	}
	if len(stack) > 0 {
		payload["stack"] = string(stack)
	}
	if perr := r.notifier.Publish(ctx, domain.EventAgentError, payload); perr != nil {
		r.logger.Warn("failed to persist error event",
			zap.String("operation", operation),
			zap.Error(perr))
	}
}

// PanicError carries a recovered panic value and the goroutine stack.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}
