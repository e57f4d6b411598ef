package service

import (
	"context"

	"go.uber.org/zap"
)

// LogFollowupSender records follow-up deliveries in the log. Outbound email
// delivery is not wired; the processor treats a logged follow-up as sent.
type LogFollowupSender struct {
	logger *zap.Logger
}

func NewLogFollowupSender(logger *zap.Logger) *LogFollowupSender {
	return &LogFollowupSender{logger: logger}
}

func (s *LogFollowupSender) SendFollowup(ctx context.Context, quoteID int64, message string, secondary bool) error {
	s.logger.Info("sending quote follow-up",
		zap.Int64("quote_id", quoteID),
		zap.Bool("secondary", secondary),
		zap.String("message", message))
	return nil
}
