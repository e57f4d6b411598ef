package estimate

import (
	"context"
	"fmt"

	"github.com/xoslabs/workforce/internal/domain"
	"go.uber.org/zap"
)

// Provider constants
const (
	ProviderZoho = "zoho"
	ProviderMock = "mock"
)

// NewService builds the configured estimate provider wrapped in the bounded retry.
// A zoho provider without credentials is still returned; its calls fail fast.
func NewService(ctx context.Context, cfg Config, logger *zap.Logger) (domain.EstimateService, error) {
	var inner domain.EstimateService
	switch cfg.Provider {
	case ProviderZoho, "":
		tokens := NewTokenSource(ctx, cfg)
		if tokens == nil {
			logger.Warn("no Zoho credential configured; estimate calls will fail")
		}
		if cfg.OrgID == "" {
			logger.Warn("ZOHO_ORG_ID is not set; estimate calls will fail")
		}
		inner = NewZohoClient(cfg, tokens)
	case ProviderMock:
		inner = NewMockClient()
	default:
		return nil, fmt.Errorf("unknown estimate provider: %s (valid options: zoho, mock)", cfg.Provider)
	}
	return NewRetrying(inner, cfg.MaxAttempts, cfg.RetryDelay, logger), nil
}
