package estimate

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// Zoho access tokens live one hour; treat them as valid for 55 minutes.
	tokenLifetime    = time.Hour
	tokenEarlyExpiry = 5 * time.Minute
)

// ErrNoCredential means no access token can be produced. Calls fail before any network I/O.
var ErrNoCredential = errors.New("no CRM credential configured")

// NewTokenSource returns a lazily refreshed, cached credential. A refresh
// token takes precedence over a static token; nil means no credential.
func NewTokenSource(ctx context.Context, cfg Config) oauth2.TokenSource {
	if cfg.RefreshToken != "" && cfg.ClientID != "" && cfg.ClientSecret != "" {
		r := &refresher{
			ctx: ctx,
			conf: &oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				Endpoint: oauth2.Endpoint{
					TokenURL:  strings.TrimRight(cfg.AccountsURL, "/") + "/oauth/v2/token",
					AuthStyle: oauth2.AuthStyleInParams,
				},
			},
			refreshToken: cfg.RefreshToken,
			now:          time.Now,
		}
		return oauth2.ReuseTokenSourceWithExpiry(nil, r, tokenEarlyExpiry)
	}
	if cfg.AuthToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AuthToken})
	}
	return nil
}

// refresher performs one refresh-token grant per call; caching is left to
// the ReuseTokenSource wrapping it.
type refresher struct {
	ctx          context.Context
	conf         *oauth2.Config
	refreshToken string
	now          func() time.Time
}

func (r *refresher) Token() (*oauth2.Token, error) {
	fetchedAt := r.now()
	tok, err := r.conf.TokenSource(r.ctx, &oauth2.Token{RefreshToken: r.refreshToken}).Token()
	if err != nil {
		return nil, err
	}
	tok.Expiry = fetchedAt.Add(tokenLifetime)
	return tok, nil
}
