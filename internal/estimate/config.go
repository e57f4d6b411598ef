package estimate

import "time"

// Config is decoded from the environment with envconfig.
type Config struct {
	Provider     string        `envconfig:"ESTIMATE_PROVIDER" default:"zoho"`
	APIURL       string        `envconfig:"ZOHO_API_URL" default:"https://books.zoho.com/api"`
	AccountsURL  string        `envconfig:"ZOHO_ACCOUNTS_URL" default:"https://accounts.zoho.com"`
	OrgID        string        `envconfig:"ZOHO_ORG_ID"`
	AuthToken    string        `envconfig:"ZOHO_AUTH_TOKEN"`
	ClientID     string        `envconfig:"ZOHO_CLIENT_ID"`
	ClientSecret string        `envconfig:"ZOHO_CLIENT_SECRET"`
	RefreshToken string        `envconfig:"ZOHO_REFRESH_TOKEN"`
	MaxAttempts  int           `envconfig:"ESTIMATE_MAX_ATTEMPTS" default:"3"`
	RetryDelay   time.Duration `envconfig:"ESTIMATE_RETRY_DELAY" default:"2s"`
	Timeout      time.Duration `envconfig:"ESTIMATE_HTTP_TIMEOUT" default:"15s"`
}
