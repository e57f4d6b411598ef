package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/xoslabs/workforce/internal/estimate"
	"github.com/xoslabs/workforce/internal/telemetry"
)

// Load reads the .env file specified by WORKFORCE_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// Flat settings are read via os.Getenv after loading; grouped settings are
// decoded with envconfig.
func Load() error {
	envFile := os.Getenv("WORKFORCE_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// NotifyChannel is the Postgres channel events are announced on.
func NotifyChannel() string {
	ch := os.Getenv("NOTIFY_CHANNEL")
	if ch == "" {
		return "new_event"
	}
	return ch
}

// Process decodes a tagged settings struct from the environment.
func Process[T any]() (T, error) {
	var cfg T
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Workforce holds the approval, processing and follow-up settings.
type Workforce struct {
	FollowDays   int `envconfig:"QUOTE_FOLLOW_DAYS" default:"3"`
	MaxFollowups int `envconfig:"QUOTE_MAX_FOLLOWUPS" default:"3"`

	ProcessorInterval time.Duration `envconfig:"PROCESSOR_INTERVAL" default:"60s"`
	// ProcessorIntervalMS overrides ProcessorInterval when set.
	ProcessorIntervalMS int           `envconfig:"PROCESSOR_INTERVAL_MS"`
	RequireApproval     bool          `envconfig:"PROCESSOR_REQUIRE_APPROVAL" default:"true"`
	ClaimLease          time.Duration `envconfig:"PROCESSOR_CLAIM_LEASE" default:"5m"`

	FollowupAgent string `envconfig:"FOLLOWUP_AGENT_CODE_NAME" default:"SUZIE"`
	FollowupCron  string `envconfig:"FOLLOWUP_CRON" default:"0 6 * * *"`
}

func LoadWorkforce() (Workforce, error) {
	cfg, err := Process[Workforce]()
	if err != nil {
		return cfg, err
	}
	if cfg.ProcessorIntervalMS > 0 {
		cfg.ProcessorInterval = time.Duration(cfg.ProcessorIntervalMS) * time.Millisecond
	}
	if cfg.FollowDays <= 0 {
		return cfg, fmt.Errorf("config: QUOTE_FOLLOW_DAYS must be positive, got %d", cfg.FollowDays)
	}
	if cfg.MaxFollowups <= 0 {
		return cfg, fmt.Errorf("config: QUOTE_MAX_FOLLOWUPS must be positive, got %d", cfg.MaxFollowups)
	}
	if cfg.ProcessorInterval <= 0 {
		return cfg, fmt.Errorf("config: processor interval must be positive, got %s", cfg.ProcessorInterval)
	}
	return cfg, nil
}

func LoadEstimate() (estimate.Config, error) {
	return Process[estimate.Config]()
}

func LoadTelemetry() (telemetry.Config, error) {
	return Process[telemetry.Config]()
}
