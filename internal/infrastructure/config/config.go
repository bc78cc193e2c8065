package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	defaultAppMode    = "dev"
	defaultAppPort    = ":8080"
	defaultAppHost    = "http://localhost:8080"
	defaultAppTimeout = 60 * time.Second
)

type Config struct {
	App       AppConfig
	Store     StoreConfig
	Redis     RedisConfig
	Session   SessionConfig
	Tenant    TenantConfig
	Billing   BillingConfig
	Gateway   GatewayConfig
	Scheduler SchedulerConfig
	NATS      NATSConfig
	RabbitMQ  RabbitMQConfig
	CORS      CORSConfig
	Seed      SeedConfig
}

type AppConfig struct {
	Mode    string
	Port    string
	Host    string
	Timeout time.Duration
}

type StoreConfig struct {
	DSN string `required:"true"`
}

type RedisConfig struct {
	URL string
}

type SessionConfig struct {
	Secret   string        `required:"true"`
	TokenTTL time.Duration `default:"12h"`
	Issuer   string        `default:"retail-service"`
}

type TenantConfig struct {
	TaxRateDefault  string `default:"0.16" split_words:"true"`
	CurrencyDefault string `default:"KES" split_words:"true"`
	TrialPeriodDays int    `default:"14" split_words:"true"`
	// GracePeriodDays is recognized configuration like MaxUsers on the
	// tenant: accepted but not applied anywhere in the core. The expiry
	// scheduler transitions lapsed tenants unconditionally.
	GracePeriodDays int `default:"3" split_words:"true"`
	TimezoneDefault string `default:"Africa/Nairobi" split_words:"true"`
}

type BillingConfig struct {
	// BaseMonthlyPrice is the per-location monthly price in currency units
	// with two decimal places.
	BaseMonthlyPrice string `default:"2000" split_words:"true"`
	// BranchRate is the fraction of the base charged per additional branch.
	BranchRate string `default:"0.8" split_words:"true"`
}

type GatewayConfig struct {
	BaseURL       string        `default:"https://api.payflow.example" split_words:"true"`
	Secret        string        `required:"true"`
	Public        string
	WebhookSecret string        `required:"true" split_words:"true"`
	CallbackURL   string        `split_words:"true"`
	Timeout       time.Duration `default:"10s"`
}

type SchedulerConfig struct {
	// DailyTime is HH:MM in UTC.
	DailyTime string `default:"09:00" split_words:"true"`
	Embedded  bool   `default:"true"`
}

type NATSConfig struct {
	URL        string
	Subject    string `default:"retail.billing"`
	StreamName string `default:"RETAIL_BILLING" split_words:"true"`
}

type RabbitMQConfig struct {
	URL   string
	Queue string `default:"retail.receipts"`
}

type CORSConfig struct {
	Origins string `default:"*"`
}

type SeedConfig struct {
	Demo bool `default:"false"`
}

// New loads configuration from the environment, honoring an optional .env
// file in the working directory.
func New() (*Config, error) {
	cfg := &Config{}

	root, err := os.Getwd()
	if err != nil {
		return cfg, fmt.Errorf("unable to get working directory: %w", err)
	}

	envPath := filepath.Join(root, ".env")
	if _, statErr := os.Stat(envPath); statErr == nil {
		if loadErr := godotenv.Load(envPath); loadErr != nil {
			return cfg, fmt.Errorf("failed to load env file %s: %w", envPath, loadErr)
		}
	} else if !os.IsNotExist(statErr) {
		return cfg, fmt.Errorf("failed to stat env file %s: %w", envPath, statErr)
	}

	cfg.App = AppConfig{
		Mode:    defaultAppMode,
		Port:    defaultAppPort,
		Host:    defaultAppHost,
		Timeout: defaultAppTimeout,
	}

	targets := map[string]interface{}{
		"APP":       &cfg.App,
		"POSTGRES":  &cfg.Store,
		"REDIS":     &cfg.Redis,
		"SESSION":   &cfg.Session,
		"TENANT":    &cfg.Tenant,
		"BILLING":   &cfg.Billing,
		"GATEWAY":   &cfg.Gateway,
		"SCHEDULER": &cfg.Scheduler,
		"NATS":      &cfg.NATS,
		"RABBITMQ":  &cfg.RabbitMQ,
		"CORS":      &cfg.CORS,
		"SEED":      &cfg.Seed,
	}

	for p, target := range targets {
		if procErr := envconfig.Process(p, target); procErr != nil {
			return cfg, fmt.Errorf("failed to process env for %s: %w", p, procErr)
		}
	}

	if _, _, err := cfg.Scheduler.FireTime(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// FireTime parses DailyTime into UTC hour and minute.
func (s SchedulerConfig) FireTime() (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s.DailyTime), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid scheduler daily time %q, want HH:MM", s.DailyTime)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid scheduler hour in %q", s.DailyTime)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid scheduler minute in %q", s.DailyTime)
	}
	return hour, minute, nil
}

// AllowedOrigins splits the configured CORS origins, trimming whitespace.
func (c CORSConfig) AllowedOrigins() []string {
	raw := strings.Split(c.Origins, ",")
	origins := make([]string, 0, len(raw))
	for _, o := range raw {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
