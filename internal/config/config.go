// Package config defines the process-wide configuration for the corporate
// billing service. Configuration is loaded once at startup and is immutable
// thereafter; sub-components receive only the specific subsets they require.
//
// Values are resolved from the OS environment, with a .env file as a
// development-time fallback. Any missing required value or invalid format
// fails startup immediately.
package config

import (
	"time"

	"corporate/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"corporate-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	Billing  BillingConfig
	Email    EmailConfig
}

// ServerConfig holds HTTP server and public URL configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// External URL of the web app, used to build redirect targets and the
	// support links embedded in notification emails (no trailing slash).
	ExternalURL string `envconfig:"EXTERNAL_URL" validate:"required,url"`
}

// DatabaseConfig holds connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// BillingConfig holds the billing feature flag, the seat-count signing
// secret, and the payment provider credentials.
type BillingConfig struct {
	// Enabled is the global kill switch; the render path 404s when false.
	Enabled bool `envconfig:"BILLING_ENABLED" default:"true"`

	// SigningSecret keys the seat-count HMAC. Read once at startup,
	// never rotated in-process.
	SigningSecret SecretString `envconfig:"SEAT_COUNT_SIGNING_SECRET" validate:"required,min=32"`

	// SupportEmail receives sponsorship requests and is shown to users in
	// contact-support error messages.
	SupportEmail string `envconfig:"BILLING_SUPPORT_EMAIL" validate:"required,email"`

	FreeTrialDays int `envconfig:"FREE_TRIAL_DAYS" default:"0"`

	StripeSecretKey SecretString `envconfig:"STRIPE_SECRET_KEY" validate:"required"`
}

// EmailConfig holds outbound email settings for the SES provider.
type EmailConfig struct {
	Region      string `envconfig:"AWS_REGION" default:"us-east-1"`
	FromAddress string `envconfig:"EMAIL_FROM_ADDRESS" validate:"required,email"`
	FromName    string `envconfig:"EMAIL_FROM_NAME" default:"Billing"`
}
