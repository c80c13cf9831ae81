package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"coachai/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	AWS           AWSConfig
	Agent         AgentConfig
	Stacks        StackConfig
	Gateway       GatewayConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"healthmate-coachai"`
	Env      string `envconfig:"HEALTHMATE_ENV" default:"dev"`
	LogLevel string `envconfig:"HEALTHMATE_LOG_LEVEL"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
}

type ServerConfig struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-west-2"`
}

// AgentConfig holds the runtime identifiers the agent depends on. Each field
// is optional here: missing values fall back to infrastructure stack outputs
// through the Resolver, and only after both sources miss does startup fail.
type AgentConfig struct {
	GatewayID    string `envconfig:"HEALTHMANAGER_GATEWAY_ID"`
	MemoryID     string `envconfig:"BEDROCK_AGENTCORE_MEMORY_ID"`
	ModelID      string `envconfig:"HEALTHMATE_AI_MODEL"`
	ProviderName string `envconfig:"AGENTCORE_PROVIDER_NAME"`
	Scope        string `envconfig:"AGENTCORE_COGNITO_SCOPE" default:"healthmanager/invoke"`
}

type StackConfig struct {
	HealthStack string `envconfig:"HEALTH_STACK_NAME" default:"HealthManagerMCPStack"`
	AgentStack  string `envconfig:"COACHAI_STACK_NAME" default:"HealthmateCoachAIStack"`
}

type GatewayConfig struct {
	Timeout           time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"30s"`
	RequestsPerMinute int           `envconfig:"GATEWAY_REQUESTS_PER_MINUTE" default:"120"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
