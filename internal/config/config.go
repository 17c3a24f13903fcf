package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config represents the application configuration structure
type Config struct {
	Environment string `split_words:"true" default:"dev"`

	// BackendBaseURL is the base URL of the pension consultant backend API
	BackendBaseURL string `split_words:"true" default:"http://localhost:8000"`

	// BackendUsername and BackendPassword are the process-level service
	// credentials used in 'process' identity scope
	BackendUsername string `split_words:"true" default:"manager"`
	BackendPassword string `split_words:"true" default:""`

	// IdentityScope selects how bearer tokens are cached: 'process' keeps one
	// shared token for the whole bot, 'per_user' keeps one token per external
	// user identity
	IdentityScope string `split_words:"true" default:"process"`

	HTTPTimeout     time.Duration `split_words:"true" default:"120s"`
	TaskTimeout     time.Duration `split_words:"true" default:"300s"`
	PollMinInterval time.Duration `split_words:"true" default:"2s"`
	PollMaxInterval time.Duration `split_words:"true" default:"10s"`

	// SessionLifetime controls how long an idle conversation session is kept
	// in the in-memory session store
	SessionLifetime time.Duration `split_words:"true" default:"1h"`

	// StubListenAddress is the listen address of the development stub backend
	StubListenAddress string `split_words:"true" default:":8000"`
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()

	// Load a new configuration structure using environment variables
	config := new(Config)
	if err := envconfig.Process("pc", config); err != nil {
		return nil, err
	}
	return config, nil
}

// IsEnvProduction returns whether the application runs in production mode
func (config *Config) IsEnvProduction() bool {
	return config.Environment == "production" || config.Environment == "prod"
}
