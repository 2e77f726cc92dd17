package config

import (
	"strings"
	"time"
)

// EngineConfig contains restore engine client configuration.
type EngineConfig struct {
	// BaseURL is the engine API root.
	BaseURL string `env:"ENGINE_BASE_URL" envDefault:"http://localhost:8500"`

	// Token is sent as a bearer token on engine requests.
	Token string `env:"ENGINE_TOKEN" envDefault:""`

	// Timeout bounds a single engine API request.
	Timeout time.Duration `env:"ENGINE_TIMEOUT" envDefault:"30s"`

	// PollInterval is how often a blocking execute polls for progress.
	PollInterval time.Duration `env:"ENGINE_POLL_INTERVAL" envDefault:"2s"`
}

// Sanitize applies guardrails to engine configuration values.
func (c *EngineConfig) Sanitize() {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.PollInterval < 500*time.Millisecond {
		c.PollInterval = 500 * time.Millisecond
	}
}
