package config

import (
	"strings"
	"time"
)

// CallbackConfig contains callback dispatcher configuration.
type CallbackConfig struct {
	// HeaderName and HeaderValue form the authentication header sent on
	// every callback request. Both must be set together.
	HeaderName  string `env:"CALLBACK_HEADER_NAME"  envDefault:""`
	HeaderValue string `env:"CALLBACK_HEADER_VALUE" envDefault:""`

	// Timeout bounds a callback request end to end.
	Timeout time.Duration `env:"CALLBACK_TIMEOUT" envDefault:"10s"`

	// MaxAcceptedStatus is the first HTTP status treated as a delivery
	// failure; anything below it counts as delivered.
	MaxAcceptedStatus int `env:"CALLBACK_MAX_ACCEPTED_STATUS" envDefault:"400"`

	// RequireAuth refuses callback restores unless the header pair is set.
	RequireAuth bool `env:"CALLBACK_REQUIRE_AUTH" envDefault:"true"`
}

// Sanitize applies guardrails to callback configuration values.
func (c *CallbackConfig) Sanitize() {
	c.HeaderName = strings.TrimSpace(c.HeaderName)
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxAcceptedStatus < 200 {
		c.MaxAcceptedStatus = 400
	}
}
