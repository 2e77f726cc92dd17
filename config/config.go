// Package config loads application configuration from environment
// variables using github.com/caarlos0/env.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeRestoreRunner runs the restore task runner.
	ServiceModeRestoreRunner ServiceMode = "restore-runner"
	// ServiceModeCompletionListener runs the completion event listener.
	ServiceModeCompletionListener ServiceMode = "completion-listener"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files:
//   - database.go: Postgres and Redis configuration
//   - http.go: HTTP server configuration
//   - callback.go: callback dispatcher configuration
//   - engine.go: restore engine client configuration
//   - archive.go: archive store configuration
//   - runner.go: restore runner configuration
//   - observability.go: metrics configuration
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, debug level).
	IsDev bool `env:"DEV" envDefault:"false"`

	// Services is a comma-delimited list of enabled services.
	// Valid values: http, restore-runner, completion-listener
	Services string `env:"SERVICES" envDefault:"http"`

	// WorkRoot is where restore working directories are created.
	WorkRoot string `env:"WORK_ROOT" envDefault:"/var/lib/courserestore/work"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP          HTTPConfig
	Callback      CallbackConfig
	Engine        EngineConfig
	Archive       ArchiveConfig
	Runner        RunnerConfig
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.WorkRoot = strings.TrimSpace(c.WorkRoot)
	c.Callback.Sanitize()
	c.Engine.Sanitize()
	c.Archive.Sanitize()
	c.Runner.Sanitize()
	c.Observability.Sanitize()
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	return c.serviceEnabled(ServiceModeHTTP)
}

// IsRestoreRunnerEnabled returns true if the restore runner service is enabled.
func (c *AppConfig) IsRestoreRunnerEnabled() bool {
	return c.serviceEnabled(ServiceModeRestoreRunner)
}

// IsCompletionListenerEnabled returns true if the completion listener service is enabled.
func (c *AppConfig) IsCompletionListenerEnabled() bool {
	return c.serviceEnabled(ServiceModeCompletionListener)
}

func (c *AppConfig) serviceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeRestoreRunner, ServiceModeCompletionListener:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, restore-runner, completion-listener)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}
