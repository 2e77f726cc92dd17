package config

import "time"

// RunnerConfig contains restore runner service configuration.
type RunnerConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int `env:"RESTORE_RUNNER_CONCURRENCY" envDefault:"1"`

	// TaskLease is the duration to lease a restore task. Engine restores
	// are long-running, so the default is generous.
	TaskLease time.Duration `env:"RESTORE_RUNNER_TASK_LEASE" envDefault:"10m"`

	// RetryDelay is the delay before a failed task becomes runnable again
	// (only relevant when a task has retries configured).
	RetryDelay time.Duration `env:"RESTORE_RUNNER_RETRY_DELAY" envDefault:"30s"`
}

// Sanitize applies guardrails to runner configuration values.
func (c *RunnerConfig) Sanitize() {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.TaskLease < 30*time.Second {
		c.TaskLease = 30 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
}
