package rpc

import "time"

// Config configures the rpc routes.
type Config struct {
	// DefaultWait is how long a check parks when the request sets no wait.
	DefaultWait time.Duration `yaml:"default_wait" validate:"gt=0" default:"25s"`

	// MaxWait caps the wait a client may ask for. Keep it below the
	// server's handle timeout.
	MaxWait time.Duration `yaml:"max_wait" validate:"gtefield=DefaultWait" default:"50s"`
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL of the rpc server, e.g. "http://localhost:8080".
	BaseURL string `yaml:"base_url" validate:"required,url"`

	// Timeout bounds one HTTP round trip. Checks add their wait on top.
	Timeout time.Duration `yaml:"timeout" validate:"gt=0" default:"10s"`

	// RetryAttempts is the total number of attempts for transport failures.
	RetryAttempts uint `yaml:"retry_attempts" validate:"gte=1" default:"3"`

	// RetryDelay is the base delay between attempts.
	RetryDelay time.Duration `yaml:"retry_delay" default:"100ms"`

	// BreakerMaxFailures opens the circuit after that many consecutive
	// transport failures. Zero disables the breaker.
	BreakerMaxFailures uint32 `yaml:"breaker_max_failures" default:"5"`

	// BreakerOpenTimeout is how long an open circuit rejects calls before a
	// probe is let through.
	BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout" default:"30s"`
}
