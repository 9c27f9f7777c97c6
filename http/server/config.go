package server

import (
	"net"
	"strconv"
	"time"
)

// Config defines configuration options for the HTTP server.
type Config struct {
	// HideErrorDetails omits error traces and details from responses.
	HideErrorDetails bool `yaml:"hide_error_details"`

	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required,gt=0,lte=65535"`

	ReadTimeout  time.Duration `yaml:"read_timeout"  validate:"required" default:"5s"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"required" default:"65s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"  validate:"required" default:"120s"`

	// HandleTimeout bounds a single request. Long-poll checks are bounded by
	// their own wait limit and must stay below it.
	HandleTimeout time.Duration `yaml:"handle_timeout" validate:"required" default:"60s"`

	// BodyLimit is the maximum request body size in bytes. Default is 4MB.
	BodyLimit int `yaml:"body_limit" validate:"required" default:"4194304"`
}

// Address returns the listen address in the form "host:port".
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
