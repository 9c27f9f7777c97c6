// Package alert reports internal errors to the Sentinel alerting service.
//
// Handlers and HTTP routes do not call a Provider directly: they pass the
// error to Notify, which drops non-internal errors, collects the request
// metadata and sends the alert in the background.
package alert

import (
	"context"
	"time"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/actionrpc/meta"
	"github.com/rise-and-shine/actionrpc/observability/logger"
)

// Config configures the alert provider.
type Config struct {
	// Disable turns every alert into a no-op.
	Disable bool `yaml:"disable" default:"false"`

	SentinelHost string `yaml:"sentinel_host" validate:"required_unless=Disable true"`
	SentinelPort int    `yaml:"sentinel_port" validate:"required_unless=Disable true"`

	// SendTimeout bounds one alert delivery.
	SendTimeout time.Duration `yaml:"send_timeout" default:"3s"`

	// Cooldown suppresses repeated alerts with the same operation and code.
	// Zero disables suppression.
	Cooldown time.Duration `yaml:"cooldown" validate:"gte=0" default:"5m"`
}

// Provider delivers error alerts.
type Provider interface {
	// SendError reports one error. operation names what failed, for example
	// "handle demo.greet" or "POST /rpc/dispatch".
	SendError(ctx context.Context, errCode, msg, operation string, details map[string]string) error

	Close() error
}

// NewProvider returns the provider described by cfg: a no-op one when
// disabled, otherwise a Sentinel client behind the configured cooldown.
func NewProvider(cfg Config, serviceName, serviceVersion string) (Provider, error) {
	if cfg.Disable {
		return NewNop(), nil
	}

	sp, err := NewSentinelProvider(cfg, serviceName, serviceVersion)
	if err != nil {
		return nil, err
	}
	if cfg.Cooldown == 0 {
		return sp, nil
	}
	return WithCooldown(sp, cfg.Cooldown), nil
}

type nopProvider struct{}

// NewNop returns a provider that drops every alert.
func NewNop() Provider { return nopProvider{} }

func (nopProvider) SendError(context.Context, string, string, string, map[string]string) error {
	return nil
}

func (nopProvider) Close() error { return nil }

const notifyTimeout = 3 * time.Second

// Notify reports err through p in the background when it is an internal
// error; other error types are expected outcomes and are ignored. Metadata
// of ctx and the error trace travel as details. Delivery failures are logged
// with log.
func Notify(ctx context.Context, p Provider, log logger.Logger, operation string, err error) {
	if err == nil {
		return
	}
	e := errx.AsErrorX(err)
	if e.Type() != errx.T_Internal {
		return
	}

	details := map[string]string{"error_trace": e.Trace()}
	for k, v := range meta.ExtractMetaFromContext(ctx) {
		details[string(k)] = v
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	go func() {
		defer cancel()

		if sendErr := p.SendError(sendCtx, e.Code(), e.Error(), operation, details); sendErr != nil {
			log.WithContext(ctx).With("operation", operation).Warnx(sendErr)
		}
	}()
}
