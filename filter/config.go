package filter

import (
	"time"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/actionrpc/action"
)

// Batching modes accepted by BatchingConfig.
const (
	ModeImmediate = "immediate"
	ModeDeferred  = "deferred"
	ModeDelayed   = "delayed"
)

// BatchingConfig selects the flush policy of a Batching filter.
type BatchingConfig struct {
	// Mode is one of "immediate", "deferred" or "delayed". Default is "deferred".
	Mode string `yaml:"mode" validate:"oneof=immediate deferred delayed" default:"deferred"`

	// Delay is the flush delay of the "delayed" mode. Default is 10ms.
	Delay time.Duration `yaml:"delay" validate:"gte=0" default:"10ms"`

	// MaxBatchSize flushes early once that many actions are queued. Zero disables it.
	MaxBatchSize int `yaml:"max_batch_size" validate:"gte=0"`
}

// Scheduler builds the scheduler for the configured mode.
func (c BatchingConfig) Scheduler() (Scheduler, error) {
	switch c.Mode {
	case ModeImmediate:
		return Immediate(), nil
	case ModeDeferred, "":
		return Deferred(), nil
	case ModeDelayed:
		return Delayed(c.Delay)
	default:
		return nil, errx.New("unknown batching mode",
			errx.WithCode(action.CodeInvalidFilter),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"mode": c.Mode}),
		)
	}
}

// NewBatchingFromConfig builds a Batching filter from cfg.
func NewBatchingFromConfig(cfg BatchingConfig, opts ...Option) (*Batching, error) {
	scheduler, err := cfg.Scheduler()
	if err != nil {
		return nil, err
	}
	return NewBatching(scheduler, append(opts, WithMaxBatchSize(cfg.MaxBatchSize))...), nil
}
