package cfgloader

// Options holds configuration options for MustLoad.
type Options struct {
	// Silent disables printing the loaded config.
	Silent bool
}

// Option is a functional option for configuring MustLoad behavior.
type Option func(*Options)

// WithSilent disables printing the loaded config.
func WithSilent() Option {
	return func(o *Options) {
		o.Silent = true
	}
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
