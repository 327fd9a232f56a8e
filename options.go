package zmqbridge

// contextConfig holds the resolved configuration for a [Context].
type contextConfig struct {
	name   string
	logger Logger
}

// ContextOption configures a [Context] at construction, via [NewContext].
type ContextOption interface {
	applyContext(*contextConfig)
}

type contextOptionFunc func(*contextConfig)

func (f contextOptionFunc) applyContext(c *contextConfig) { f(c) }

// WithName sets the [Context]'s diagnostic name, attached to every log line
// it emits. Defaults to a generated "zmqbridge-<n>" if unset.
func WithName(name string) ContextOption {
	return contextOptionFunc(func(c *contextConfig) {
		c.name = name
	})
}

// WithLogger overrides the [Logger] used by a [Context]. Defaults to
// [NewDefaultLogger]. Passing a nil logger is equivalent to omitting the
// option.
func WithLogger(logger Logger) ContextOption {
	return contextOptionFunc(func(c *contextConfig) {
		if logger != nil {
			c.logger = logger
		}
	})
}

func resolveContextConfig(opts []ContextOption) *contextConfig {
	cfg := &contextConfig{logger: defaultLogger()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyContext(cfg)
	}
	return cfg
}
