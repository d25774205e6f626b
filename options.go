package geostore

type options struct {
	logger *Logger
}

// Option configures Workspace open behavior.
type Option func(*options)

// WithLogger sets the logger used by the workspace and every entity
// created through it. If nil is passed, logging is disabled.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}
