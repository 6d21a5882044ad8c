package mdstream

import "pkt.systems/pslog"

// SessionOption configures optional session behavior.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	logger pslog.Logger
	id     string
}

// WithLogger sets the logger used for session diagnostics. The session adds a
// "session" field carrying its id.
func WithLogger(logger pslog.Logger) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.logger = logger
	}
}

// WithID overrides the generated session id.
func WithID(id string) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.id = id
	}
}
