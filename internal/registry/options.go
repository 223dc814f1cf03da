package registry

import "log/slog"

// FailurePolicy decides what happens to an optimistic value when the
// remote write behind it fails.
type FailurePolicy int

const (
	// KeepTentative leaves the optimistic value in place. Local state may
	// diverge from the remote until the next event for that entity.
	KeepTentative FailurePolicy = iota

	// Rollback restores the prior value unless an event replaced the
	// entity while the write was outstanding.
	Rollback
)

func (p FailurePolicy) String() string {
	if p == Rollback {
		return "rollback"
	}
	return "keep-tentative"
}

type options struct {
	logger *slog.Logger
	policy FailurePolicy
}

// Option configures a registry.
type Option func(*options)

// WithLogger sets the logger used to report remote failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFailurePolicy sets the policy applied when an optimistic write fails.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(o *options) { o.policy = p }
}

func buildOptions(opts []Option) options {
	o := options{policy: KeepTentative}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
