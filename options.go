package bookzip

import "log/slog"

type options struct {
	limits  Limits
	lookup  envLookup
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures an Archive.
type Option func(*options)

// WithMaxEntryCompressed overrides the per-entry compressed budget.
// Non-positive values leave the budget to the environment or the default.
func WithMaxEntryCompressed(n int64) Option {
	return func(o *options) { o.limits.MaxEntryCompressed = n }
}

// WithMaxEntryUncompressed overrides the per-entry uncompressed budget.
// Non-positive values leave the budget to the environment or the default.
func WithMaxEntryUncompressed(n int64) Option {
	return func(o *options) { o.limits.MaxEntryUncompressed = n }
}

// WithMaxArchiveUncompressed overrides the budget for all bytes read from
// one open archive. Non-positive values leave the budget to the environment
// or the default.
func WithMaxArchiveUncompressed(n int64) Option {
	return func(o *options) { o.limits.MaxArchiveUncompressed = n }
}

// WithLimits sets all three budgets at once. Zero fields are resolved as if
// the option were absent.
func WithLimits(l Limits) Option {
	return func(o *options) { o.limits = l }
}

// WithLogger sets a logger for the archive.
// If nil, a discard logger is used (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records archive activity on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// withEnv replaces the environment lookup; tests use it to avoid touching
// the process environment.
func withEnv(env map[string]string) Option {
	return func(o *options) {
		o.lookup = func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		}
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}
