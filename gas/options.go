package gas

import "log/slog"

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	maxSupersteps int
	mode          Mode
	codec         any
	syncers       []periodicSync
	metrics       bool
}

type periodicSync struct {
	s     Syncer
	every int
}

func defaultOptions() options {
	return options{
		logger:  slog.Default(),
		mode:    ModeSync,
		metrics: true,
	}
}

// WithLogger sets the engine logger. nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxSupersteps bounds the run; 0 means unbounded.
func WithMaxSupersteps(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.maxSupersteps = n
	}
}

// WithMode selects the scheduling mode. Only ModeSync is executable.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithCodec makes the engine serialize partial accumulators shipped between
// partitions through c.
func WithCodec[A any](c Codec[A]) Option {
	return func(o *options) { o.codec = c }
}

// WithAggregator runs s.Sync after every `every` supersteps and once more
// when the run halts. every <= 0 syncs only at the end.
func WithAggregator(s Syncer, every int) Option {
	return func(o *options) {
		if s != nil {
			o.syncers = append(o.syncers, periodicSync{s: s, every: every})
		}
	}
}

// WithMetrics toggles prometheus recording (default on).
func WithMetrics(on bool) Option {
	return func(o *options) { o.metrics = on }
}
