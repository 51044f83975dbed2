package seqpack

import "log/slog"

type options struct {
	padValue         int32
	paddingSide      PaddingSide
	maxLeftoverBins  int
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Packer construction.
type Option func(*options)

// WithPadValue sets the token id used to pad InputIDs rows.
// It is also the value stripped when depadding rows without an attention mask.
// Default: 0.
func WithPadValue(v int32) Option {
	return func(o *options) {
		o.padValue = v
	}
}

// WithPaddingSide sets the side pad tokens are placed on. Default: PaddingRight.
func WithPaddingSide(side PaddingSide) Option {
	return func(o *options) {
		o.paddingSide = side
	}
}

// WithMaxLeftoverBins caps the number of leftover bins carried across calls.
// The oldest bins are kept; tokens in discarded bins are counted as dropped.
// A negative value means unlimited (the default). Zero discards every bin that
// was not emitted.
func WithMaxLeftoverBins(n int) Option {
	return func(o *options) {
		o.maxLeftoverBins = n
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &seqpack.BasicMetricsCollector{Target: 8}
//	p, _ := seqpack.NewPacker(2048, 8, seqpack.WithMetricsCollector(metrics))
//	// ... pack batches ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		paddingSide:      PaddingRight,
		maxLeftoverBins:  -1,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
