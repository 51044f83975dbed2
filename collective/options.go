package collective

import (
	"log/slog"
	"time"

	"github.com/hupe1980/seqpack/codec"
)

// DefaultPollInterval is the default interval between rendezvous polls.
const DefaultPollInterval = 200 * time.Millisecond

type options struct {
	prefix       string
	codec        codec.Codec
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a StoreGatherer.
type Option func(*options)

// WithPrefix places rendezvous blobs under prefix. Default: "collective".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithCodec sets the codec for contributions. Default: codec.Default.
// Every rank of a run must use the same codec.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithPollInterval sets the minimum interval between listings.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		prefix:       "collective",
		codec:        codec.Default,
		pollInterval: DefaultPollInterval,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}
