package checkpoint

import (
	"github.com/hupe1980/seqpack/codec"
	"github.com/hupe1980/seqpack/internal/compress"
)

// Compression selects the algorithm applied to checkpoint payloads.
type Compression = compress.Type

const (
	// CompressionNone stores payloads as is.
	CompressionNone = compress.None
	// CompressionLZ4 is fast block compression.
	CompressionLZ4 = compress.LZ4
	// CompressionZSTD gives a better ratio at a higher CPU cost.
	CompressionZSTD = compress.ZSTD
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) { return compress.Parse(s) }

type options struct {
	prefix      string
	codec       codec.Codec
	compression compress.Type
}

// Option configures a checkpoint Store.
type Option func(*options)

// WithPrefix places checkpoints under prefix (for example "worker-3/").
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithCodec sets the codec used for new checkpoints. Default: codec.Default.
// Existing checkpoints are decoded with the codec named in their header.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithCompression sets the compression used for new checkpoints.
// Default: CompressionLZ4.
func WithCompression(t Compression) Option {
	return func(o *options) {
		o.compression = t
	}
}
