package memcube

import (
	"log/slog"

	"github.com/hupe1980/memcube/codec"
	"github.com/hupe1980/memcube/llm"
	"github.com/hupe1980/memcube/reader"
	"github.com/hupe1980/memcube/resource"
)

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	generator        llm.Generator
	reader           reader.Reader
	governor         *resource.Governor
	defaultTopK      int
	compress         bool
}

// Option configures Store constructor behavior.
type Option func(*options)

// WithCodec configures the codec used for snapshot record tables.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithGenerator configures the text-generation capability used by the
// extraction pipeline. Without a generator, extraction keeps chunked text
// verbatim instead of distilling facts.
func WithGenerator(g llm.Generator) Option {
	return func(o *options) {
		o.generator = g
	}
}

// WithReader replaces the extraction pipeline entirely. Takes precedence
// over WithGenerator.
func WithReader(r reader.Reader) Option {
	return func(o *options) {
		o.reader = r
	}
}

// WithGovernor bounds concurrency, rate, and latency of outbound
// embedder/model calls. Pass nil to disable limiting.
func WithGovernor(g *resource.Governor) Option {
	return func(o *options) {
		o.governor = g
	}
}

// WithDefaultTopK sets the per-cube result budget used when a search does
// not specify k.
func WithDefaultTopK(k int) Option {
	return func(o *options) {
		o.defaultTopK = k
	}
}

// WithoutCompression disables zstd compression of snapshot record tables.
func WithoutCompression() Option {
	return func(o *options) {
		o.compress = false
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
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
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		defaultTopK:      DefaultTopK,
		compress:         true,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
