package matcher

import "github.com/rs/zerolog"

const (
	DEFAULT_MAX_DEPTH              = 64
	DEFAULT_CONFORMANCE_CACHE_SIZE = 256
)

// Options configures a Matcher, zero fields are replaced by the defaults.
type Options struct {
	//Maximum depth of nested matches, deeper matches fail with RecursionLimit.
	MaxDepth int

	//Maximum number of cached results of checks against protocols without type parameters.
	ConformanceCacheSize int

	//The zero value logs nothing. Events are debug information, never user-facing messages.
	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DEFAULT_MAX_DEPTH
	}
	if o.ConformanceCacheSize <= 0 {
		o.ConformanceCacheSize = DEFAULT_CONFORMANCE_CACHE_SIZE
	}
	return o
}
