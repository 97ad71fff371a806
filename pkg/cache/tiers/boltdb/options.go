package boltdb

import (
	"github.com/benbjohnson/clock"
	"github.com/c2h5oh/datasize"
)

const (
	DefaultBucketName   = "cache"
	DefaultKeyPrefix    = "tiercache:"
	DefaultMaxValueSize = 5 * datasize.MB
)

type tierOptions struct {
	bucket       []byte
	prefix       string
	maxValueSize datasize.ByteSize
	clock        clock.Clock
}

func defaultTierOptions() *tierOptions {
	return &tierOptions{
		bucket:       []byte(DefaultBucketName),
		prefix:       DefaultKeyPrefix,
		maxValueSize: DefaultMaxValueSize,
		clock:        clock.New(),
	}
}

type Option func(*tierOptions)

// WithBucket sets the bolt bucket the tier stores its records in.
func WithBucket(name string) Option {
	return func(o *tierOptions) {
		o.bucket = []byte(name)
	}
}

// WithPrefix scopes the tier to keys starting with prefix. Clear only removes
// keys carrying it, so several tiers can share one bucket.
func WithPrefix(prefix string) Option {
	return func(o *tierOptions) {
		o.prefix = prefix
	}
}

// WithMaxValueSize caps the size of a single serialized record. Zero disables
// the cap.
func WithMaxValueSize(size datasize.ByteSize) Option {
	return func(o *tierOptions) {
		o.maxValueSize = size
	}
}

func WithClock(clk clock.Clock) Option {
	return func(o *tierOptions) {
		o.clock = clk
	}
}
