// Package cache provides options for the Redis answer cache.
package cache

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/lectern/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the query answer cache. The cache shares the
// server's Redis connection options.
type Options struct {
	// Enabled turns the cache on.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL is the cache entry lifetime.
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix prefixes all cache keys.
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`
}

// NewOptions creates cache options with defaults. The cache is disabled
// by default.
func NewOptions() *Options {
	return &Options{
		Enabled:   false,
		TTL:       time.Hour,
		KeyPrefix: "lectern:query:",
	}
}

// AddFlags adds cache flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "cache."
	fs.BoolVar(&o.Enabled, prefix+"enabled", o.Enabled, "Enable the query answer cache")
	fs.DurationVar(&o.TTL, prefix+"ttl", o.TTL, "Cache entry lifetime")
	fs.StringVar(&o.KeyPrefix, prefix+"key-prefix", o.KeyPrefix, "Cache key prefix")
}

// Validate checks the cache options.
func (o *Options) Validate() []error {
	var errs []error
	if !o.Enabled {
		return errs
	}
	if o.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive, got %s", o.TTL))
	}
	if o.KeyPrefix == "" {
		errs = append(errs, fmt.Errorf("cache.key-prefix must not be empty"))
	}
	return errs
}
