/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Config holds the sturdyc settings of the read cache.
type Config struct {
	// Capacity is the maximum number of cached result sets.
	Capacity int `yaml:"capacity"`

	// NumShards trades memory for less lock contention. Default: 64
	NumShards int `yaml:"numShards"`

	// TTL bounds how long a result set is served without a change
	// notification invalidating it.
	TTL time.Duration `yaml:"ttl"`

	// EvictionPercentage is the share of entries dropped when Capacity is
	// reached. Must be between 1 and 100.
	EvictionPercentage int `yaml:"evictionPercentage"`

	// EvictionInterval sets how often expired entries are swept. Zero uses the
	// sturdyc default.
	EvictionInterval time.Duration `yaml:"evictionInterval"`
}

// DefaultConfig returns a Config suitable for a single process.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// Validate checks that the configuration can build a cache.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
}

func (c Config) sturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}
