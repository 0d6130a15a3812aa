/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/suparena/livestore/cache"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
	DriverMemory   = "memory"
)

// Config is the root configuration of a store.
type Config struct {
	Driver   string         `yaml:"driver"`
	LogLevel string         `yaml:"logLevel"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	Cache    CacheConfig    `yaml:"cache"`
	Live     LiveConfig     `yaml:"live"`
}

// SQLiteConfig holds database settings for the sqlite driver.
type SQLiteConfig struct {
	Path string `yaml:"path"`
	// Schema is an optional file of DDL statements applied on open.
	Schema string `yaml:"schema,omitempty"`
}

// DynamoDBConfig holds settings for the dynamodb driver. Credentials are
// optional; the default AWS chain is used when they are empty.
type DynamoDBConfig struct {
	Region       string        `yaml:"region"`
	Endpoint     string        `yaml:"endpoint,omitempty"`
	AccessKey    string        `yaml:"accessKey,omitempty"`
	SecretKey    string        `yaml:"secretKey,omitempty"`
	KeyAttribute string        `yaml:"keyAttribute"`
	PageSize     int32         `yaml:"pageSize"`
	MaxRetries   int           `yaml:"maxRetries"`
	RetryBackoff time.Duration `yaml:"retryBackoff"`
}

// CacheConfig enables the read cache in front of the driver.
type CacheConfig struct {
	Enabled      bool `yaml:"enabled"`
	cache.Config `yaml:",inline"`
}

// LiveConfig holds defaults applied to every live query.
type LiveConfig struct {
	BufferSize   int           `yaml:"bufferSize"`
	MaxRetries   int           `yaml:"maxRetries"`
	RetryBackoff time.Duration `yaml:"retryBackoff"`
}

// Default returns a configuration for a local SQLite file.
func Default() *Config {
	return &Config{
		Driver:   DriverSQLite,
		LogLevel: "info",
		SQLite:   SQLiteConfig{Path: "./livestore.db"},
		DynamoDB: DynamoDBConfig{
			KeyAttribute: "id",
			PageSize:     100,
			MaxRetries:   3,
			RetryBackoff: time.Second,
		},
		Cache: CacheConfig{Config: cache.DefaultConfig()},
		Live:  LiveConfig{RetryBackoff: 100 * time.Millisecond},
	}
}

// LoadFromPath reads a YAML file over the defaults.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// applyDefaults fills fields an explicit zero in the file would break.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Driver == "" {
		c.Driver = def.Driver
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.DynamoDB.KeyAttribute == "" {
		c.DynamoDB.KeyAttribute = def.DynamoDB.KeyAttribute
	}
	if c.DynamoDB.PageSize <= 0 {
		c.DynamoDB.PageSize = def.DynamoDB.PageSize
	}
	if c.Cache.Enabled && c.Cache.NumShards == 0 {
		c.Cache.NumShards = def.Cache.NumShards
	}
}

// Validate checks the settings of the selected driver and of the cache when
// it is enabled.
func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverDynamoDB, DriverMemory)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	); err != nil {
		return err
	}

	switch c.Driver {
	case DriverSQLite:
		if err := c.SQLite.validate(); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	case DriverDynamoDB:
		if err := c.DynamoDB.validate(); err != nil {
			return fmt.Errorf("dynamodb: %w", err)
		}
	}

	if c.Cache.Enabled {
		if err := c.Cache.Config.Validate(); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}

	if err := c.Live.validate(); err != nil {
		return fmt.Errorf("live: %w", err)
	}
	return nil
}

func (s SQLiteConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Path, validation.Required),
	)
}

func (d DynamoDBConfig) validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Region, validation.Required),
		validation.Field(&d.KeyAttribute, validation.Required),
		validation.Field(&d.PageSize, validation.Min(int32(1))),
		validation.Field(&d.MaxRetries, validation.Min(0)),
		validation.Field(&d.SecretKey, validation.When(d.AccessKey != "", validation.Required)),
	)
}

func (l LiveConfig) validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.BufferSize, validation.Min(0)),
		validation.Field(&l.MaxRetries, validation.Min(0)),
	)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
