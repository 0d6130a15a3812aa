/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvDriver       = "LIVESTORE_DRIVER"
	EnvLogLevel     = "LIVESTORE_LOG_LEVEL"
	EnvSQLitePath   = "LIVESTORE_SQLITE_PATH"
	EnvDDBRegion    = "LIVESTORE_DDB_REGION"
	EnvDDBEndpoint  = "LIVESTORE_DDB_ENDPOINT"
	EnvDDBKey       = "LIVESTORE_DDB_KEY_ATTRIBUTE"
	EnvCacheEnabled = "LIVESTORE_CACHE_ENABLED"
	EnvCacheTTL     = "LIVESTORE_CACHE_TTL"
	EnvLiveBuffer   = "LIVESTORE_LIVE_BUFFER_SIZE"

	// The AWS variables are shared with the SDK's own credential chain.
	EnvAWSRegion    = "AWS_REGION"
	EnvAWSAccessKey = "AWS_ACCESS_KEY_ID"
	EnvAWSSecretKey = "AWS_SECRET_ACCESS_KEY"
)

// FromEnv loads .env files (when present) and builds a configuration from
// the defaults and the environment.
func FromEnv(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields with the environment variables that are set.
func (c *Config) ApplyEnv() error {
	setString(&c.Driver, EnvDriver)
	setString(&c.LogLevel, EnvLogLevel)
	setString(&c.SQLite.Path, EnvSQLitePath)
	setString(&c.DynamoDB.Region, EnvAWSRegion)
	setString(&c.DynamoDB.Region, EnvDDBRegion)
	setString(&c.DynamoDB.Endpoint, EnvDDBEndpoint)
	setString(&c.DynamoDB.KeyAttribute, EnvDDBKey)
	setString(&c.DynamoDB.AccessKey, EnvAWSAccessKey)
	setString(&c.DynamoDB.SecretKey, EnvAWSSecretKey)

	if v, ok := os.LookupEnv(EnvCacheEnabled); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheEnabled, err)
		}
		c.Cache.Enabled = enabled
	}
	if v, ok := os.LookupEnv(EnvCacheTTL); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheTTL, err)
		}
		c.Cache.TTL = ttl
	}
	if v, ok := os.LookupEnv(EnvLiveBuffer); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLiveBuffer, err)
		}
		c.Live.BufferSize = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
