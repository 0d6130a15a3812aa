/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livestore.yaml")
	content := `
driver: dynamodb
logLevel: debug
dynamodb:
  region: eu-west-1
  endpoint: http://localhost:8000
  pageSize: 0
cache:
  enabled: true
  capacity: 500
  ttl: 30s
live:
  bufferSize: 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Driver != DriverDynamoDB || cfg.DynamoDB.Region != "eu-west-1" {
		t.Fatalf("unexpected driver settings %+v", cfg.DynamoDB)
	}
	if cfg.DynamoDB.KeyAttribute != "id" || cfg.DynamoDB.PageSize != 100 {
		t.Fatalf("defaults not applied: %+v", cfg.DynamoDB)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Capacity != 500 || cfg.Cache.TTL != 30*time.Second {
		t.Fatalf("unexpected cache settings %+v", cfg.Cache)
	}
	if cfg.Cache.EvictionPercentage != 10 {
		t.Fatalf("cache defaults should survive a partial section, got %d", cfg.Cache.EvictionPercentage)
	}
	if cfg.Live.BufferSize != 8 {
		t.Fatalf("unexpected live settings %+v", cfg.Live)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}

	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.SQLite.Path = "/var/lib/livestore.db"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.SQLite.Path != cfg.SQLite.Path || loaded.Cache.TTL != cfg.Cache.TTL {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "memory", mutate: func(c *Config) { c.Driver = DriverMemory }},
		{name: "unknown driver", mutate: func(c *Config) { c.Driver = "postgres" }, wantErr: true},
		{name: "sqlite without path", mutate: func(c *Config) { c.SQLite.Path = "" }, wantErr: true},
		{name: "dynamodb without region", mutate: func(c *Config) { c.Driver = DriverDynamoDB }, wantErr: true},
		{
			name: "dynamodb access key without secret",
			mutate: func(c *Config) {
				c.Driver = DriverDynamoDB
				c.DynamoDB.Region = "us-east-1"
				c.DynamoDB.AccessKey = "AKIA"
			},
			wantErr: true,
		},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: true},
		{name: "invalid cache ignored when disabled", mutate: func(c *Config) { c.Cache.Capacity = 0 }},
		{
			name: "invalid cache rejected when enabled",
			mutate: func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.Capacity = 0
			},
			wantErr: true,
		},
		{name: "negative buffer", mutate: func(c *Config) { c.Live.BufferSize = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("LIVESTORE_SQLITE_PATH=/tmp/from-dotenv.db\n"), 0o644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	t.Setenv(EnvDriver, DriverSQLite)
	t.Setenv(EnvCacheEnabled, "true")
	t.Setenv(EnvCacheTTL, "2m")
	t.Setenv(EnvLiveBuffer, "4")
	t.Setenv(EnvSQLitePath, "")
	os.Unsetenv(EnvSQLitePath)

	cfg, err := FromEnv(envFile)
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.SQLite.Path != "/tmp/from-dotenv.db" {
		t.Fatalf("dotenv value not applied: %q", cfg.SQLite.Path)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 2*time.Minute || cfg.Live.BufferSize != 4 {
		t.Fatalf("environment not applied: %+v %+v", cfg.Cache, cfg.Live)
	}

	if _, err := FromEnv(filepath.Join(dir, "absent.env")); err != nil {
		t.Fatalf("a missing env file should be ignored: %v", err)
	}

	t.Setenv(EnvLiveBuffer, "many")
	if _, err := FromEnv(filepath.Join(dir, "absent.env")); err == nil {
		t.Fatal("expected parse error for a bad buffer size")
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "DEBUG"
	if cfg.SlogLevel().String() != "DEBUG" {
		t.Fatalf("unexpected level %s", cfg.SlogLevel())
	}
}
