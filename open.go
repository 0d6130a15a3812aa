/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package livestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/suparena/livestore/cache"
	"github.com/suparena/livestore/config"
	"github.com/suparena/livestore/datastore"
	"github.com/suparena/livestore/datastore/ddb"
	"github.com/suparena/livestore/datastore/mock"
	"github.com/suparena/livestore/datastore/sqlite"
	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/storagemodels"
)

// Open builds the DataStore selected by cfg, wraps it in the read cache when
// enabled and returns a Store over it. Close on the Store releases the
// backend. Options are applied after those derived from cfg.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigurationError("open", "", err)
	}

	probe := &Store{}
	for _, opt := range opts {
		opt(probe)
	}
	logger := probe.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	}

	ds, closer, err := openDataStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Enabled {
		cached, err := cache.New(ds, cfg.Cache.Config, cache.WithLogger(logger))
		if err != nil {
			if closer != nil {
				closer()
			}
			return nil, err
		}
		ds = cached
	}

	base := []Option{
		WithLogger(logger),
		WithObserveDefaults(
			storagemodels.WithBufferSize(cfg.Live.BufferSize),
			storagemodels.WithMaxRetries(cfg.Live.MaxRetries),
			storagemodels.WithRetryBackoff(cfg.Live.RetryBackoff),
		),
	}
	if closer != nil {
		base = append(base, WithCloser(closer))
	}

	logger.Debug("store opened",
		slog.String("driver", cfg.Driver),
		slog.Bool("cache", cfg.Cache.Enabled))
	return New(ds, append(base, opts...)...), nil
}

func openDataStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (datastore.DataStore, func() error, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		if cfg.SQLite.Schema != "" {
			schema, err := os.ReadFile(cfg.SQLite.Schema)
			if err != nil {
				st.Close()
				return nil, nil, fmt.Errorf("read schema: %w", err)
			}
			if err := st.Migrate(ctx, string(schema)); err != nil {
				st.Close()
				return nil, nil, err
			}
		}
		return st, st.Close, nil

	case config.DriverDynamoDB:
		client, err := ddb.NewDynamoDBClient(ctx, ddb.ClientConfig{
			AccessKey: cfg.DynamoDB.AccessKey,
			SecretKey: cfg.DynamoDB.SecretKey,
			Region:    cfg.DynamoDB.Region,
			Endpoint:  cfg.DynamoDB.Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		return ddb.New(client,
			ddb.WithKeyAttribute(cfg.DynamoDB.KeyAttribute),
			ddb.WithPageSize(cfg.DynamoDB.PageSize),
			ddb.WithMaxRetries(cfg.DynamoDB.MaxRetries),
			ddb.WithRetryBackoff(cfg.DynamoDB.RetryBackoff),
			ddb.WithLogger(logger),
		), nil, nil

	case config.DriverMemory:
		return mock.New(), nil, nil

	default:
		return nil, nil, errors.NewConfigurationError("open", "", fmt.Errorf("unknown driver %q", cfg.Driver))
	}
}
