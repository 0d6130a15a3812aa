/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/suparena/livestore"
	"github.com/suparena/livestore/config"
	"github.com/suparena/livestore/storagemodels"
)

var (
	versionFlag  = flag.Bool("version", false, "Show version information")
	vFlag        = flag.Bool("v", false, "Show version information (short)")
	configFlag   = flag.String("config", "", "Path to a YAML config file (defaults to .env and LIVESTORE_* variables)")
	relationFlag = flag.String("relation", "", "Relation to read, and to observe with -watch")
	whereFlag    = flag.String("where", "", "Filter with ? placeholders, e.g. \"age > ?\"")
	argsFlag     = flag.String("args", "", "Comma separated values for the -where or -raw placeholders")
	rawFlag      = flag.String("raw", "", "Raw statement to run instead of a relation read")
	watchFlag    = flag.Bool("watch", false, "Keep the query live and print every changed result until interrupted (requires -relation)")
	pollFlag     = flag.Duration("poll", 5*time.Second, "With -watch, how often to re-read -relation; writes made by other processes are only seen on a poll")
)

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		info := livestore.GetVersionInfo()
		fmt.Printf("LiveStore version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "livestore: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if *relationFlag == "" && *rawFlag == "" {
		return fmt.Errorf("either -relation or -raw is required")
	}
	if *watchFlag && *relationFlag == "" {
		return fmt.Errorf("-watch requires -relation to observe")
	}
	if *watchFlag && *pollFlag <= 0 {
		return fmt.Errorf("-poll must be positive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := livestore.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	get := livestore.GetCursor(store)
	args := splitArgs(*argsFlag)
	if *rawFlag != "" {
		raw := storagemodels.RawQuery{Statement: *rawFlag, Args: args}
		if *relationFlag != "" {
			raw.ObservesRelations = []string{*relationFlag}
		}
		get.WithRawQuery(raw)
	} else {
		get.WithQuery(storagemodels.Query{Relation: *relationFlag, Where: *whereFlag, WhereArgs: args})
	}

	if !*watchFlag {
		cur, err := get.Execute(ctx)
		if err != nil {
			return err
		}
		out, err := encodeRows(cur)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	live, err := get.Observe(ctx)
	if err != nil {
		return err
	}
	defer live.Cancel()

	// Nothing in this process writes, so changes are announced on a timer.
	go poll(ctx, store, *relationFlag, *pollFlag)

	var last []byte
	for snap := range live.Results() {
		if snap.Err != nil {
			fmt.Fprintf(os.Stderr, "livestore: query failed: %v\n", snap.Err)
			continue
		}
		out, err := encodeRows(snap.Value)
		if err != nil {
			return err
		}
		if bytes.Equal(out, last) {
			continue
		}
		last = out
		if _, err := os.Stdout.Write(out); err != nil {
			return err
		}
	}
	return nil
}

func poll(ctx context.Context, store *livestore.Store, relation string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.NotifyChanges(storagemodels.NewChanges([]string{relation}))
		}
	}
}

func loadConfig() (*config.Config, error) {
	if *configFlag == "" {
		return config.FromEnv()
	}
	cfg, err := config.LoadFromPath(*configFlag)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitArgs(s string) []any {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	args := make([]any, len(parts))
	for i, p := range parts {
		args[i] = strings.TrimSpace(p)
	}
	return args
}

func encodeRows(cur storagemodels.Cursor) ([]byte, error) {
	rows, err := storagemodels.CollectRows(cur)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
