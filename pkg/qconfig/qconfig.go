// Package qconfig loads the store's configuration. There is no persistent
// daemon configuration service (the engine is embedded, not a server); this
// package only loads a struct from defaults, a YAML file, or the caller's
// own construction, the way the teacher loads a one-shot YAML resource file
// rather than running a config watcher.
package qconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WALSyncMode names how aggressively commit_transaction fsyncs the WAL.
// Validate accepts both values, but the store and pager do not read this
// setting: every committed transaction fsyncs the WAL whichever mode is
// configured.
type WALSyncMode string

const (
	// SyncAlways names fsync-on-every-committed-transaction (the
	// default protocol).
	SyncAlways WALSyncMode = "always"
	// SyncBatch names fsync-only-at-the-end-of-a-batch; the pager does
	// not implement a separate behavior for it.
	SyncBatch WALSyncMode = "batch"
)

// Config configures a single store directory.
type Config struct {
	DataDir              string      `yaml:"dataDir"`
	PageSize             int         `yaml:"pageSize"`
	MaxCachePages        int         `yaml:"maxCachePages"`
	WALSyncMode          WALSyncMode `yaml:"walSyncMode"`
	StorePoolSize        int         `yaml:"storePoolSize"`
	StorePoolIdleSeconds int         `yaml:"storePoolIdleSeconds"`
}

// Default returns the engine's default configuration: 8 KiB pages, a
// 4096-page (32 MiB) cache, fsync-on-every-commit durability, and a store
// pool capped at 8 concurrently open stores.
func Default() Config {
	return Config{
		DataDir:              "./data",
		PageSize:             8192,
		MaxCachePages:        4096,
		WALSyncMode:          SyncAlways,
		StorePoolSize:        8,
		StorePoolIdleSeconds: 300,
	}
}

// Load reads a YAML configuration file, applying Default first so a
// partial file only overrides the fields it sets.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the configuration is usable; called automatically
// by Load and should be called by any caller that builds a Config by hand.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("dataDir must not be empty")
	}
	if c.PageSize < 512 || c.PageSize&(c.PageSize-1) != 0 {
		return fmt.Errorf("pageSize must be a power of two >= 512, got %d", c.PageSize)
	}
	if c.MaxCachePages <= 0 {
		return fmt.Errorf("maxCachePages must be positive, got %d", c.MaxCachePages)
	}
	if c.WALSyncMode != SyncAlways && c.WALSyncMode != SyncBatch {
		return fmt.Errorf("walSyncMode must be %q or %q, got %q", SyncAlways, SyncBatch, c.WALSyncMode)
	}
	if c.StorePoolSize <= 0 {
		return fmt.Errorf("storePoolSize must be positive, got %d", c.StorePoolSize)
	}
	return nil
}
