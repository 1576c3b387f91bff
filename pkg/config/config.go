// Package config loads SpecSync configuration from a TOML file and
// SPECSYNC_* environment variables.
//
// Precedence, lowest to highest: built-in defaults, the config file,
// environment variables, then command-line flags (applied by the CLI after
// Load returns).
//
// Example specsync.toml:
//
//	[server]
//	addr = ":8080"
//
//	[storage]
//	backend = "mongo"
//	[storage.mongo]
//	uri = "mongodb://localhost:27017"
//
//	[sessions]
//	backend = "redis"
//	ttl = "24h"
//
//	[redis]
//	url = "redis://localhost:6379/0"
//
//	[export.layout]
//	column_pixel_width = 75
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/specsync/pkg/layout"
	"github.com/matzehuels/specsync/pkg/pipeline"
	"github.com/matzehuels/specsync/pkg/session"
	"github.com/matzehuels/specsync/pkg/staging"
	"github.com/matzehuels/specsync/pkg/store"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
	BackendFile   = "file"
)

// Config is the complete configuration of the server and CLI.
type Config struct {
	// DataDir holds file-backed blobs, sessions and staged uploads.
	DataDir string `toml:"data_dir"`

	Server   ServerConfig     `toml:"server"`
	Storage  StorageConfig    `toml:"storage"`
	Blobs    BlobConfig       `toml:"blobs"`
	Sessions SessionConfig    `toml:"sessions"`
	Redis    RedisConfig      `toml:"redis"`
	Export   pipeline.Options `toml:"export"`
	Client   ClientConfig     `toml:"client"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `toml:"addr"`
	NoAuth         bool          `toml:"no_auth"`
	ReadTimeout    time.Duration `toml:"read_timeout"`
	WriteTimeout   time.Duration `toml:"write_timeout"`
	MaxUploadBytes int64         `toml:"max_upload_bytes"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Backend string            `toml:"backend"`
	Mongo   store.MongoConfig `toml:"mongo"`
}

// BlobConfig selects the screen image store.
type BlobConfig struct {
	Backend string `toml:"backend"`
}

// SessionConfig selects the session store.
type SessionConfig struct {
	Backend         string        `toml:"backend"`
	TTL             time.Duration `toml:"ttl"`
	CleanupInterval time.Duration `toml:"cleanup_interval"`
}

// RedisConfig is shared by the Redis session and blob backends.
type RedisConfig struct {
	URL string `toml:"url"`
}

// ClientConfig configures the CLI's API client.
type ClientConfig struct {
	Server  string        `toml:"server"`
	Timeout time.Duration `toml:"timeout"`
}

// Default returns the built-in configuration: records in memory, images and
// sessions on local disk, listening on :8080. Sessions default to files so
// that "specsync session issue" and a running server see the same tokens.
func Default() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxUploadBytes: staging.DefaultMaxBytes,
		},
		Storage:  StorageConfig{Backend: BackendMemory, Mongo: store.MongoConfig{Database: store.DefaultDatabase, Timeout: 10 * time.Second}},
		Blobs:    BlobConfig{Backend: BackendFile},
		Sessions: SessionConfig{Backend: BackendFile, TTL: session.DefaultTTL, CleanupInterval: session.DefaultCleanupInterval},
		Redis:    RedisConfig{URL: "redis://localhost:6379/0"},
		Export:   pipeline.Options{Layout: layout.DefaultConfig(), MaxImageBytes: pipeline.DefaultMaxImageBytes},
		Client:   ClientConfig{Server: "http://localhost:8080", Timeout: 60 * time.Second},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".specsync"
	}
	return filepath.Join(home, ".specsync")
}

// Load reads the config file at path (optional) on top of the defaults and
// applies environment overrides. A missing file at an explicit path is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from SPECSYNC_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SPECSYNC_DATA_DIR":  &c.DataDir,
		"SPECSYNC_ADDR":      &c.Server.Addr,
		"SPECSYNC_STORAGE":   &c.Storage.Backend,
		"SPECSYNC_MONGO_URI": &c.Storage.Mongo.URI,
		"SPECSYNC_MONGO_DB":  &c.Storage.Mongo.Database,
		"SPECSYNC_BLOBS":     &c.Blobs.Backend,
		"SPECSYNC_SESSIONS":  &c.Sessions.Backend,
		"SPECSYNC_REDIS_URL": &c.Redis.URL,
		"SPECSYNC_SERVER":    &c.Client.Server,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("SPECSYNC_NO_AUTH"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SPECSYNC_NO_AUTH: %w", err)
		}
		c.Server.NoAuth = b
	}
	if v, ok := lookup("SPECSYNC_SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SPECSYNC_SESSION_TTL: %w", err)
		}
		c.Sessions.TTL = d
	}
	if v, ok := lookup("SPECSYNC_COLUMN_PIXEL_WIDTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SPECSYNC_COLUMN_PIXEL_WIDTH: %w", err)
		}
		c.Export.Layout.ColumnPixelWidth = n
	}
	return nil
}

// Validate checks backend names and the settings each backend needs.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.Storage.Mongo.URI == "" {
			return fmt.Errorf("storage.mongo.uri is required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (must be memory or mongo)", c.Storage.Backend)
	}

	switch c.Blobs.Backend {
	case BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown blob backend %q (must be file or redis)", c.Blobs.Backend)
	}

	switch c.Sessions.Backend {
	case BackendMemory, BackendRedis, BackendFile:
	default:
		return fmt.Errorf("unknown session backend %q (must be memory, redis or file)", c.Sessions.Backend)
	}

	if c.UsesRedis() && c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required for redis backends")
	}
	if c.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes cannot be negative")
	}
	export := c.Export
	if err := export.ValidateAndSetDefaults(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// UsesRedis reports whether any backend needs the Redis client.
func (c *Config) UsesRedis() bool {
	return c.Blobs.Backend == BackendRedis || c.Sessions.Backend == BackendRedis
}

// RedisClient builds a client from Redis.URL.
func (c *Config) RedisClient() (*redis.Client, error) {
	opts, err := redis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Path helpers for file-backed components.

func (c *Config) BlobDir() string    { return filepath.Join(c.DataDir, "blobs") }
func (c *Config) SessionDir() string { return filepath.Join(c.DataDir, "sessions") }
func (c *Config) UploadDir() string  { return filepath.Join(c.DataDir, "uploads") }
