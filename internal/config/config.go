// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container shared by the
// sync client and the reference sync server. It is populated by merging
// environment variables, command-line flags, an optional JSON file and the
// built-in defaults.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds keys, token parameters and the application version.
	App App `envPrefix:"APP_"`

	// Storage holds configuration for the server database and the client's
	// local record store.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds the listening address and request timeout of the
	// reference sync server.
	Server Server `envPrefix:"SERVER_"`

	// Adapter holds the remote endpoint used by the client's gateway.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Sync holds the tuning knobs of the synchronization engine.
	Sync Sync `envPrefix:"SYNC_"`

	// Workers holds configuration for background worker processes.
	Workers Workers `envPrefix:"WORKERS_"`

	// Log holds the client log file settings.
	Log Log `envPrefix:"LOG_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`

	// Args are the positional command-line arguments left after flag
	// parsing, such as a client subcommand.
	Args []string
}

// App holds application-level configuration values.
type App struct {
	// HashKey is the HMAC key used for request body integrity checking
	// (the HashSHA256 header). Empty disables signing.
	// Env: APP_HASH_KEY
	HashKey string `env:"HASH_KEY"`

	// Token is the bearer credential the client presents to the server.
	// Env: APP_TOKEN
	Token string `env:"TOKEN"`

	// TokenSignKey is the secret key used by the server to verify JWT
	// tokens.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the "iss" claim expected in every accepted token.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration is the lifetime of tokens minted by the server's
	// token helper (e.g. "24h").
	// Env: APP_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// Version is exposed by the health endpoint.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Storage groups the configuration for all storage backends.
type Storage struct {
	// DB holds the server's relational database connection settings.
	DB DB `envPrefix:"DB_"`

	// Local holds the client's local record store settings.
	Local Local `envPrefix:"LOCAL_"`
}

// DB holds connection settings for the server's PostgreSQL backend.
type DB struct {
	// DSN is the PostgreSQL connection string. Empty makes the server keep
	// records in memory.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Local holds the client's local record store settings.
type Local struct {
	// Driver selects the local store implementation: "sqlite" or "badger".
	// Env: STORAGE_LOCAL_DRIVER
	Driver string `env:"DRIVER"`

	// DSN is the SQLite database file or the badger directory.
	// Env: STORAGE_LOCAL_DSN
	DSN string `env:"DSN"`
}

// Server holds network and timeout settings for the inbound transport layer.
type Server struct {
	// HTTPAddress is the TCP address on which the HTTP server listens,
	// in "host:port" format.
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the maximum duration of a single inbound request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Adapter holds the client's outbound transport settings.
type Adapter struct {
	// HTTPAddress is the base address of the sync server. A missing scheme
	// defaults to http.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the deadline applied to every push, pull and probe.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Sync holds the tuning knobs of the synchronization engine.
type Sync struct {
	// PushBatchSize is the number of dirty records sent per push call.
	// Env: SYNC_PUSH_BATCH_SIZE
	PushBatchSize int `env:"PUSH_BATCH_SIZE"`

	// PullPageSize is the number of records requested per pull call.
	// Env: SYNC_PULL_PAGE_SIZE
	PullPageSize int `env:"PULL_PAGE_SIZE"`

	// MinBackoff is the first retry delay after a failed cycle.
	// Env: SYNC_MIN_BACKOFF
	MinBackoff time.Duration `env:"MIN_BACKOFF"`

	// MaxBackoff caps the retry delay.
	// Env: SYNC_MAX_BACKOFF
	MaxBackoff time.Duration `env:"MAX_BACKOFF"`

	// ReachabilityDebounce is the minimum spacing between two Reachable
	// events.
	// Env: SYNC_REACHABILITY_DEBOUNCE
	ReachabilityDebounce time.Duration `env:"REACHABILITY_DEBOUNCE"`

	// ProbeInterval is how often the client probes the server health
	// endpoint.
	// Env: SYNC_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`

	// MaxPayloadBytes is the largest payload the server accepts.
	// Env: SYNC_MAX_PAYLOAD_BYTES
	MaxPayloadBytes int `env:"MAX_PAYLOAD_BYTES"`
}

// Workers holds configuration for background worker processes.
type Workers struct {
	// SyncInterval is the period of the periodic sync trigger.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`
}

// Log holds the rotating log file settings used by the client.
type Log struct {
	// File is the log file path. Empty logs to stderr.
	// Env: LOG_FILE
	File string `env:"FILE"`

	// MaxSizeMB is the rotation threshold.
	// Env: LOG_MAX_SIZE_MB
	MaxSizeMB int `env:"MAX_SIZE_MB"`

	// MaxBackups is the number of rotated files kept.
	// Env: LOG_MAX_BACKUPS
	MaxBackups int `env:"MAX_BACKUPS"`
}

// GetStructuredConfig loads and merges the configuration from all sources.
// args are the command-line arguments without the program name.
//
// For every field the first source that sets it wins:
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//  4. Built-in defaults
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(args).
		withJSON().
		withDefaults().
		build()
}
