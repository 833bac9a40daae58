package config

import (
	"fmt"
	"time"
)

// ClientConfig is the client configuration view assembled from
// [StructuredConfig].
type ClientConfig struct {
	// App holds the integrity key and the bearer token.
	App ClientApp
	// Adapter holds the remote endpoint and the per-call deadline.
	Adapter ClientAdapter
	// Storage holds the local store settings.
	Storage ClientStorage
	// Sync holds the engine tuning knobs.
	Sync SyncSettings
	// Workers holds background job settings.
	Workers ClientWorkers
	// Log holds the log file settings.
	Log Log
	// Command is the subcommand and its arguments. Empty means run the
	// sync daemon.
	Command []string
}

// ClientApp holds client-side application settings.
type ClientApp struct {
	HashKey string
	Token   string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	HTTPAddress    string
	RequestTimeout time.Duration
}

// ClientStorage selects and locates the local record store.
type ClientStorage struct {
	Driver string
	DSN    string
}

// SyncSettings are the knobs consumed by the sync orchestrator and the
// connectivity monitor.
type SyncSettings struct {
	PushBatchSize        int
	PullPageSize         int
	MinBackoff           time.Duration
	MaxBackoff           time.Duration
	ReachabilityDebounce time.Duration
	ProbeInterval        time.Duration
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	SyncInterval time.Duration
}

// GetClientConfig builds and validates the client view of the merged
// configuration. args are the command-line arguments without the program
// name.
func GetClientConfig(args []string) (*ClientConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := cfg.ClientView()
	return clientCfg, clientCfg.validate()
}

// ClientView maps the fields relevant to the client runtime.
func (cfg *StructuredConfig) ClientView() *ClientConfig {
	return &ClientConfig{
		App: ClientApp{
			HashKey: cfg.App.HashKey,
			Token:   cfg.App.Token,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			Driver: cfg.Storage.Local.Driver,
			DSN:    cfg.Storage.Local.DSN,
		},
		Sync: SyncSettings{
			PushBatchSize:        cfg.Sync.PushBatchSize,
			PullPageSize:         cfg.Sync.PullPageSize,
			MinBackoff:           cfg.Sync.MinBackoff,
			MaxBackoff:           cfg.Sync.MaxBackoff,
			ReachabilityDebounce: cfg.Sync.ReachabilityDebounce,
			ProbeInterval:        cfg.Sync.ProbeInterval,
		},
		Workers: ClientWorkers{SyncInterval: cfg.Workers.SyncInterval},
		Log:     cfg.Log,
		Command: cfg.Args,
	}
}

// DefaultSyncSettings returns the built-in engine tuning.
func DefaultSyncSettings() SyncSettings {
	return defaults().ClientView().Sync
}
