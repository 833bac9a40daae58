package config

import "time"

// Local store drivers accepted in Storage.Local.Driver.
const (
	LocalDriverSQLite = "sqlite"
	LocalDriverBadger = "badger"
)

func defaults() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			TokenIssuer:   "go-offline-sync",
			Version:       "dev",
			TokenDuration: 24 * time.Hour,
		},
		Storage: Storage{
			Local: Local{
				Driver: LocalDriverSQLite,
				DSN:    "offline-sync.db",
			},
		},
		Server: Server{
			HTTPAddress:    "localhost:8080",
			RequestTimeout: 30 * time.Second,
		},
		Adapter: Adapter{
			HTTPAddress:    "http://localhost:8080",
			RequestTimeout: 10 * time.Second,
		},
		Sync: Sync{
			PushBatchSize:        100,
			PullPageSize:         200,
			MinBackoff:           time.Second,
			MaxBackoff:           5 * time.Minute,
			ReachabilityDebounce: 5 * time.Second,
			ProbeInterval:        15 * time.Second,
			MaxPayloadBytes:      1 << 20,
		},
		Workers: Workers{
			SyncInterval: time.Minute,
		},
		Log: Log{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
