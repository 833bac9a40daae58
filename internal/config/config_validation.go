// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "fmt"

// validate checks cross-field rules that apply to both client and server.
func (cfg *StructuredConfig) validate() error {
	if cfg.Sync.MinBackoff > 0 && cfg.Sync.MaxBackoff > 0 && cfg.Sync.MinBackoff > cfg.Sync.MaxBackoff {
		return fmt.Errorf("%w: min backoff %s exceeds max backoff %s",
			ErrInvalidSyncConfigs, cfg.Sync.MinBackoff, cfg.Sync.MaxBackoff)
	}

	return nil
}

func (cfg *ClientConfig) validate() error {
	switch cfg.Storage.Driver {
	case LocalDriverSQLite, LocalDriverBadger:
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidStorageConfigs, cfg.Storage.Driver)
	}
	if cfg.Storage.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	s := cfg.Sync
	if s.PushBatchSize <= 0 || s.PullPageSize <= 0 || s.MinBackoff <= 0 ||
		s.MaxBackoff < s.MinBackoff || s.ReachabilityDebounce < 0 || s.ProbeInterval <= 0 {
		return ErrInvalidSyncConfigs
	}

	if cfg.Workers.SyncInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	if cfg.App.Token == "" {
		return ErrInvalidAppConfigs
	}

	return nil
}

func (cfg *ServerConfig) validate() error {
	if cfg.HTTPAddress == "" || cfg.RequestTimeout <= 0 {
		return ErrInvalidServerConfigs
	}

	if cfg.TokenSignKey == "" || cfg.TokenIssuer == "" {
		return ErrInvalidAppConfigs
	}

	if cfg.MaxPayloadBytes <= 0 {
		return ErrInvalidSyncConfigs
	}

	return nil
}
