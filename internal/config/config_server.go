package config

import (
	"fmt"
	"time"
)

// ServerConfig is the configuration view of the reference sync server.
type ServerConfig struct {
	HTTPAddress     string
	RequestTimeout  time.Duration
	DatabaseDSN     string
	HashKey         string
	TokenSignKey    string
	TokenIssuer     string
	TokenDuration   time.Duration
	Version         string
	MaxPayloadBytes int
	// Command is the subcommand and its arguments. Empty means serve.
	Command []string
}

// GetServerConfig builds and validates the server view of the merged
// configuration.
func GetServerConfig(args []string) (*ServerConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	serverCfg := cfg.ServerView()
	return serverCfg, serverCfg.validate()
}

// ServerView maps the fields relevant to the server runtime.
func (cfg *StructuredConfig) ServerView() *ServerConfig {
	return &ServerConfig{
		HTTPAddress:     cfg.Server.HTTPAddress,
		RequestTimeout:  cfg.Server.RequestTimeout,
		DatabaseDSN:     cfg.Storage.DB.DSN,
		HashKey:         cfg.App.HashKey,
		TokenSignKey:    cfg.App.TokenSignKey,
		TokenIssuer:     cfg.App.TokenIssuer,
		TokenDuration:   cfg.App.TokenDuration,
		Version:         cfg.App.Version,
		MaxPayloadBytes: cfg.Sync.MaxPayloadBytes,
		Command:         cfg.Args,
	}
}
