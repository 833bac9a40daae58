package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses the configuration flags found in args (without the
// program name).
//
// Flags:
//
//	-a server listen address in format [host]:[port]
//	-s sync server base address used by the client
//	-d server database DSN
//	-local-driver local store driver (sqlite|badger)
//	-local-dsn local store path
//	-c/-config json file path with configs
//	-token client bearer token
//	-token-sign-key token signing key
//	-token-issuer token issuer name
//	-token-duration token duration (e.g., "1h", "30m")
//	-request-timeout server request timeout (e.g., "30s")
//	-adapter-timeout client request timeout (e.g., "10s")
//	-hash-key body integrity hash key
//	-push-batch-size records per push
//	-pull-page-size records per pull page
//	-min-backoff / -max-backoff retry delay bounds
//	-debounce reachability debounce window
//	-sync-interval periodic sync interval
//	-log-file client log file
func ParseFlags(args []string) (*StructuredConfig, error) {
	var serverAddress NetAddress
	var cfg StructuredConfig

	fs := flag.NewFlagSet("go-offline-sync", flag.ContinueOnError)

	fs.Var(&serverAddress, "a", "Net address host:port")
	fs.StringVar(&cfg.Adapter.HTTPAddress, "s", "", "Sync server address")
	fs.StringVar(&cfg.Storage.DB.DSN, "d", "", "Database DSN")
	fs.StringVar(&cfg.Storage.Local.Driver, "local-driver", "", "Local store driver (sqlite|badger)")
	fs.StringVar(&cfg.Storage.Local.DSN, "local-dsn", "", "Local store path")
	fs.StringVar(&cfg.JSONFilePath, "c", "", "JSON config file path")
	fs.StringVar(&cfg.JSONFilePath, "config", "", "JSON config file path (alias)")
	fs.StringVar(&cfg.App.Token, "token", "", "Bearer token")
	fs.StringVar(&cfg.App.TokenSignKey, "token-sign-key", "", "Token signing key")
	fs.StringVar(&cfg.App.TokenIssuer, "token-issuer", "", "Token issuer")
	fs.DurationVar(&cfg.App.TokenDuration, "token-duration", 0, "Token duration (e.g., 1h, 30m)")
	fs.DurationVar(&cfg.Server.RequestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	fs.DurationVar(&cfg.Adapter.RequestTimeout, "adapter-timeout", 0, "Client request timeout (e.g., 10s)")
	fs.StringVar(&cfg.App.HashKey, "hash-key", "", "Security hash key")
	fs.IntVar(&cfg.Sync.PushBatchSize, "push-batch-size", 0, "Records per push")
	fs.IntVar(&cfg.Sync.PullPageSize, "pull-page-size", 0, "Records per pull page")
	fs.DurationVar(&cfg.Sync.MinBackoff, "min-backoff", 0, "Minimum retry delay")
	fs.DurationVar(&cfg.Sync.MaxBackoff, "max-backoff", 0, "Maximum retry delay")
	fs.DurationVar(&cfg.Sync.ReachabilityDebounce, "debounce", 0, "Reachability debounce window")
	fs.DurationVar(&cfg.Workers.SyncInterval, "sync-interval", 0, "Periodic sync interval")
	fs.StringVar(&cfg.Log.File, "log-file", "", "Client log file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	cfg.Server.HTTPAddress = serverAddress.String()
	if rest := fs.Args(); len(rest) > 0 {
		cfg.Args = rest
	}
	return &cfg, nil
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" && host != "" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
