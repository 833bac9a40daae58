package server

import "context"

// Server defines the lifecycle of the sync server.
type Server interface {
	// RunServer serves requests until ctx is cancelled or SIGTERM, SIGINT
	// or SIGQUIT is received, then shuts down gracefully.
	RunServer(ctx context.Context) error

	// Shutdown stops accepting connections and waits for in-flight requests
	// until ctx is done.
	Shutdown(ctx context.Context) error
}
