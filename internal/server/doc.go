// Package server runs the HTTP transport of the reference sync server.
//
// It owns the listener lifecycle: startup, signal handling and graceful
// shutdown.
package server
