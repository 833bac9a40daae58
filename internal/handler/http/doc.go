// Package http implements the HTTP transport of the reference sync server.
//
// It exposes route wiring, request handlers, and middleware for the push,
// pull and health endpoints. Cross-cutting concerns such as authentication,
// request tracing, access logging, response compression, and body integrity
// checks are handled in this package before requests are delegated to the
// service layer.
package http
