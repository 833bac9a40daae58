// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the transport used by the sync engine to talk to
// the remote record store.
//
// The primary abstraction is [RemoteGateway], which decouples the sync
// orchestrator from the underlying protocol. The package ships an HTTP/REST
// implementation ([NewHTTPRemoteGateway]).
//
// Failures are reported through three sentinel classes so that callers can
// decide on a retry policy with [errors.Is]: [ErrTransport] (retryable),
// [ErrAuth] (needs new credentials) and [ErrPermanent] (the request itself is
// unacceptable).
package adapter

import (
	"context"

	"github.com/MKhiriev/go-offline-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_gateway_mock.go -package=mock

// RemoteGateway is the client side of the push/pull sync protocol.
type RemoteGateway interface {
	// SetToken stores the bearer token attached to every subsequent request.
	SetToken(token string)

	// Token returns the bearer token currently in use.
	Token() string

	// Push sends a batch of records and returns a per-record result. Pushing
	// the same batch again is safe: the remote side deduplicates by record id
	// and LastModified. A rejected record does not fail the call.
	Push(ctx context.Context, records []models.Record) (models.PushResponse, error)

	// Pull fetches one page of remote changes after cursor. The cursor is
	// opaque and sent back verbatim.
	Pull(ctx context.Context, cursor models.Cursor, pageSize int) (models.PullPage, error)
}
