package store

import (
	"context"
	"fmt"
	"io"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

// ServerStorages groups the repositories used by the reference sync server.
type ServerStorages struct {
	RemoteRecords RemoteRecordRepository

	closer io.Closer
}

// NewServerStorages connects to PostgreSQL when a DSN is configured and
// falls back to the in-memory repository otherwise.
func NewServerStorages(ctx context.Context, cfg *config.ServerConfig, log *logger.Logger) (*ServerStorages, error) {
	log.Info().Msg("creating new storages...")

	if cfg.DatabaseDSN == "" {
		log.Warn().Str("func", "NewServerStorages").Msg("no database configured, records are kept in memory")
		return &ServerStorages{RemoteRecords: NewMemoryRemoteRepository()}, nil
	}

	db, err := NewConnectPostgres(ctx, cfg.DatabaseDSN, log)
	if err != nil {
		return nil, fmt.Errorf("postgres connection error: %w", err)
	}

	return &ServerStorages{
		RemoteRecords: NewPostgresRemoteRepository(db, log),
		closer:        db,
	}, nil
}

// Close releases the database connection, if any.
func (s *ServerStorages) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
