package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

// NewLocalStore opens the local record store selected by cfg.Driver.
func NewLocalStore(ctx context.Context, cfg config.ClientStorage, log *logger.Logger) (LocalStore, error) {
	log.Info().Str("func", "NewLocalStore").Str("driver", cfg.Driver).Msg("opening local store...")

	switch cfg.Driver {
	case config.LocalDriverSQLite:
		return NewSQLiteLocalStore(ctx, cfg.DSN, log)
	case config.LocalDriverBadger:
		return NewBadgerLocalStore(BadgerOptions{Dir: cfg.DSN}, log)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}
