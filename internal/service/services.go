package service

import (
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
)

// Services groups the server-side services exposed over HTTP.
type Services struct {
	SyncService    RemoteSyncService
	AuthService    AuthService
	AppInfoService AppInfoService
}

func NewServices(storages *store.ServerStorages, cfg *config.ServerConfig, logger *logger.Logger) (*Services, error) {
	appInfo, err := NewAppInfoService(cfg.Version, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating app info service: %w", err)
	}

	return &Services{
		SyncService:    NewRemoteSyncService(storages.RemoteRecords, cfg.MaxPayloadBytes, logger),
		AuthService:    NewAuthService(cfg, logger),
		AppInfoService: appInfo,
	}, nil
}
