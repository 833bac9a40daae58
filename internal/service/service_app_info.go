package service

import (
	"context"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

// appInfoService reports the version the server was built with. The health
// endpoint returns it so clients can log which server they talk to.
type appInfoService struct {
	appVersion string
}

func NewAppInfoService(version string, log *logger.Logger) (AppInfoService, error) {
	if version == "" {
		return nil, ErrVersionIsNotSpecified
	}

	log.Info().Str("func", "NewAppInfoService").Str("version", version).Msg("app version registered")
	return &appInfoService{appVersion: version}, nil
}

func (s *appInfoService) GetAppVersion(context.Context) string {
	return s.appVersion
}
