package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
)

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		TokenSignKey:    "sign-key",
		TokenIssuer:     "sync-test",
		TokenDuration:   time.Hour,
		Version:         "1.2.3",
		MaxPayloadBytes: 1024,
	}
}

func TestAuthService_IssueAndParse(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(testServerConfig(), logger.Nop())

	token, err := svc.IssueToken(ctx, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token.String())

	parsed, err := svc.ParseToken(ctx, token.String())
	require.NoError(t, err)
	assert.Equal(t, "alice", parsed.Owner)
}

func TestAuthService_IssueToken_EmptyOwner(t *testing.T) {
	svc := NewAuthService(testServerConfig(), logger.Nop())

	_, err := svc.IssueToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrTokenCreationFailed)
}

func TestAuthService_ParseToken_Errors(t *testing.T) {
	ctx := context.Background()
	cfg := testServerConfig()
	svc := NewAuthService(cfg, logger.Nop())

	expired, err := utils.GenerateJWTToken(cfg.TokenIssuer, "alice", -time.Minute, cfg.TokenSignKey)
	require.NoError(t, err)
	_, err = svc.ParseToken(ctx, expired.String())
	assert.ErrorIs(t, err, ErrTokenIsExpired)

	foreign, err := utils.GenerateJWTToken(cfg.TokenIssuer, "alice", time.Hour, "other-key")
	require.NoError(t, err)
	_, err = svc.ParseToken(ctx, foreign.String())
	assert.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)

	otherIssuer, err := utils.GenerateJWTToken("someone-else", "alice", time.Hour, cfg.TokenSignKey)
	require.NoError(t, err)
	_, err = svc.ParseToken(ctx, otherIssuer.String())
	assert.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)

	_, err = svc.ParseToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)
}

func TestNewAppInfoService(t *testing.T) {
	svc, err := NewAppInfoService("2.5.1", logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "2.5.1", svc.GetAppVersion(context.Background()))

	svc, err = NewAppInfoService("", logger.Nop())
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, ErrVersionIsNotSpecified)
}

func TestNewServices(t *testing.T) {
	storages := &store.ServerStorages{RemoteRecords: store.NewMemoryRemoteRepository()}

	services, err := NewServices(storages, testServerConfig(), logger.Nop())
	require.NoError(t, err)
	assert.NotNil(t, services.SyncService)
	assert.NotNil(t, services.AuthService)
	assert.Equal(t, "1.2.3", services.AppInfoService.GetAppVersion(context.Background()))

	cfg := testServerConfig()
	cfg.Version = ""
	_, err = NewServices(storages, cfg, logger.Nop())
	assert.ErrorIs(t, err, ErrVersionIsNotSpecified)
}
