package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/service"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

const (
	testHashKey  = "test-hash-key"
	testSignKey  = "test-sign-key"
	testIssuer   = "sync-server-test"
	testVersion  = "1.2.3"
	testOwner    = "alice"
	otherOwner   = "bob"
	testMaxBytes = 1024
)

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		TokenSignKey:    testSignKey,
		TokenIssuer:     testIssuer,
		TokenDuration:   time.Hour,
		Version:         testVersion,
		MaxPayloadBytes: testMaxBytes,
	}
}

// newTestServices wires the real services over an in-memory repository.
func newTestServices(t *testing.T) *service.Services {
	t.Helper()
	cfg := testServerConfig()

	appInfo, err := service.NewAppInfoService(cfg.Version, logger.Nop())
	require.NoError(t, err)

	return &service.Services{
		SyncService:    service.NewRemoteSyncService(store.NewMemoryRemoteRepository(), cfg.MaxPayloadBytes, logger.Nop()),
		AuthService:    service.NewAuthService(cfg, logger.Nop()),
		AppInfoService: appInfo,
	}
}

func newTestRouter(t *testing.T, services *service.Services, hashKey string) http.Handler {
	t.Helper()
	return NewHandler(services, hashKey, logger.Nop()).Init()
}

func tokenFor(t *testing.T, owner string) string {
	t.Helper()
	token, err := utils.GenerateJWTToken(testIssuer, owner, time.Hour, testSignKey)
	require.NoError(t, err)
	return token.SignedString
}

// signedRequest builds an authenticated request whose body carries a valid
// HashSHA256 header for testHashKey.
func signedRequest(t *testing.T, path, owner string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, owner))
	req.Header.Set(hashHeader, utils.NewHasher(testHashKey).SumHex(raw))
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// stubSyncService lets tests force errors out of the sync service.
type stubSyncService struct {
	push func(ctx context.Context, owner string, records []models.Record) (models.PushResponse, error)
	pull func(ctx context.Context, owner string, req models.PullRequest) (models.PullPage, error)
}

func (s *stubSyncService) Push(ctx context.Context, owner string, records []models.Record) (models.PushResponse, error) {
	return s.push(ctx, owner, records)
}

func (s *stubSyncService) Pull(ctx context.Context, owner string, req models.PullRequest) (models.PullPage, error) {
	return s.pull(ctx, owner, req)
}
