package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

const (
	pushPath = "/api/sync/push"
	pullPath = "/api/sync/pull"

	// HashHeader carries the hex HMAC-SHA256 of the request body.
	HashHeader = "HashSHA256"
)

type httpRemoteGateway struct {
	client  *utils.HTTPClient
	hasher  *utils.Hasher
	timeout time.Duration
	logger  *logger.Logger
	now     func() time.Time

	mu    sync.RWMutex
	token string
}

// NewHTTPRemoteGateway returns a [RemoteGateway] speaking JSON over HTTP to
// adapterCfg.HTTPAddress. Every call is bounded by adapterCfg.RequestTimeout
// in addition to the caller's context.
func NewHTTPRemoteGateway(adapterCfg config.ClientAdapter, appCfg config.ClientApp, log *logger.Logger) (RemoteGateway, error) {
	baseURL, err := utils.NormalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmptyHTTPAddress, err)
	}

	g := &httpRemoteGateway{
		client:  utils.NewHTTPClient(baseURL, 0),
		timeout: adapterCfg.RequestTimeout,
		logger:  log,
		now:     time.Now,
	}
	if appCfg.HashKey != "" {
		g.hasher = utils.NewHasher(appCfg.HashKey)
	}
	g.SetToken(appCfg.Token)

	return g, nil
}

func (g *httpRemoteGateway) SetToken(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = strings.TrimSpace(token)
}

func (g *httpRemoteGateway) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token
}

func (g *httpRemoteGateway) Push(ctx context.Context, records []models.Record) (models.PushResponse, error) {
	if len(records) == 0 {
		return models.PushResponse{Results: []models.PushItemResult{}}, nil
	}

	var out models.PushResponse
	if err := g.post(ctx, "push", pushPath, models.PushRequest{Records: records}, &out); err != nil {
		return models.PushResponse{}, err
	}

	logger.FromContext(ctx).Debug().
		Str("func", "httpRemoteGateway.Push").
		Int("sent", len(records)).
		Int("results", len(out.Results)).
		Msg("push completed")

	return out, nil
}

func (g *httpRemoteGateway) Pull(ctx context.Context, cursor models.Cursor, pageSize int) (models.PullPage, error) {
	var out models.PullPage
	if err := g.post(ctx, "pull", pullPath, models.PullRequest{Cursor: cursor, PageSize: pageSize}, &out); err != nil {
		return models.PullPage{}, err
	}

	logger.FromContext(ctx).Debug().
		Str("func", "httpRemoteGateway.Pull").
		Int("records", len(out.Records)).
		Bool("has_more", out.HasMore).
		Msg("pull completed")

	return out, nil
}

func (g *httpRemoteGateway) post(ctx context.Context, op, path string, in, out any) error {
	token, err := g.usableToken()
	if err != nil {
		return err
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: encode %s request: %w", ErrPermanent, op, err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if token != "" {
		req.SetAuthToken(token)
	}
	if g.hasher != nil {
		req.SetHeader(HashHeader, g.hasher.SumHex(body))
	}

	resp, err := req.Post(path)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).
			Str("func", "httpRemoteGateway.post").
			Str("op", op).
			Msg("request failed")
		return mapRequestError(op, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return err
	}

	if err = json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: %w: decode %s response: %w", ErrTransport, ErrMalformedReply, op, err)
	}

	return nil
}

// usableToken returns the current token unless it is known to be expired.
// Tokens that cannot be decoded locally are sent as is and left for the
// server to judge.
func (g *httpRemoteGateway) usableToken() (string, error) {
	token := g.Token()
	if token == "" {
		return "", nil
	}

	parsed, err := utils.ParseUnverifiedToken(token)
	if err != nil {
		return token, nil
	}
	if parsed.ExpiredAt(g.now()) {
		return "", fmt.Errorf("%w: %w", ErrAuth, ErrTokenExpired)
	}

	return token, nil
}
