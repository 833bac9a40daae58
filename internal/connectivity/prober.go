package connectivity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/utils"
)

// HealthPath is the unauthenticated endpoint probed by [HTTPProber].
const HealthPath = "/api/health"

// ErrUnhealthy is returned when the remote side answers with a server error.
var ErrUnhealthy = errors.New("remote unhealthy")

// Prober actively checks whether the remote side can be reached.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProber probes GET /api/health on the sync server.
type HTTPProber struct {
	client *utils.HTTPClient
}

// NewHTTPProber returns a prober for baseURL. timeout bounds each probe.
func NewHTTPProber(baseURL string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{client: utils.NewHTTPClient(baseURL, timeout)}
}

// Probe reports nil when the server answered with a non-5xx status.
func (p *HTTPProber) Probe(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get(HealthPath)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("%w: http %d", ErrUnhealthy, resp.StatusCode())
	}
	return nil
}
