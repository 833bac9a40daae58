package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClient is a wrapper around resty.Client. It embeds *resty.Client so all
// of its methods are available directly.
//
//	client := utils.NewHTTPClient("http://localhost:8080", 5*time.Second)
//	resp, err := client.R().Get("/api/health")
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient creates a client bound to baseURL. A positive timeout caps
// every request made through it. Retries are left to the caller: the sync
// orchestrator owns the backoff policy.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &HTTPClient{Client: client}
}

// ErrEmptyBaseURL is returned by NormalizeBaseURL for a blank address.
var ErrEmptyBaseURL = errors.New("empty base url")

// NormalizeBaseURL accepts "host:port" or a full URL and returns a URL with a
// scheme and without a trailing slash.
func NormalizeBaseURL(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", ErrEmptyBaseURL
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	return strings.TrimRight(address, "/"), nil
}
