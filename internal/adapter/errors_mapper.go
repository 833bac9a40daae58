package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-offline-sync/internal/utils"
)

// mapHTTPError classifies a non-2xx response into one of the sentinel error
// classes.
func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	msg := responseMessage(resp)

	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w: http %d: %s", ErrAuth, code, msg)
	case code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests,
		code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: http %d: %s", ErrTransport, code, msg)
	default:
		return fmt.Errorf("%w: http %d: %s", ErrPermanent, code, msg)
	}
}

// mapRequestError wraps a failure that happened before any response was
// received. Context errors stay matchable with errors.Is.
func mapRequestError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}

func responseMessage(resp *resty.Response) string {
	body := resp.Body()

	var envelope utils.ErrorBody
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		return envelope.Error
	}

	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return http.StatusText(resp.StatusCode())
}
