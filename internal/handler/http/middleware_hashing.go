package http

import (
	"bytes"
	"io"
	"net/http"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
)

// hashHeader carries the hex HMAC-SHA256 of the raw request body.
const hashHeader = "HashSHA256"

// verifyHash checks the HashSHA256 header against the request body. It is a
// pass-through when the handler was built without a hash key.
func (h *Handler) verifyHash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.hasher == nil {
			next.ServeHTTP(w, r)
			return
		}
		log := logger.FromRequest(r)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Err(err).Str("func", "*Handler.verifyHash").Msg("failed to read request body")
			utils.WriteError(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		// restore request body
		r.Body = io.NopCloser(bytes.NewReader(body))

		signature := r.Header.Get(hashHeader)
		if signature == "" || !h.hasher.Verify(body, signature) {
			log.Error().Str("func", "*Handler.verifyHash").
				Str("hash from request", signature).
				Msg("hashes are not equal")
			utils.WriteError(w, ErrIntegrityCheckFailed.Error(), http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r)
	})
}
