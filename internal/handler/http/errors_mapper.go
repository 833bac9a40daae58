package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-offline-sync/internal/service"
	"github.com/MKhiriev/go-offline-sync/internal/store"
)

var errorStatusMap = map[error]int{
	service.ErrInvalidCursor:           http.StatusBadRequest,
	service.ErrInvalidPageSize:         http.StatusBadRequest,
	service.ErrValidationNoRecords:     http.StatusBadRequest,
	service.ErrNoOwner:                 http.StatusUnauthorized,
	service.ErrTokenIsExpired:          http.StatusUnauthorized,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,

	store.ErrBuildingSQLQuery:     http.StatusInternalServerError,
	store.ErrExecutingQuery:       http.StatusInternalServerError,
	store.ErrBeginningTransaction: http.StatusServiceUnavailable,
	store.ErrCommitingTransaction: http.StatusServiceUnavailable,
	store.ErrExecutingStatement:   http.StatusInternalServerError,
	store.ErrScanningRow:          http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
