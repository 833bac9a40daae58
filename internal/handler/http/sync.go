package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/service"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

// push applies a batch of records for the authenticated owner and answers
// with one result per submitted record.
func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	owner, found := utils.GetOwnerFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.push").Msg("no owner was given")
		utils.WriteError(w, service.ErrNoOwner.Error(), http.StatusUnauthorized)
		return
	}

	var req models.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Str("func", "*Handler.push").Msg(ErrInvalidJSON.Error())
		utils.WriteError(w, ErrInvalidJSON.Error(), http.StatusBadRequest)
		return
	}
	if req.Records == nil {
		log.Err(service.ErrValidationNoRecords).Str("func", "*Handler.push").Send()
		utils.WriteError(w, service.ErrValidationNoRecords.Error(), statusFromError(service.ErrValidationNoRecords))
		return
	}

	resp, err := h.services.SyncService.Push(ctx, owner, req.Records)
	if err != nil {
		log.Err(err).Str("func", "*Handler.push").Msg("error applying pushed records")
		utils.WriteError(w, "error applying pushed records", statusFromError(err))
		return
	}

	utils.WriteJSON(w, resp, http.StatusOK)
}

// pull returns the page of changes that follows the request cursor.
func (h *Handler) pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	owner, found := utils.GetOwnerFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.pull").Msg("no owner was given")
		utils.WriteError(w, service.ErrNoOwner.Error(), http.StatusUnauthorized)
		return
	}

	var req models.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Str("func", "*Handler.pull").Msg(ErrInvalidJSON.Error())
		utils.WriteError(w, ErrInvalidJSON.Error(), http.StatusBadRequest)
		return
	}

	page, err := h.services.SyncService.Pull(ctx, owner, req)
	if err != nil {
		log.Err(err).Str("func", "*Handler.pull").Msg("error reading changes")
		message := "error reading changes"
		if errors.Is(err, service.ErrInvalidCursor) || errors.Is(err, service.ErrInvalidPageSize) {
			message = err.Error()
		}
		utils.WriteError(w, message, statusFromError(err))
		return
	}
	if page.Records == nil {
		page.Records = []models.Record{}
	}

	utils.WriteJSON(w, page, http.StatusOK)
}
