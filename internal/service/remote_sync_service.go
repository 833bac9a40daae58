package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/internal/validators"
	"github.com/MKhiriev/go-offline-sync/models"
)

const (
	defaultPullPageSize = 200
	maxPullPageSize     = 1000

	cursorPrefix = "seq:"
)

// reasonDuplicateInBatch rejects every repetition of an id after the first
// one in a push.
const reasonDuplicateInBatch = "record id appears more than once in the batch"

type remoteSyncService struct {
	repo      store.RemoteRecordRepository
	validator validators.Validator
	logger    *logger.Logger
}

// NewRemoteSyncService serves the push/pull protocol over repo. Payloads
// larger than maxPayloadBytes are rejected; zero disables the limit.
func NewRemoteSyncService(repo store.RemoteRecordRepository, maxPayloadBytes int, log *logger.Logger) RemoteSyncService {
	return &remoteSyncService{
		repo:      repo,
		validator: validators.NewRecordValidator(maxPayloadBytes),
		logger:    log,
	}
}

func (s *remoteSyncService) Push(ctx context.Context, owner string, records []models.Record) (models.PushResponse, error) {
	if owner == "" {
		return models.PushResponse{}, ErrNoOwner
	}

	log := logger.FromContext(ctx)
	resp := models.PushResponse{Results: make([]models.PushItemResult, 0, len(records))}
	seen := make(map[string]struct{}, len(records))

	for _, rec := range records {
		if err := s.validator.Validate(ctx, rec); err != nil {
			resp.Results = append(resp.Results, rejected(rec.ID, err.Error()))
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			resp.Results = append(resp.Results, rejected(rec.ID, reasonDuplicateInBatch))
			continue
		}
		seen[rec.ID] = struct{}{}

		stored, err := s.repo.Apply(ctx, owner, rec)
		if err != nil {
			log.Err(err).
				Str("func", "remoteSyncService.Push").
				Str("owner", owner).
				Str("id", rec.ID).
				Msg("failed to apply pushed record")
			return models.PushResponse{}, fmt.Errorf("apply record %s: %w", rec.ID, err)
		}

		resp.Results = append(resp.Results, models.PushItemResult{
			ID:              rec.ID,
			Status:          models.PushStatusAcked,
			ServerTimestamp: stored.LastModified,
		})
	}

	log.Debug().
		Str("func", "remoteSyncService.Push").
		Str("owner", owner).
		Int("records", len(records)).
		Msg("push applied")

	return resp, nil
}

func (s *remoteSyncService) Pull(ctx context.Context, owner string, req models.PullRequest) (models.PullPage, error) {
	if owner == "" {
		return models.PullPage{}, ErrNoOwner
	}
	if req.PageSize < 0 {
		return models.PullPage{}, fmt.Errorf("%w: %d", ErrInvalidPageSize, req.PageSize)
	}

	pageSize := req.PageSize
	switch {
	case pageSize == 0:
		pageSize = defaultPullPageSize
	case pageSize > maxPullPageSize:
		pageSize = maxPullPageSize
	}

	afterSeq, err := DecodeCursor(req.Cursor)
	if err != nil {
		return models.PullPage{}, err
	}

	changes, err := s.repo.ChangesSince(ctx, owner, afterSeq, pageSize+1)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "remoteSyncService.Pull").
			Str("owner", owner).
			Int64("after_seq", afterSeq).
			Msg("failed to read change feed")
		return models.PullPage{}, fmt.Errorf("read changes: %w", err)
	}

	page := models.PullPage{Records: make([]models.Record, 0, min(len(changes), pageSize))}
	if len(changes) > pageSize {
		page.HasMore = true
		changes = changes[:pageSize]
	}
	for _, ch := range changes {
		page.Records = append(page.Records, ch.Record)
	}

	page.NextCursor = req.Cursor
	if len(changes) > 0 {
		page.NextCursor = EncodeCursor(changes[len(changes)-1].Seq)
	}

	return page, nil
}

func rejected(id, reason string) models.PushItemResult {
	return models.PushItemResult{ID: id, Status: models.PushStatusRejected, Reason: reason}
}

// EncodeCursor renders a change-feed sequence number as an opaque cursor.
func EncodeCursor(seq int64) models.Cursor {
	return models.Cursor(base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.FormatInt(seq, 10))))
}

// DecodeCursor parses a cursor produced by EncodeCursor. The empty cursor
// denotes the start of the feed.
func DecodeCursor(c models.Cursor) (int64, error) {
	if c == "" {
		return 0, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}

	digits, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: unknown format", ErrInvalidCursor)
	}

	seq, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("%w: bad sequence %q", ErrInvalidCursor, digits)
	}

	return seq, nil
}
