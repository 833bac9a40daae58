package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/events"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

type idGenerator interface {
	Generate() string
}

type recordService struct {
	store     store.LocalStore
	publisher events.Publisher
	ids       idGenerator
	logger    *logger.Logger
}

// NewRecordService returns the application-facing mutation path over
// localStore. Changes are announced on publisher.
func NewRecordService(localStore store.LocalStore, publisher events.Publisher, log *logger.Logger) RecordService {
	return &recordService{
		store:     localStore,
		publisher: publisher,
		ids:       utils.NewUUIDGenerator(),
		logger:    log,
	}
}

func (s *recordService) Create(ctx context.Context, payload json.RawMessage) (models.Record, error) {
	return s.Put(ctx, s.ids.Generate(), payload)
}

func (s *recordService) Put(ctx context.Context, id string, payload json.RawMessage) (models.Record, error) {
	if id == "" {
		return models.Record{}, ErrEmptyRecordID
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return models.Record{}, ErrInvalidPayload
	}

	rec, err := s.store.Put(ctx, id, payload)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordService.Put").
			Str("id", id).
			Msg("failed to store record")
		return models.Record{}, fmt.Errorf("put record: %w", err)
	}

	s.publisher.Publish(models.RecordChanged{ID: id})
	return rec, nil
}

func (s *recordService) Delete(ctx context.Context, id string) (models.Record, error) {
	if id == "" {
		return models.Record{}, ErrEmptyRecordID
	}

	rec, err := s.store.Delete(ctx, id)
	if err != nil {
		return models.Record{}, mapStoreError("delete record", err)
	}

	s.publisher.Publish(models.RecordChanged{ID: id})
	return rec, nil
}

func (s *recordService) Get(ctx context.Context, id string) (models.Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Record{}, mapStoreError("get record", err)
	}
	if rec.Tombstone {
		return models.Record{}, ErrRecordNotFound
	}

	return rec, nil
}

func (s *recordService) List(ctx context.Context) ([]models.Record, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

func (s *recordService) ResolveConflict(ctx context.Context, id string, keepLocal bool) error {
	var err error
	if keepLocal {
		_, err = s.store.KeepLocal(ctx, id)
	} else {
		err = s.store.AcceptRemoteDeletion(ctx, id)
	}
	if err != nil {
		return mapStoreError("resolve conflict", err)
	}

	logger.FromContext(ctx).Info().
		Str("func", "recordService.ResolveConflict").
		Str("id", id).
		Bool("keep_local", keepLocal).
		Msg("conflict resolved")

	s.publisher.Publish(models.RecordChanged{ID: id})
	return nil
}

func mapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrRecordNotFound)
	case errors.Is(err, store.ErrRecordNotConflicted):
		return fmt.Errorf("%s: %w", op, ErrNotConflicted)
	}
	return fmt.Errorf("%s: %w", op, err)
}
