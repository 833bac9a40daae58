// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MKhiriev/go-offline-sync/models"
)

func validRecord() models.Record {
	return models.Record{ID: "42", Payload: json.RawMessage(`{"title":"note"}`), LastModified: 100}
}

func TestRecordValidator_Validate(t *testing.T) {
	v := NewRecordValidator(32)

	tests := []struct {
		name    string
		mutate  func(r *models.Record)
		wantErr error
	}{
		{name: "valid", mutate: func(r *models.Record) {}},
		{name: "empty id", mutate: func(r *models.Record) { r.ID = "" }, wantErr: ErrEmptyRecordID},
		{name: "zero timestamp", mutate: func(r *models.Record) { r.LastModified = 0 }, wantErr: ErrInvalidLastModified},
		{name: "negative timestamp", mutate: func(r *models.Record) { r.LastModified = -5 }, wantErr: ErrInvalidLastModified},
		{name: "no payload", mutate: func(r *models.Record) { r.Payload = nil }, wantErr: ErrMissingPayload},
		{name: "broken json", mutate: func(r *models.Record) { r.Payload = json.RawMessage(`{"a":`) }, wantErr: ErrInvalidPayload},
		{name: "too large", mutate: func(r *models.Record) {
			r.Payload = json.RawMessage(`"` + strings.Repeat("x", 40) + `"`)
		}, wantErr: ErrPayloadTooLarge},
		{name: "tombstone without payload", mutate: func(r *models.Record) { r.Payload = nil; r.Tombstone = true }},
		{name: "tombstone still needs an id", mutate: func(r *models.Record) { r.ID = ""; r.Tombstone = true }, wantErr: ErrEmptyRecordID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			err := v.Validate(context.Background(), rec)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)

			// pointers are accepted too
			assert.ErrorIs(t, v.Validate(context.Background(), &rec), tt.wantErr)
		})
	}
}

func TestRecordValidator_Fields(t *testing.T) {
	v := NewRecordValidator(0)
	rec := models.Record{ID: "", Payload: json.RawMessage(`{}`), LastModified: 0}

	assert.ErrorIs(t, v.Validate(context.Background(), rec), ErrEmptyRecordID)
	assert.ErrorIs(t, v.Validate(context.Background(), rec, FieldLastModified), ErrInvalidLastModified)
	assert.NoError(t, v.Validate(context.Background(), rec, FieldPayload, FieldPayloadSize))
	assert.ErrorIs(t, v.Validate(context.Background(), rec, "owner"), ErrUnknownField)
}

func TestRecordValidator_NoSizeLimit(t *testing.T) {
	v := NewRecordValidator(0)
	rec := validRecord()
	rec.Payload = json.RawMessage(`"` + strings.Repeat("x", 1<<16) + `"`)

	assert.NoError(t, v.Validate(context.Background(), rec))
}

func TestRecordValidator_UnsupportedType(t *testing.T) {
	v := NewRecordValidator(0)

	assert.ErrorIs(t, v.Validate(context.Background(), "42"), ErrUnsupportedType)
	assert.ErrorIs(t, v.Validate(context.Background(), models.PushRequest{}), ErrUnsupportedType)
}
