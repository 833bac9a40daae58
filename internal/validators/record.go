package validators

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-offline-sync/models"
)

// Field names accepted by [RecordValidator].
const (
	FieldID           = "id"
	FieldLastModified = "last_modified"
	// FieldPayload requires a well-formed JSON payload on live records.
	FieldPayload = "payload"
	// FieldPayloadSize enforces the configured payload size limit.
	FieldPayloadSize = "payload_size"
)

var defaultRecordFields = []string{FieldID, FieldLastModified, FieldPayload, FieldPayloadSize}

// RecordValidator validates pushed records. Payload rules do not apply to
// tombstones.
type RecordValidator struct {
	maxPayloadBytes int
}

// NewRecordValidator returns a record validator. A maxPayloadBytes of zero
// disables the size limit.
func NewRecordValidator(maxPayloadBytes int) Validator {
	return &RecordValidator{maxPayloadBytes: maxPayloadBytes}
}

func (v *RecordValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.Record:
		return v.validateRecord(ctx, value, fields...)
	case *models.Record:
		return v.validateRecord(ctx, *value, fields...)
	default:
		return ErrUnsupportedType
	}
}

func (v *RecordValidator) validateRecord(_ context.Context, rec models.Record, fields ...string) error {
	if len(fields) == 0 {
		fields = defaultRecordFields
	}

	for _, f := range fields {
		switch f {
		case FieldID:
			if rec.ID == "" {
				return ErrEmptyRecordID
			}
		case FieldLastModified:
			if rec.LastModified <= 0 {
				return ErrInvalidLastModified
			}
		case FieldPayload:
			if rec.Tombstone {
				continue
			}
			if len(rec.Payload) == 0 {
				return ErrMissingPayload
			}
			if !json.Valid(rec.Payload) {
				return ErrInvalidPayload
			}
		case FieldPayloadSize:
			if !rec.Tombstone && v.maxPayloadBytes > 0 && len(rec.Payload) > v.maxPayloadBytes {
				return ErrPayloadTooLarge
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}
