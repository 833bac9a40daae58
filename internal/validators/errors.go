package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	// The messages below are reported to clients as push rejection reasons.
	ErrEmptyRecordID       = errors.New("record id is empty")
	ErrInvalidLastModified = errors.New("last_modified must be positive")
	ErrMissingPayload      = errors.New("payload is required for live records")
	ErrInvalidPayload      = errors.New("payload is not a valid JSON document")
	ErrPayloadTooLarge     = errors.New("payload exceeds the size limit")
)
