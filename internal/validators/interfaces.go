// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators checks records arriving at the sync server before they
// reach storage.
//
// A Validator accepts an optional list of field names that restricts the
// check to those fields. Without it every rule of the model is applied.
package validators

import "context"

// Validator validates a value, optionally restricted to the named fields.
// It returns the first rule that fails.
type Validator interface {
	Validate(ctx context.Context, obj any, fields ...string) error
}
