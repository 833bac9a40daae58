// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv fills cfg from the environment. Variable names come from the
// `envPrefix` and `env` tags on [StructuredConfig], e.g. SYNC_MIN_BACKOFF.
// Unset variables leave their fields zero so that other sources can fill
// them.
func parseEnv(cfg *StructuredConfig) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("error getting env configs: %w", err)
	}

	return nil
}
