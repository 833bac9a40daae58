package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
)

// configBuilder collects config layers in priority order: env, flags, the
// JSON file named by either of them, then defaults.
type configBuilder struct {
	configs []*StructuredConfig
	err     error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{
		configs: make([]*StructuredConfig, 0, 4),
	}
}

// build merges the collected layers. mergo.Merge only fills zero fields of
// the destination, so earlier layers win.
func (b *configBuilder) build() (*StructuredConfig, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	merged := new(StructuredConfig)
	for _, layer := range b.configs {
		if err := mergo.Merge(merged, layer); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	return merged, merged.validate()
}

// add appends layer unless err is set, in which case err is accumulated and
// reported by build.
func (b *configBuilder) add(layer *StructuredConfig, err error) *configBuilder {
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	if layer != nil {
		b.configs = append(b.configs, layer)
	}
	return b
}

func (b *configBuilder) withEnv() *configBuilder {
	envCfg := &StructuredConfig{}
	return b.add(envCfg, parseEnv(envCfg))
}

func (b *configBuilder) withFlags(args []string) *configBuilder {
	return b.add(ParseFlags(args))
}

// withJSON loads the file named by the last layer that set JSONFilePath.
func (b *configBuilder) withJSON() *configBuilder {
	var path string
	for _, layer := range b.configs {
		if layer.JSONFilePath != "" {
			path = layer.JSONFilePath
		}
	}
	if path == "" {
		return b
	}

	return b.add(parseJSON(path))
}

func (b *configBuilder) withDefaults() *configBuilder {
	return b.add(defaults(), nil)
}
