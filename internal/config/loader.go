package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load reads and validates a pipeline configuration file using Koanf,
// merging it over the built-in defaults.
//
// Error cases:
//   - file not found or unreadable
//   - invalid YAML syntax
//   - cross-field validation failure (see Config.Validate)
func Load(filepath string) (*Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if err := k.Load(file.Provider(filepath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load pipeline config from %q: %w", filepath, err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config from %q: %w", filepath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config validation failed for %q: %w", filepath, err)
	}

	return cfg, nil
}
