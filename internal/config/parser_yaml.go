package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseYAML reads configuration content as YAML using the same schema as JSONC.
//
// Unknown keys are rejected, matching the JSONC decoder.
func ParseYAML(content string, base Config) (Config, []Warning, error) {
	if strings.TrimSpace(content) == "" {
		return Parse("", base)
	}

	decoder := yaml.NewDecoder(strings.NewReader(content))
	decoder.KnownFields(true)

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return Parse("", base)
		}
		return Config{}, nil, fmt.Errorf("yaml: %w", err)
	}

	var extra yaml.Node
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return Config{}, nil, fmt.Errorf("yaml: %w", err)
		}
		return Config{}, nil, errors.New("multiple YAML documents are not allowed")
	}

	return payload.materialize(base)
}
