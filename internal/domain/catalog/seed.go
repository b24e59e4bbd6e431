package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/arena/internal/domain/model"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Items []model.Item `yaml:"items"`
}

// DefaultSeed returns the built-in list of models.
func DefaultSeed() ([]model.Item, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeed reads a YAML seed file. An empty path yields the built-in seed.
func LoadSeed(path string) ([]model.Item, error) {
	if path == "" {
		return DefaultSeed()
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	items, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return items, nil
}

// ParseSeed decodes a seed document of the form `items: [...]`.
func ParseSeed(data []byte) ([]model.Item, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if len(f.Items) == 0 {
		return nil, ErrEmptyCatalog
	}
	return f.Items, nil
}
