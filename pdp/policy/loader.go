// api/pdp/policy/loader.go
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTables reads a YAML tables file. An empty path yields the defaults.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy tables %s: %w", path, err)
	}
	return ParseTables(data)
}

func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse policy tables: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func MarshalTables(t *Tables) ([]byte, error) {
	return yaml.Marshal(t)
}
