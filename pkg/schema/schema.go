// Package schema loads the offline schema map produced by the schema-
// generation console tool. The map is a static substitute for live metadata
// fetches, useful for cold starts and air-gapped hosts.
package schema

import (
	"fmt"
	"os"
	"strings"

	"github.com/jinzhu/inflection"
	"gopkg.in/yaml.v3"
)

// Map is the static entity metadata map plus the relationship list.
type Map struct {
	Entities      map[string]Entity `yaml:"entities"`
	Relationships []Relationship    `yaml:"relationships"`
}

// Entity is the static metadata for one entity type.
type Entity struct {
	DisplayName      string            `yaml:"display_name"`
	IDField          string            `yaml:"id_field"`
	PrimaryNameField string            `yaml:"primary_name_field"`
	Attributes       map[string]string `yaml:"attributes"`
}

// Relationship describes one traversable relationship between entity types.
type Relationship struct {
	SchemaName string `yaml:"schema_name"`
	From       string `yaml:"from"`
	To         string `yaml:"to"`
	ManyToMany bool   `yaml:"many_to_many"`
}

// Load reads and validates a schema map from a YAML file.
func Load(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema map %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a schema map from YAML.
func Parse(raw []byte) (*Map, error) {
	var m Map
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse schema map: %w", err)
	}

	if len(m.Entities) == 0 {
		return nil, fmt.Errorf("schema map defines no entities")
	}
	for name, entity := range m.Entities {
		if entity.IDField == "" {
			return nil, fmt.Errorf("schema map entity %q has no id_field", name)
		}
	}

	return &m, nil
}

// DeriveDisplayName produces a fallback display name from an entity logical
// name: singularize (logical names from some sources are plural table names)
// and capitalize the first letter.
func DeriveDisplayName(logicalName string) string {
	name := inflection.Singular(logicalName)
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
