// Package queries loads the diagnostic statements the monitor runs each cycle
package queries

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v2"
)

// Names of the statements defined in queries.yml
const (
	CPUSample        = "cpu_sample"
	ActiveQueries    = "active_queries"
	BlockingSessions = "blocking_sessions"
)

//go:embed queries.yml
var queriesYAML []byte

// Definition pairs a statement name with its SQL text
type Definition struct {
	Name string `yaml:"name"`
	SQL  string `yaml:"query"`
}

type catalogFile struct {
	Queries []Definition `yaml:"queries"`
}

// Catalog is a lookup of statement name to SQL text
type Catalog map[string]string

// Load parses the embedded query file into a Catalog
func Load() (Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(queriesYAML, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queries configuration: %w", err)
	}

	catalog := make(Catalog, len(file.Queries))
	for _, def := range file.Queries {
		if def.Name == "" || def.SQL == "" {
			return nil, fmt.Errorf("queries configuration contains an incomplete entry named '%s'", def.Name)
		}
		catalog[def.Name] = def.SQL
	}

	return catalog, nil
}

// Get retrieves a statement by name
func (c Catalog) Get(name string) (string, error) {
	sql, ok := c[name]
	if !ok {
		return "", fmt.Errorf("no query named '%s' in the catalog", name)
	}
	return sql, nil
}
