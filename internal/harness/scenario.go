package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario is a conformance scenario: a set of shapes, fixture entities
// and queries with their expected results.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Shapes is a directory holding the CUE shape package. Relative paths
	// are resolved against the scenario file's directory.
	Shapes string `yaml:"shapes"`

	// Backends lists the backends every query runs on. Default: all
	// local backends.
	Backends []string `yaml:"backends,omitempty"`

	// Entities are loaded into every backend before the queries run.
	Entities []EntitySpec `yaml:"entities"`

	// Queries run in order against each backend.
	Queries []QueryCase `yaml:"queries"`
}

// EntitySpec is one fixture entity.
type EntitySpec struct {
	Identity string         `yaml:"identity"`
	Shape    string         `yaml:"shape"`
	State    map[string]any `yaml:"state"`
}

// QueryCase is one query and its expectation.
type QueryCase struct {
	Name string `yaml:"name"`

	// Shape is the result shape.
	Shape string `yaml:"shape"`

	Where   *Node       `yaml:"where,omitempty"`
	OrderBy []OrderSpec `yaml:"order_by,omitempty"`
	First   *int        `yaml:"first,omitempty"`
	Max     *int        `yaml:"max,omitempty"`

	// Variables are bound at execution.
	Variables map[string]any `yaml:"variables,omitempty"`

	Expect Expectation `yaml:"expect"`
}

// OrderSpec is one ordering segment. Path is a dotted accessor path.
type OrderSpec struct {
	Path string `yaml:"path"`
	Desc bool   `yaml:"desc,omitempty"`
}

// Expectation describes the outcome of a query.
type Expectation struct {
	// Identities are the expected matches. They are compared in order
	// when the query has an order_by and as a set otherwise.
	Identities []string `yaml:"identities,omitempty"`

	// Count is the expected unpaginated count.
	Count *int64 `yaml:"count,omitempty"`

	// Error is the expected query error code, such as
	// UNQUERYABLE_ACCESSOR. No backend may be consulted when it is set.
	Error string `yaml:"error,omitempty"`
}

// Backend names.
const (
	BackendMemory = "memory"
	BackendIndex  = "index"
	BackendSQLite = "sqlite"
	BackendSPARQL = "sparql"
)

// LocalBackends are the backends a scenario runs on by default.
var LocalBackends = []string{BackendMemory, BackendIndex, BackendSQLite}

var knownBackends = append(slices.Clone(LocalBackends), BackendSPARQL)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The shapes path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "expects:" vs "expect:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Shapes != "" && !filepath.IsAbs(scenario.Shapes) {
		scenario.Shapes = filepath.Join(filepath.Dir(path), scenario.Shapes)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Shapes == "" {
		return fmt.Errorf("shapes is required")
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("at least one query is required")
	}

	for _, b := range s.Backends {
		if !slices.Contains(knownBackends, b) {
			return fmt.Errorf("unknown backend %q (expected one of %v)", b, knownBackends)
		}
	}

	for i, e := range s.Entities {
		if e.Identity == "" {
			return fmt.Errorf("entity %d: identity is required", i)
		}
		if e.Shape == "" {
			return fmt.Errorf("entity %s: shape is required", e.Identity)
		}
	}

	seen := make(map[string]bool, len(s.Queries))
	for i, q := range s.Queries {
		if q.Name == "" {
			return fmt.Errorf("query %d: name is required", i)
		}
		if seen[q.Name] {
			return fmt.Errorf("query %s: duplicate name", q.Name)
		}
		seen[q.Name] = true
		if q.Shape == "" {
			return fmt.Errorf("query %s: shape is required", q.Name)
		}
		if q.Expect.Error != "" && (q.Expect.Identities != nil || q.Expect.Count != nil) {
			return fmt.Errorf("query %s: expect.error excludes identities and count", q.Name)
		}
		for j, o := range q.OrderBy {
			if o.Path == "" {
				return fmt.Errorf("query %s: order_by %d: path is required", q.Name, j)
			}
		}
	}
	return nil
}

// backends returns the backends the scenario runs on.
func (s *Scenario) backends() []string {
	if len(s.Backends) == 0 {
		return LocalBackends
	}
	return s.Backends
}
