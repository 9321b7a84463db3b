package harness

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/queryir"
	"github.com/roach88/shapeq/internal/template"
)

// Node is a predicate written in a scenario. Each node is a mapping with
// a single operator key:
//
//	and: [node, node, ...]
//	or:  [node, node, ...]
//	not: node
//	ge:  {path: yearOfBirth, value: 1973}
//	eq:  {path: placeOfBirth.name, var: city}
//	isNull: email
//
// Paths are dotted accessor names resolved from the query's result shape.
type Node struct {
	Op       string
	Path     string
	Value    any
	Var      string
	Operands []Node
}

type leafFactory func(queryir.Reference, any) (queryir.Predicate, error)

var leaves = map[string]leafFactory{
	"eq":                  query.Eq,
	"ne":                  query.Ne,
	"lt":                  query.Lt,
	"le":                  query.Le,
	"gt":                  query.Gt,
	"ge":                  query.Ge,
	"matches":             query.Matches,
	"contains":            query.Contains,
	"containsAll":         query.ContainsAll,
	"containsAssociation": query.ContainsAssociation,
	"containsName":        query.ContainsName,
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return fmt.Errorf("line %d: predicate must be a mapping with exactly one operator", value.Line)
	}
	n.Op = value.Content[0].Value
	body := value.Content[1]

	switch n.Op {
	case "and", "or":
		if err := body.Decode(&n.Operands); err != nil {
			return err
		}
		if len(n.Operands) < 2 {
			return fmt.Errorf("line %d: %s needs at least two operands", body.Line, n.Op)
		}
		return nil

	case "not":
		var inner Node
		if err := body.Decode(&inner); err != nil {
			return err
		}
		n.Operands = []Node{inner}
		return nil

	case "isNull", "isNotNull":
		if body.Kind != yaml.ScalarNode || body.Value == "" {
			return fmt.Errorf("line %d: %s takes an accessor path", body.Line, n.Op)
		}
		n.Path = body.Value
		return nil
	}

	if _, ok := leaves[n.Op]; !ok {
		return fmt.Errorf("line %d: unknown operator %q (expected one of %v)", value.Line, n.Op, Operators())
	}
	var leaf struct {
		Path  string `yaml:"path"`
		Value any    `yaml:"value"`
		Var   string `yaml:"var"`
	}
	if err := body.Decode(&leaf); err != nil {
		return err
	}
	if leaf.Path == "" {
		return fmt.Errorf("line %d: %s needs a path", body.Line, n.Op)
	}
	if hasKey(body, "value") == (leaf.Var != "") {
		return fmt.Errorf("line %d: %s needs exactly one of value or var", body.Line, n.Op)
	}
	n.Path, n.Value, n.Var = leaf.Path, leaf.Value, leaf.Var
	return nil
}

func hasKey(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return true
		}
	}
	return false
}

// Predicate builds the predicate with the query factories, so every path
// and value is checked against the shapes.
func (n Node) Predicate(t template.Template) (queryir.Predicate, error) {
	switch n.Op {
	case "and", "or", "not":
		ops := make([]queryir.Predicate, len(n.Operands))
		for i, o := range n.Operands {
			p, err := o.Predicate(t)
			if err != nil {
				return nil, err
			}
			ops[i] = p
		}
		switch n.Op {
		case "and":
			return query.And(ops[0], ops[1], ops[2:]...), nil
		case "or":
			return query.Or(ops[0], ops[1], ops[2:]...), nil
		}
		return query.Not(ops[0]), nil
	}

	ref, err := resolvePath(t, n.Path)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "isNull":
		return query.IsNull(ref)
	case "isNotNull":
		return query.IsNotNull(ref)
	}

	factory, ok := leaves[n.Op]
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", n.Op)
	}
	if n.Var != "" {
		return factory(ref, query.Var(n.Var))
	}
	return factory(ref, n.Value)
}

func resolvePath(t template.Template, path string) (queryir.Reference, error) {
	return t.Path(strings.Split(path, ".")...)
}

// Operators lists the operator keys a Node accepts.
func Operators() []string {
	ops := []string{"and", "or", "not", "isNull", "isNotNull"}
	for op := range leaves {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}
