package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/shapeq/internal/shape"
)

// Cycle levels.
const (
	LevelError   = "error"
	LevelWarning = "warning"
)

// ShapeCycle reports a cycle among shape declarations.
//
// An extends cycle is an error: no shape may inherit from itself. A cycle
// through value-object properties is a warning, since a nullable nested
// value breaks the recursion at runtime.
type ShapeCycle struct {
	Path    []string `json:"path"`    // ["A", "B", "A"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "error" or "warning"
}

// AnalyzeCycles finds cycles in the extends graph and in the value-object
// containment graph using Tarjan's strongly connected components. Acyclic
// declarations return an empty list.
func AnalyzeCycles(descriptors []*shape.Descriptor) []ShapeCycle {
	extends := make(shapeGraph)
	contains := make(shapeGraph)
	for _, d := range descriptors {
		extends[d.Name] = append(extends[d.Name], d.Extends...)
		if contains[d.Name] == nil {
			contains[d.Name] = []string{}
		}
		for _, a := range d.Accessors {
			if a.Kind == shape.Property && a.Value.IsValueObject() {
				contains[d.Name] = append(contains[d.Name], a.Value.Shape)
			}
		}
	}

	cycles := []ShapeCycle{}
	for _, scc := range tarjanSCC(extends) {
		if len(scc) > 1 || hasSelfLoop(scc[0], extends) {
			path := reconstructCyclePath(scc, extends)
			cycles = append(cycles, ShapeCycle{
				Path:    path,
				Message: fmt.Sprintf("inheritance cycle: %s", strings.Join(path, " → ")),
				Level:   LevelError,
			})
		}
	}
	for _, scc := range tarjanSCC(contains) {
		if len(scc) > 1 || hasSelfLoop(scc[0], contains) {
			path := reconstructCyclePath(scc, contains)
			cycles = append(cycles, ShapeCycle{
				Path:    path,
				Message: fmt.Sprintf("recursive value object: %s", strings.Join(path, " → ")),
				Level:   LevelWarning,
			})
		}
	}
	return cycles
}

// shapeGraph maps a shape name to the shapes it points at.
type shapeGraph map[string][]string

func hasSelfLoop(node string, graph shapeGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results are deterministic.
func tarjanSCC(graph shapeGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}

	return sccs
}

// reconstructCyclePath walks edges inside an SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, graph shapeGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
