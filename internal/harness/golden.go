package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/shapeq/internal/ir"
)

// Snapshot renders a result as canonical JSON: the rendered SQL and
// SPARQL of every query followed by each backend's outcome.
func Snapshot(result *Result) ([]byte, error) {
	renders := make([]any, len(result.Renders))
	for i, r := range result.Renders {
		renders[i] = map[string]any{
			"query":     r.Query,
			"sql":       r.SQL,
			"count_sql": r.CountSQL,
			"params":    r.Params,
			"sparql":    r.SPARQL,
		}
	}
	outcomes := make([]any, len(result.Outcomes))
	for i, o := range result.Outcomes {
		m := map[string]any{
			"query":      o.Query,
			"backend":    o.Backend,
			"identities": o.Identities,
			"count":      o.Count,
		}
		if o.Error != "" {
			m["error"] = o.Error
		}
		outcomes[i] = m
	}

	v, err := ir.FromGo(map[string]any{
		"scenario": result.Scenario,
		"renders":  renders,
		"outcomes": outcomes,
	})
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(v)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check Pass; snapshot mismatches fail
// the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares a result's snapshot against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
