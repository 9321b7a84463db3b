package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/shapeq/internal/harness"
	"github.com/roach88/shapeq/internal/querysparql"
	"github.com/roach88/shapeq/internal/sparqlclient"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Backends []string
}

// LoadSummary reports how many entities went into each backend.
type LoadSummary struct {
	Scenario string         `json:"scenario"`
	Loaded   map[string]int `json:"loaded"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <scenario-file>",
		Short: "Load scenario entities into persistent backends",
		Long: `Load the fixture entities of a scenario file into a SQLite store,
a badger index or a SPARQL endpoint, so that find and run can query them.

Entities are normalized against the scenario's shapes first. Loading an
identity that already exists replaces it.

Examples:
  shapeq load --db people.db scenarios/people.yaml
  shapeq load --backend index --index ./people.idx scenarios/people.yaml
  shapeq load --backend sqlite --backend sparql --db people.db \
    --endpoint http://localhost:3030/ds/query \
    --update-endpoint http://localhost:3030/ds/update scenarios/people.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Backends, "backend", []string{BackendSQLite}, "backend to load (sqlite|index|sparql), repeatable")

	return cmd
}

func runLoad(opts *LoadOptions, scenarioFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	ctx := cmd.Context()

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	shapesDir := scenario.Shapes
	if opts.Shapes != "" {
		shapesDir = opts.Shapes
	}
	reg, err := loadRegistry(shapesDir)
	if err != nil {
		return err
	}
	records, err := scenario.Records(reg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid scenario entities", err)
	}

	b, err := openBackends(opts.RootOptions, reg, opts.Backends...)
	if err != nil {
		return err
	}
	defer b.Close()

	summary := LoadSummary{Scenario: scenario.Name, Loaded: map[string]int{}}
	for _, name := range opts.Backends {
		var n int
		switch target := b.stores[name].(type) {
		case *sparqlclient.Client:
			insert, err := querysparql.InsertData(reg, records...)
			if err == nil {
				err = target.Update(ctx, insert)
			}
			if err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("failed to load %s", name), err)
			}
			n = len(records)
		default:
			if n, err = putRecords(ctx, target, records); err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("failed to load %s", name), err)
			}
		}
		logger.Debug("backend loaded", "backend", name, "entities", n)
		summary.Loaded[name] = n
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	rows := make([][]string, 0, len(opts.Backends))
	for _, name := range opts.Backends {
		rows = append(rows, []string{name, fmt.Sprint(summary.Loaded[name])})
	}
	formatter.Pass("Loaded scenario %s", scenario.Name)
	formatter.Table([]string{"backend", "entities"}, rows)
	return nil
}
