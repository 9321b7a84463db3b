package cli

import (
	"fmt"
	"maps"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/shapeq/internal/finder"
	"github.com/roach88/shapeq/internal/harness"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/queryir"
)

// FindOptions holds flags for the find command.
type FindOptions struct {
	*RootOptions
	Backend string
	Vars    []string
	Count   bool
}

// FindResult is the JSON payload of find.
type FindResult struct {
	Query   string     `json:"query"`
	Backend string     `json:"backend"`
	Matches []MatchRow `json:"matches,omitempty"`
	Count   *int64     `json:"count,omitempty"`
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find <scenario-file> <query-name>",
		Short: "Run a scenario query against a persistent backend",
		Long: `Build one query of a scenario file and run it against a SQLite
store, a badger index or a SPARQL endpoint.

The query's variables come from the scenario and can be overridden with
--var. Expectations in the scenario are ignored.

Examples:
  shapeq find --db people.db scenarios/people.yaml born_after_1973
  shapeq find --db people.db scenarios/people.yaml born_in_city --var "city=George Town"
  shapeq find --backend index --index ./people.idx --count scenarios/people.yaml by_name`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", BackendSQLite, "backend to query (sqlite|index|sparql)")
	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "bind a query variable (name=value), repeatable")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the match count instead of the matches")

	return cmd
}

func runFind(opts *FindOptions, scenarioFile, queryName string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	var qc *harness.QueryCase
	for i := range scenario.Queries {
		if scenario.Queries[i].Name == queryName {
			qc = &scenario.Queries[i]
		}
	}
	if qc == nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenario %s has no query %q", scenario.Name, queryName))
	}

	cliVars, err := parseVars(opts.Vars)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --var", err)
	}
	vars := query.Bindings{}
	maps.Copy(vars, qc.Variables)
	maps.Copy(vars, cliVars)

	shapesDir := scenario.Shapes
	if opts.Shapes != "" {
		shapesDir = opts.Shapes
	}
	reg, err := loadRegistry(shapesDir)
	if err != nil {
		return err
	}
	spec, err := harness.Spec(reg, *qc)
	if err != nil {
		return queryError(formatter, err)
	}

	b, err := openBackends(opts.RootOptions, reg, opts.Backend)
	if err != nil {
		return err
	}
	defer b.Close()

	f := finder.New(finder.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())), finder.WithRegistry(reg))
	src := b.sources[opts.Backend]
	result := FindResult{Query: queryName, Backend: src.Backend()}

	if opts.Count {
		n, err := f.Count(ctx, spec, src, vars)
		if err != nil {
			return queryError(formatter, err)
		}
		result.Count = &n
		if formatter.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintln(formatter.Writer, formatter.colorize(fmt.Sprintf("%d", n), color.FgCyan))
		return nil
	}

	res, err := f.Execute(ctx, spec, src, vars)
	if err != nil {
		return queryError(formatter, err)
	}
	if result.Matches, err = collectRows(reg, res); err != nil {
		return queryError(formatter, err)
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return printRows(formatter, result.Matches)
}

// queryError reports a query failure with its query error code when it
// has one.
func queryError(formatter *OutputFormatter, err error) error {
	code := string(queryir.Code(err))
	if code == "" {
		code = ErrCodeGeneric
	}
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitFailure, "query failed", err)
}
