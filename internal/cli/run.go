package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shapeq/internal/finder"
	"github.com/roach88/shapeq/internal/namedquery"
	"github.com/roach88/shapeq/internal/querysql"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Vars    []string
	OrderBy []string
	First   int
	Max     int
	Print   bool
}

// RunResult is the JSON payload of run.
type RunResult struct {
	Query   string     `json:"query"`
	Backend string     `json:"backend"`
	Text    string     `json:"text"`
	Params  []any      `json:"params,omitempty"`
	Matches []MatchRow `json:"matches,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <catalog-file> <query-name>",
		Short: "Run a named query from a catalog",
		Long: `Compose a named query from a YAML catalog and run it.

SQL queries run on the SQLite store given by --db, SPARQL queries on the
endpoint given by --endpoint. Variables are bound with --var, ordering
terms are given in backend syntax with an optional :desc suffix.
With --print the composed text is printed and nothing runs, which works
for any --dialect.

Examples:
  shapeq run --shapes ./shapes --db people.db queries.yaml peopleBornIn --var "city=Kuala Lumpur"
  shapeq run --shapes ./shapes --db people.db queries.yaml peopleBornIn --var city=Penang \
    --order 'p."year_of_birth":desc' --max 10
  shapeq run --dialect postgresql --print queries.yaml peopleBornIn --var city=Penang`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNamed(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "bind a query variable (name=value), repeatable")
	cmd.Flags().StringArrayVar(&opts.OrderBy, "order", nil, "ordering term (expr[:desc]), repeatable")
	cmd.Flags().IntVar(&opts.First, "first", -1, "index of the first result")
	cmd.Flags().IntVar(&opts.Max, "max", -1, "maximum number of results")
	cmd.Flags().BoolVar(&opts.Print, "print", false, "print the composed query without running it")

	return cmd
}

func runNamed(opts *RunOptions, catalogFile, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dialect, err := querysql.DialectFor(opts.Dialect)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --dialect", err)
	}
	catalog, err := namedquery.Load(catalogFile, namedquery.WithDialect(dialect))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}
	vars, err := parseVars(opts.Vars)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --var", err)
	}

	composed, err := catalog.Compose(name, vars, parseOrder(opts.OrderBy), opts.First, opts.Max)
	if errors.Is(err, namedquery.ErrUnknownQuery) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("known queries: %s", strings.Join(catalog.Names(), ", ")), err)
	}
	if err != nil {
		return queryError(formatter, err)
	}
	formatter.VerboseLog("%s", composed.Text)

	result := RunResult{Query: name, Backend: string(composed.Backend), Text: composed.Text, Params: composed.Params}
	if opts.Print {
		return printComposed(formatter, result)
	}

	backend := BackendSQLite
	if composed.Backend == namedquery.SPARQL {
		backend = BackendSPARQL
	}
	if backend == BackendSQLite && dialect.Name() != "sqlite" {
		return NewExitError(ExitCommandError, fmt.Sprintf("dialect %s can only be printed, use --print", dialect.Name()))
	}
	reg, err := loadRegistry(opts.Shapes)
	if err != nil {
		return err
	}
	b, err := openBackends(opts.RootOptions, reg, backend)
	if err != nil {
		return err
	}
	defer b.Close()

	f := finder.New(finder.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())), finder.WithRegistry(reg))
	res, err := f.ExecuteNamed(cmd.Context(), composed, b.sources[backend])
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

// parseOrder parses expr[:desc] terms. Only a trailing :desc or :asc is
// taken as a direction, so expressions may contain colons.
func parseOrder(terms []string) []namedquery.Order {
	out := make([]namedquery.Order, 0, len(terms))
	for _, t := range terms {
		o := namedquery.Order{Expr: t}
		if expr, ok := strings.CutSuffix(t, ":desc"); ok {
			o = namedquery.Order{Expr: expr, Descending: true}
		} else if expr, ok := strings.CutSuffix(t, ":asc"); ok {
			o.Expr = expr
		}
		out = append(out, o)
	}
	return out
}

func printComposed(formatter *OutputFormatter, result RunResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	formatter.Heading(fmt.Sprintf("%s (%s)", result.Query, result.Backend))
	fmt.Fprintln(formatter.Writer, result.Text)
	if len(result.Params) > 0 {
		fmt.Fprintf(formatter.Writer, "params: %v\n", result.Params)
	}
	return nil
}
