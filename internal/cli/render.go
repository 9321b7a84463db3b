package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/shapeq/internal/harness"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/querysparql"
	"github.com/roach88/shapeq/internal/querysql"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	AllDialects bool
	NoSPARQL    bool
	Vars        []string
}

// Rendering is the backend text of one query. A translator that rejects
// the query leaves Error set instead.
type Rendering struct {
	Query    string `json:"query"`
	Language string `json:"language"` // "sql/<dialect>" or "sparql"
	Text     string `json:"text,omitempty"`
	Count    string `json:"count,omitempty"`
	Params   []any  `json:"params,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <scenario-file> [query-name...]",
		Short: "Print the SQL and SPARQL a scenario's queries translate to",
		Long: `Translate the queries of a scenario file without running them.

Each query is printed as SQL in the --dialect (or every dialect with
--all-dialects) and as SPARQL, each with its count form. Without query
names every query of the scenario is rendered.

Examples:
  shapeq render scenarios/people.yaml
  shapeq render --dialect postgresql scenarios/people.yaml born_in_city
  shapeq render --all-dialects --no-sparql scenarios/people.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.AllDialects, "all-dialects", false, "render SQL for every dialect")
	cmd.Flags().BoolVar(&opts.NoSPARQL, "no-sparql", false, "skip the SPARQL rendering")
	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "bind a query variable (name=value), repeatable")

	return cmd
}

func runRender(opts *RenderOptions, scenarioFile string, names []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dialects, err := renderDialects(opts)
	if err != nil {
		return err
	}
	cliVars, err := parseVars(opts.Vars)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --var", err)
	}

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

	var cases []harness.QueryCase
	for _, qc := range scenario.Queries {
		if len(names) == 0 || slices.Contains(names, qc.Name) {
			cases = append(cases, qc)
		}
	}
	for _, name := range names {
		if !slices.ContainsFunc(cases, func(qc harness.QueryCase) bool { return qc.Name == name }) {
			return NewExitError(ExitCommandError, fmt.Sprintf("scenario %s has no query %q", scenario.Name, name))
		}
	}

	var renderings []Rendering
	for _, qc := range cases {
		vars := query.Bindings{}
		maps.Copy(vars, qc.Variables)
		maps.Copy(vars, cliVars)

		spec, err := harness.Spec(reg, qc)
		if err != nil {
			renderings = append(renderings, Rendering{Query: qc.Name, Language: "spec", Error: err.Error()})
			continue
		}
		for _, d := range dialects {
			renderings = append(renderings, renderSQL(qc.Name, d, spec, vars))
		}
		if !opts.NoSPARQL {
			renderings = append(renderings, renderSPARQL(qc.Name, spec, vars))
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(renderings)
	}
	for _, r := range renderings {
		formatter.Heading(fmt.Sprintf("-- %s [%s]", r.Query, r.Language))
		if r.Error != "" {
			formatter.Fail("%s", r.Error)
			fmt.Fprintln(formatter.Writer)
			continue
		}
		fmt.Fprintln(formatter.Writer, r.Text)
		fmt.Fprintln(formatter.Writer, r.Count)
		if len(r.Params) > 0 {
			fmt.Fprintf(formatter.Writer, "params: %v\n", r.Params)
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

func renderDialects(opts *RenderOptions) ([]querysql.Dialect, error) {
	if opts.AllDialects {
		return []querysql.Dialect{querysql.SQLite{}, querysql.PostgreSQL{}, querysql.Derby{}}, nil
	}
	d, err := querysql.DialectFor(opts.Dialect)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --dialect", err)
	}
	return []querysql.Dialect{d}, nil
}

func renderSQL(name string, d querysql.Dialect, spec query.Specification, vars query.Bindings) Rendering {
	r := Rendering{Query: name, Language: querysql.Backend + "/" + d.Name()}
	st, err := querysql.NewCompiler(d).Compile(spec, vars)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Text, r.Count, r.Params = st.SQL, st.CountSQL, st.Params
	return r
}

func renderSPARQL(name string, spec query.Specification, vars query.Bindings) Rendering {
	r := Rendering{Query: name, Language: querysparql.Backend}
	var err error
	if r.Text, err = querysparql.Translate(spec, vars); err == nil {
		r.Count, err = querysparql.TranslateCount(spec, vars)
	}
	if err != nil {
		return Rendering{Query: name, Language: querysparql.Backend, Error: err.Error()}
	}
	return r
}
