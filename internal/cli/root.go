package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootOptions holds global flags for all commands. Every field can also
// come from the config file or from a SHAPEQ_ environment variable; flags
// win over both.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigFile string

	Shapes   string // CUE shapes directory
	Database string // SQLite store path
	Index    string // badger index directory
	Endpoint string // SPARQL query endpoint
	Update   string // SPARQL update endpoint, defaults to Endpoint
	Dialect  string // SQL dialect used by render and named queries

	config *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// configKeys are the settings read through viper, keyed by flag name.
var configKeys = []string{"verbose", "format", "shapes", "db", "index", "endpoint", "update-endpoint", "dialect"}

// NewRootCommand creates the root command for the shapeq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{config: viper.New()}

	cmd := &cobra.Command{
		Use:   "shapeq",
		Short: "shapeq - typed queries over shaped entities",
		Long: `Build queries against CUE-declared entity shapes and run them
in memory, on a badger index, on SQLite or on a SPARQL endpoint.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(); err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (yaml)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Shapes, "shapes", "", "CUE shapes directory")
	flags.StringVar(&opts.Database, "db", "", "path to SQLite store")
	flags.StringVar(&opts.Index, "index", "", "path to badger index directory")
	flags.StringVar(&opts.Endpoint, "endpoint", "", "SPARQL query endpoint URL")
	flags.StringVar(&opts.Update, "update-endpoint", "", "SPARQL update endpoint URL (default: --endpoint)")
	flags.StringVar(&opts.Dialect, "dialect", "sqlite", "SQL dialect (sqlite|postgresql|derby)")
	for _, key := range configKeys {
		_ = opts.config.BindPFlag(key, flags.Lookup(key))
	}

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve reads the config file and environment into opts.
func (o *RootOptions) resolve() error {
	if o.config == nil {
		return nil
	}
	v := o.config
	v.SetEnvPrefix("shapeq")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if o.ConfigFile != "" {
		v.SetConfigFile(o.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", o.ConfigFile, err)
		}
	}

	o.Verbose = v.GetBool("verbose")
	o.Format = v.GetString("format")
	o.Shapes = v.GetString("shapes")
	o.Database = v.GetString("db")
	o.Index = v.GetString("index")
	o.Endpoint = v.GetString("endpoint")
	o.Update = v.GetString("update-endpoint")
	o.Dialect = v.GetString("dialect")
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
