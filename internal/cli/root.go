package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/kvrecord/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Backend    string
	Path       string

	viper *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the kvrecord CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{viper: viper.New()}

	cmd := &cobra.Command{
		Use:   "kvrecord",
		Short: "kvrecord - records over a key-value store",
		Long: `Store, read and remove collection records kept in a key-value substrate.

Each collection keeps an index of its record ids under the collection name
and one entry per record under "<collection>-<id>".`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (YAML)")
	flags.StringVar(&opts.Backend, "backend", "", "substrate backend (memory|sqlite|leveldb)")
	flags.StringVar(&opts.Path, "path", "", "database file or directory for durable backends")
	_ = opts.viper.BindPFlag("backend", flags.Lookup("backend"))
	_ = opts.viper.BindPFlag("path", flags.Lookup("path"))

	// Add subcommands
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewSizeCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// LoadConfig resolves settings from the config file, environment and flags.
func (o *RootOptions) LoadConfig() (*config.Config, error) {
	v := o.viper
	if v == nil {
		v = viper.New()
		if o.Backend != "" {
			v.Set("backend", o.Backend)
		}
		if o.Path != "" {
			v.Set("path", o.Path)
		}
	}
	cfg, err := config.Load(v, o.ConfigFile)
	if err != nil {
		return nil, err
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// Logger builds the diagnostic logger, writing to the command's stderr.
// JSON output gets a JSON handler so logs stay machine-readable.
func (o *RootOptions) Logger(cmd *cobra.Command, level slog.Level) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: level}
	if o.Format == "json" {
		return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), handlerOpts))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), handlerOpts))
}

// Formatter returns an OutputFormatter for cmd.
func (o *RootOptions) Formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:  o.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
