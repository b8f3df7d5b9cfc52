package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/lifeledger/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	EnvFile    string
	DataDir    string
	Backend    string // "file" | "sqlite"
	ConfigPath string

	// Env holds the LIFELEDGER_* settings read before any command runs.
	// Commands fall back to it for flags the user did not set.
	Env config.Environment
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Storage backends accepted by --backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// ValidBackends defines the allowed storage backends.
var ValidBackends = []string{BackendFile, BackendSQLite}

// NewRootCommand creates the root command for the lifeledger CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

// Execute runs the root command with os.Args and reports a failure on
// stderr, or as an error envelope on stdout with --format json. It returns
// the process exit code.
func Execute() int {
	cmd, opts := newRootCommand()
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	if opts.Format == "json" {
		f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		_ = f.Error(errorCode(err), err.Error(), nil)
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	}
	return GetExitCode(err)
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lifeledger",
		Short: "lifeledger - participant resource ledger",
		Long: `A ledger of per-participant life resource for competitive game servers.

Participants hold a bounded resource level. Defeating another participant
moves resource from the loser to the winner; records persist per participant
in YAML files or a SQLite database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if err := opts.resolve(cmd.Flags()); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "load LIFELEDGER_* variables from a .env file")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "record directory (default $LIFELEDGER_DATA_DIR or ./data)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend (file|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "configuration file (default $LIFELEDGER_CONFIG or ./config.yml)")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewTopCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))

	return cmd, opts
}

// resolve reads the environment (after the optional .env file) and fills
// every flag the user left unset from it.
func (o *RootOptions) resolve(flags *pflag.FlagSet) error {
	if o.EnvFile != "" {
		if err := godotenv.Load(o.EnvFile); err != nil {
			return WrapExitError(ExitCommandError, "failed to load env file", err)
		}
	}

	env, err := config.LoadEnvironment()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid environment", err)
	}
	o.Env = env

	if !flags.Changed("data-dir") {
		o.DataDir = env.DataDir
	}
	if !flags.Changed("backend") {
		o.Backend = env.Backend
	}
	if !flags.Changed("config") {
		o.ConfigPath = env.ConfigPath
	}

	if !slices.Contains(ValidBackends, o.Backend) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid backend %q: must be one of %v", o.Backend, ValidBackends))
	}
	return nil
}

// setupLogging installs the process-wide slog handler.
func setupLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
