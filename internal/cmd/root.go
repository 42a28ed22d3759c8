package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/pkglog/internal/config"
	"github.com/Iron-Ham/pkglog/internal/errors"
	"github.com/Iron-Ham/pkglog/internal/level"
	"github.com/Iron-Ham/pkglog/internal/logging"
	"github.com/Iron-Ham/pkglog/internal/provider"
)

// app carries the state shared by every subcommand of one root command.
type app struct {
	cfgFile string
	v       *viper.Viper
}

// NewRootCmd builds the pkglog command tree. Each call returns an
// independent tree with its own configuration.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "pkglog",
		Short: "Write, inspect and follow date-partitioned log files",
		Long: `pkglog writes topic-tagged records to daily log files named
{file}.{YYYY-MM-DD}.log, keeps only the newest files, and reads them back.

Configuration comes from defaults, an optional config.yaml, LOG_*
environment variables and command-line flags, in increasing priority.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is $HOME/.config/pkglog/config.yaml)")
	flags.String("dir", "", "log directory (overrides config)")
	flags.String("file", "", "log file base name (overrides config)")

	rootCmd.AddCommand(
		newWriteCmd(a),
		newLogsCmd(a),
		newFilesCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	printError(root.ErrOrStderr(), err)
	return err
}

// printError reports err the way its class calls for. Input errors get a
// pointer to the help, I/O errors are labelled as such.
func printError(w io.Writer, err error) {
	switch {
	case err == nil:
	case errors.IsUserFacing(err):
		_, _ = fmt.Fprintf(w, "Error: %v\nRun 'pkglog --help' for usage.\n", err)
	case errors.IsIO(err):
		_, _ = fmt.Fprintf(w, "I/O error: %v\n", err)
	default:
		_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	}
}

// createsConfig marks commands that write the file named by --config, which
// may not exist yet.
const createsConfig = "creates-config"

func (a *app) initConfig(cmd *cobra.Command) error {
	a.v = config.New()
	if !a.pendingFile(cmd) {
		if err := config.ReadFile(a.v, a.cfgFile); err != nil {
			return err
		}
	}

	// Explicit flags win over file and environment
	for flag, key := range map[string]string{"dir": config.KeyDir, "file": config.KeyFile} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			a.v.Set(key, f.Value.String())
		}
	}
	return nil
}

// pendingFile reports whether cmd creates the explicit --config file and
// that file does not exist yet.
func (a *app) pendingFile(cmd *cobra.Command) bool {
	if a.cfgFile == "" || cmd.Annotations[createsConfig] == "" {
		return false
	}
	_, err := os.Stat(a.cfgFile)
	return errors.Is(err, fs.ErrNotExist)
}

func (a *app) config() (*config.Config, error) {
	return config.Load(a.v)
}

// provider builds a Provider from the loaded configuration whose console
// mirror and diagnostics go to the command's streams.
func (a *app) provider(cmd *cobra.Command) (*provider.Provider, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	opts := cfg.Options()
	opts.Stdout = cmd.OutOrStdout()
	opts.Stderr = cmd.ErrOrStderr()
	opts.Logger = logging.NewDiagnosticLogger(cmd.ErrOrStderr(), level.Warn)
	return provider.New(opts)
}
