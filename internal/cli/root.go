// Package cli implements the safefetch command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tapestry/safefetch/internal/adapter/sqlite"
	"github.com/tapestry/safefetch/internal/config"
	"github.com/tapestry/safefetch/internal/logger"
)

const version = "0.1.0"

// Process exit codes
const (
	ExitOK       = 0
	ExitRejected = 1
	ExitFailed   = 2
)

// ExitError carries the exit code a command wants the process to end with
type ExitError struct {
	Code  int
	Err   error
	usage bool
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

func exitError(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

func usageError(err error) error {
	return &ExitError{Code: ExitRejected, Err: err, usage: true}
}

// app holds state shared by all commands of one invocation
type app struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer

	cfg *config.Config
	log *zap.Logger
}

// NewRootCommand builds the command tree. Results go to stdout, diagnostics
// and logs to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, log: zap.NewNop()}

	root := &cobra.Command{
		Use:               "safefetch",
		Short:             "Validate, name and download untrusted URLs",
		Version:           version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "path to a YAML configuration file")
	f.String("log-level", "warn", "log level (debug, info, warn, error)")
	f.String("log-format", "text", "log format (text, json)")
	f.String("journal", "", "path to the SQLite download journal (disabled when empty)")

	root.AddCommand(
		a.newValidateCommand(),
		a.newSanitizeCommand(),
		a.newDownloadCommand(),
		a.newVerifyCommand(),
		a.newSweepCommand(),
		a.newHistoryCommand(),
	)
	return root
}

// setup loads configuration with the running command's flags bound, then
// initializes the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return exitError(ExitRejected, err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return exitError(ExitRejected, err)
	}
	a.cfg = cfg
	a.log = logger.GetZapLogger()
	return nil
}

// openJournal returns nil when no journal path is configured
func (a *app) openJournal() (*sqlite.Store, error) {
	if a.cfg.Journal.Path == "" {
		return nil, nil
	}
	store, err := sqlite.Open(a.cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return store, nil
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	_ = logger.Sync()
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)

	var ee *ExitError
	if errors.As(err, &ee) {
		if ee.usage {
			fmt.Fprint(stderr, cmd.UsageString())
		}
		return ee.Code
	}
	// Argument and flag errors from cobra itself.
	fmt.Fprint(stderr, cmd.UsageString())
	return ExitRejected
}
