package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/devent/internal/checkout"
	"github.com/pfrederiksen/devent/internal/config"
	"github.com/pfrederiksen/devent/internal/logger"
	"github.com/pfrederiksen/devent/internal/storage"
)

// Version is reported by --version.
var Version = "dev"

const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitDuplicate = 3
)

// options holds the global flags.
type options struct {
	dataDir string
	backend string
	format  string
	envFile string
	verbose bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	opts    options
	format  OutputFormat
	now     func() time.Time
	cfg     *config.Config
	log     *logger.Logger
	metrics *logger.Metrics
	manager *storage.Manager
	closers []func()
}

func newApp() *app {
	return &app{now: time.Now}
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devent",
		Short: "Manage D-Event listings, registrations and favorites",
		Long: `A CLI for the D-Event listing and ticket-registration demo.
Events, registrations and favorites are kept in a key-value store
(a JSON file by default) that is seeded with sample events on first use.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.opts.dataDir, "data-dir", "", "Data directory for the file backend (env: DEVENT_DATA_DIR)")
	flags.StringVar(&a.opts.backend, "backend", "", "Storage backend: file, memory, postgres or gist (env: DEVENT_BACKEND)")
	flags.StringVar(&a.opts.format, "format", "text", "Output format: text or json")
	flags.StringVar(&a.opts.envFile, "env-file", ".env", "Optional dotenv file to load")
	flags.BoolVar(&a.opts.verbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newInitCmd(a),
		newEventsCmd(a),
		newCategoriesCmd(a),
		newRegisterCmd(a),
		newRegistrationsCmd(a),
		newFavoritesCmd(a),
		newCheckoutCmd(a),
		newStatsCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newImportHTMLCmd(a),
	)

	return cmd
}

// open resolves configuration and builds the storage manager, then runs
// the storage initialization every session starts with.
func (a *app) open(cmd *cobra.Command) error {
	format := OutputFormat(strings.ToLower(a.opts.format))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", a.opts.format)
	}
	a.format = format

	cfg, err := config.Load(a.opts.envFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if a.opts.dataDir != "" {
		cfg.DataDir = a.opts.dataDir
	}
	if a.opts.backend != "" {
		if cfg.Backend, err = config.ParseBackend(a.opts.backend); err != nil {
			return err
		}
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if a.opts.verbose {
		level = logger.LevelDebug
	}
	a.log = logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(a.log)
	a.metrics = logger.NewMetrics()

	if a.opts.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Backend: %s\n", cfg.Backend)
		if cfg.Backend == config.BackendFile {
			fmt.Fprintf(cmd.ErrOrStderr(), "Data directory: %s\n", cfg.DataDir)
		}
	}

	manager, err := a.newManager(a.context(cmd))
	if err != nil {
		a.close()
		return err
	}
	a.manager = manager

	if err := manager.Init(); err != nil {
		// A store that cannot be seeded is still readable.
		a.log.Error("Storage initialization failed", nil, err)
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) checkout() *checkout.Checkout {
	return checkout.New(a.manager, checkout.WithClock(a.now), checkout.WithLogger(a.log))
}

func (a *app) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (a *app) output(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	return WriteOutput(cmd.OutOrStdout(), a.format, v, text)
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, storage.ErrDuplicateRegistration):
		return ExitDuplicate
	default:
		return ExitError
	}
}

// Execute runs the CLI
func Execute() {
	a := newApp()
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitCode(err))
	}
}
