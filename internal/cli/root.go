// Package cli implements the inventar command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cs121/verwaltung-db/internal/logging"
	"github.com/cs121/verwaltung-db/internal/paths"
	"github.com/cs121/verwaltung-db/internal/settings"
	"github.com/cs121/verwaltung-db/pkg/store"
	"github.com/cs121/verwaltung-db/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// skipSetup marks commands that run without configuration or storage.
const skipSetup = "inventar/skip-setup"

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	jsonMode  bool
}

// app is the state shared by the commands of one root command.
type app struct {
	flags     rootFlags
	configDir string
	viper     *viper.Viper
	config    types.Config
	settings  *settings.Store
	log       *zap.Logger
	repo      types.Repository
	fallback  bool
}

// NewRootCmd creates the top-level "inventar" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *app) {
	a := &app{log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "inventar",
		Short: "Hardware inventory on SQLite with a JSON file fallback",
		Long: `Inventar keeps a list of hardware assets: object type, manufacturer,
model, serial number, dates, current holder and notes.

Records are stored in a SQLite database. When the database cannot be
opened, a JSON document in the same data directory is used instead.`,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: auto, sqlite or json")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newAddCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newDeactivateCmd(a),
		newReconcileCmd(a),
		newDistinctCmd(a),
		newClearCmd(a),
		newCustomCmd(a),
		newTypesCmd(a),
		newImportCmd(a),
		newExportCmd(a),
	)
	return root, a
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns its exit code. Storage is
// closed even when the command failed.
func run(args []string, stdout, stderr io.Writer) int {
	root, a := newRoot()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if cerr := a.teardown(nil, nil); err == nil {
		err = cerr
	}
	return exitCode(err)
}

// setup loads configuration and builds the logger. Storage is opened
// lazily by the commands that need it.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipSetup] != "" {
		return nil
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return withCode(exitSysError, fmt.Errorf("resolve config dir: %w", err))
	}
	a.configDir = configDir

	v, err := loadConfig(configDir)
	if err != nil {
		return withCode(exitSysError, err)
	}
	if a.flags.backend != "" {
		v.Set(cfgKeyBackend, a.flags.backend)
	}
	a.viper = v

	log, err := logging.New(loggingConfig(v))
	if err != nil {
		return withCode(exitUserError, fmt.Errorf("config: %w", err))
	}
	a.log = log

	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, v.GetString(cfgKeyDataDir), configDir)
	if err != nil {
		return withCode(exitSysError, fmt.Errorf("resolve data dir: %w", err))
	}

	a.settings = settings.NewStore(configDir)
	prefs, err := a.settings.Load()
	if err != nil {
		return withCode(exitUserError, err)
	}
	a.config = settings.Apply(storeConfig(v, dataDir), prefs)
	if err := a.config.Validate(); err != nil {
		return withCode(exitUserError, fmt.Errorf("config: backend %q: %w", a.config.Backend, err))
	}
	return nil
}

// teardown closes the storage. It may run twice: once as the post-run hook
// and once after Execute returns.
func (a *app) teardown(*cobra.Command, []string) error {
	defer func() { _ = a.log.Sync() }()
	if a.repo == nil {
		return nil
	}
	err := a.repo.Close()
	a.repo = nil
	return err
}

// repository opens the configured store on first use.
func (a *app) repository() (types.Repository, error) {
	if a.repo != nil {
		return a.repo, nil
	}
	sel, err := store.Open(a.config, a.log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.repo = sel.Repository
	a.fallback = sel.Fallback
	return a.repo, nil
}

// codedError carries an explicit exit code.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// exitCode maps a command error to the process exit code. Storage
// failures are system errors; everything else is the user's to fix.
func exitCode(err error) int {
	var ce *codedError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ce):
		return ce.code
	case errors.Is(err, types.ErrStorage), errors.Is(err, types.ErrNotInitialized):
		return exitSysError
	}
	return exitUserError
}
