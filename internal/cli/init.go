package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/cs121/verwaltung-db/internal/settings"
)

// initResult is the JSON form of the init command output.
type initResult struct {
	ConfigDir string `json:"config_dir"`
	DataDir   string `json:"data_dir"`
	Backend   string `json:"backend"`
	Path      string `json:"path"`
	Fallback  bool   `json:"fallback"`
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long: `Init creates the configuration directory with a default config.yaml and
settings.yaml, then opens the storage once so that the database (or the
fallback file) exists and is migrated to the current schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := writeSettingsIfMissing(a.settings); err != nil {
				return withCode(exitSysError, fmt.Errorf("write settings: %w", err))
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}

			res := initResult{
				ConfigDir: a.configDir,
				DataDir:   a.config.DataDir,
				Backend:   a.config.Backend,
				Fallback:  a.fallback,
			}
			if p, ok := repo.(interface{ Path() string }); ok {
				res.Path = p.Path()
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Inventory initialized at", res.Path)
			if res.Fallback {
				fmt.Fprintln(out, "SQLite is unavailable; the JSON file is in use.")
			}
			return nil
		},
	}
}

// writeSettingsIfMissing saves the defaults so they can be edited by hand.
func writeSettingsIfMissing(s *settings.Store) error {
	_, err := os.Stat(s.Path())
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return s.Save(settings.Defaults())
}
