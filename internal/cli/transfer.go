package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cs121/verwaltung-db/internal/exporter"
	"github.com/cs121/verwaltung-db/internal/importer"
)

// importSummary is the JSON form of an import run.
type importSummary struct {
	BatchID  string   `json:"batch_id"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

func newImportCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import records from a CSV or XLSX file",
		Long: `Import reads a CSV (comma or semicolon separated) or XLSX file whose
first row names the columns. German and English column names are
recognized; an object type column is required. Rows that cannot be read
are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := importer.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}

			n := 0
			if !dryRun {
				repo, err := a.repository()
				if err != nil {
					return err
				}
				if n, err = importer.Import(repo, res, a.log.Named("import")); err != nil {
					return err
				}
			}

			summary := importSummary{
				BatchID:  res.BatchID,
				Imported: n,
				Skipped:  res.Skipped,
				Errors:   make([]string, 0, len(res.Errors)),
			}
			for _, e := range res.Errors {
				summary.Errors = append(summary.Errors, e.Error())
			}
			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return writeJSON(out, summary)
			}
			for _, e := range summary.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), "skipped", e)
			}
			if dryRun {
				_, err = fmt.Fprintf(out, "Read %d record(s), %d row error(s), %d empty row(s)\n",
					len(res.Records), len(res.Errors), res.Skipped)
				return err
			}
			_, err = fmt.Fprintf(out, "Imported %d record(s), %d row error(s), %d empty row(s)\n",
				n, len(res.Errors), res.Skipped)
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "read and check the file without storing anything")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "export <file> [field=value...]",
		Short: "Export records to CSV, JSON or XLSX",
		Long: `Export writes the records matching the filters to a file. The format
follows the file extension: .csv, .json or .xlsx.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := exporter.FormatFor(path); err != nil {
				return err
			}
			filters, err := parseFilters(args[1:], search)
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			records, err := repo.List(filters)
			if err != nil {
				return fmt.Errorf("list records: %w", err)
			}
			if err := exporter.WriteFile(path, records); err != nil {
				return withCode(exitSysError, fmt.Errorf("export %s: %w", path, err))
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"exported": len(records), "path": path})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d record(s) to %s\n", len(records), path)
			return err
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match this text in any field")
	return cmd
}
