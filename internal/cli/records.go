package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cs121/verwaltung-db/internal/schema"
	"github.com/cs121/verwaltung-db/pkg/types"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseFilters turns field=value arguments into filters. Field names go
// through the column alias table, so "hersteller=Acme" works too.
func parseFilters(args []string, search string) (types.Filters, error) {
	filters := types.Filters{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q (expected field=value)", arg)
		}
		if field, known := schema.FieldFor(key); known {
			key = field
		}
		filters[key] = value
	}
	if search != "" {
		filters[types.GlobalSearchKey] = search
	}
	return filters, nil
}

func newListCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list [field=value...]",
		Short: "List records with optional filters",
		Long: `List prints the records matching all filters, ordered by object type and
model. Each filter matches a case-insensitive substring of one field;
--search matches any field.

Example:
  inventar list
  inventar list object_type=notebook
  inventar list --search lager
  inventar list current_holder=ann --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseFilters(args, search)
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
			return a.printRecords(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match this text in any field")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			r, err := repo.Get(id)
			if err != nil {
				return err
			}
			return a.printRecord(cmd.OutOrStdout(), r)
		},
	}
}

// recordFlags binds one flag per editable record field.
type recordFlags struct {
	objectType     string
	manufacturer   string
	model          string
	serialNumber   string
	purchaseDate   string
	assignmentDate string
	holder         string
	notes          string
	deactivated    bool
}

func (f *recordFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.objectType, "type", "", "object type")
	fs.StringVar(&f.manufacturer, "manufacturer", "", "manufacturer")
	fs.StringVar(&f.model, "model", "", "model")
	fs.StringVar(&f.serialNumber, "serial", "", "serial number")
	fs.StringVar(&f.purchaseDate, "purchase-date", "", "purchase date (YYYY-MM-DD or DD.MM.YYYY)")
	fs.StringVar(&f.assignmentDate, "assignment-date", "", "assignment date (YYYY-MM-DD or DD.MM.YYYY)")
	fs.StringVar(&f.holder, "holder", "", "current holder")
	fs.StringVar(&f.notes, "notes", "", "free-text notes")
	fs.BoolVar(&f.deactivated, "deactivated", false, "mark the record deactivated")
}

// apply copies the flags set on the command line onto r.
func (f *recordFlags) apply(fs *pflag.FlagSet, r types.Record) (types.Record, error) {
	var opts []types.Override
	set := func(name string, opt types.Override) {
		if fs.Changed(name) {
			opts = append(opts, opt)
		}
	}
	set("type", types.WithObjectType(f.objectType))
	set("manufacturer", types.WithManufacturer(f.manufacturer))
	set("model", types.WithModel(f.model))
	set("serial", types.WithSerialNumber(f.serialNumber))
	set("holder", types.WithCurrentHolder(f.holder))
	set("notes", types.WithNotes(f.notes))
	set("deactivated", types.WithDeactivated(f.deactivated))

	for name, dst := range map[string]func(string) types.Override{
		"purchase-date":   types.WithPurchaseDate,
		"assignment-date": types.WithAssignmentDate,
	} {
		if !fs.Changed(name) {
			continue
		}
		raw, _ := fs.GetString(name)
		date, err := schema.ParseDate(raw)
		if err != nil {
			return types.Record{}, fmt.Errorf("--%s: %w", name, err)
		}
		opts = append(opts, dst(date))
	}
	return r.Copy(opts...), nil
}

func newAddCmd(a *app) *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "add --type <object type> [flags]",
		Short: "Add a record",
		Example: `  inventar add --type Notebook --manufacturer Acme --serial SN1
  inventar add --type Monitor --holder LAGER --purchase-date 24.12.2023`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := f.apply(cmd.Flags(), types.Record{})
			if err != nil {
				return err
			}
			if strings.TrimSpace(r.ObjectType) == "" {
				return fmt.Errorf("--type is required")
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			created, err := repo.Create(r)
			if err != nil {
				return fmt.Errorf("add record: %w", err)
			}
			return a.printRecord(cmd.OutOrStdout(), created)
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "update <id> [flags]",
		Short: "Change fields of a record",
		Long: `Update changes the fields given as flags and keeps all others.
Pass an empty value to clear a field, e.g. --serial "".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			existing, err := repo.Get(id)
			if err != nil {
				return err
			}
			next, err := f.apply(cmd.Flags(), existing)
			if err != nil {
				return err
			}
			updated, err := repo.Update(id, next)
			if err != nil {
				return fmt.Errorf("update record: %w", err)
			}
			return a.printRecord(cmd.OutOrStdout(), updated)
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			if err := repo.Delete(id); err != nil {
				return fmt.Errorf("delete record: %w", err)
			}
			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return writeJSON(out, map[string]int64{"id": id})
			}
			_, err = fmt.Fprintf(out, "Deleted record %d\n", id)
			return err
		},
	}
}

func newDeactivateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Mark a record as decommissioned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			r, err := repo.Deactivate(id)
			if err != nil {
				return err
			}
			return a.printRecord(cmd.OutOrStdout(), r)
		},
	}
}

func newReconcileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Repair deactivation notes of all records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			n, err := repo.Reconcile()
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			return a.printCount(cmd.OutOrStdout(), "repaired", n, "Repaired %d record(s)")
		},
	}
}
