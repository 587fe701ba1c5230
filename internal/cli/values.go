package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cs121/verwaltung-db/internal/schema"
	"github.com/cs121/verwaltung-db/pkg/types"
)

// picklist names a field with a distinct-values listing and a bulk clear.
type picklist struct {
	distinct func(types.Repository) ([]string, error)
	clear    func(types.Repository, string) (int, error)
}

var picklists = map[string]picklist{
	types.CategoryOwner: {
		distinct: types.Repository.DistinctOwners,
		clear:    types.Repository.ClearOwner,
	},
	types.FieldObjectType: {
		distinct: types.Repository.DistinctObjectTypes,
		clear:    types.Repository.ClearObjectType,
	},
	types.FieldManufacturer: {
		distinct: types.Repository.DistinctManufacturers,
		clear:    types.Repository.ClearManufacturer,
	},
	types.FieldModel: {
		distinct: types.Repository.DistinctModels,
		clear:    types.Repository.ClearModel,
	},
	types.FieldSerialNumber: {
		distinct: types.Repository.DistinctSerialNumbers,
		clear:    types.Repository.ClearSerialNumber,
	},
}

func picklistNames() string {
	names := make([]string, 0, len(picklists))
	for n := range picklists {
		names = append(names, n)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

// lookupPicklist accepts the field names, their aliases and "owner".
func lookupPicklist(name string) (picklist, error) {
	key := schema.CanonicalName(name)
	if field, ok := schema.FieldFor(key); ok {
		key = field
	}
	if key == types.FieldCurrentHolder {
		key = types.CategoryOwner
	}
	p, ok := picklists[key]
	if !ok {
		return picklist{}, fmt.Errorf("unknown field %q (valid: %s)", name, picklistNames())
	}
	return p, nil
}

func newDistinctCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "distinct <field>",
		Short: "List the distinct values of a field",
		Long: `Distinct lists each value of the field once, sorted case-insensitively.
For object_type the registered types are listed.

Fields: manufacturer, model, object_type, owner, serial_number`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := lookupPicklist(args[0])
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			values, err := p.distinct(repo)
			if err != nil {
				return fmt.Errorf("distinct %s: %w", args[0], err)
			}
			return a.printValues(cmd.OutOrStdout(), values)
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <field> <value>",
		Short: "Remove a value from every record",
		Long: `Clear resets the field of every record whose value equals <value>
exactly. Owners are reset to the default holder; clearing an object type
also removes it from the registry.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := lookupPicklist(args[0])
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			n, err := p.clear(repo, args[1])
			if err != nil {
				return fmt.Errorf("clear %s: %w", args[0], err)
			}
			return a.printCount(cmd.OutOrStdout(), "changed", n, "Changed %d record(s)")
		},
	}
}

func newCustomCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "custom",
		Short: "Manage custom picklist values",
		Long: `Custom values are offered in picklists next to the values found in the
records. Categories: manufacturer, model, owner, serial_number.`,
	}

	list := &cobra.Command{
		Use:   "list <category>",
		Short: "List the custom values of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			values, err := repo.ListCustomValues(args[0])
			if err != nil {
				return err
			}
			return a.printValues(cmd.OutOrStdout(), values)
		},
	}
	add := &cobra.Command{
		Use:   "add <category> <value>",
		Short: "Add a custom value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			return repo.AddCustomValue(args[0], args[1])
		},
	}
	remove := &cobra.Command{
		Use:   "remove <category> <value>",
		Short: "Remove a custom value, ignoring case",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			return repo.RemoveCustomValue(args[0], args[1])
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func newTypesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Manage the object type registry",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List registered object types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			names, err := repo.DistinctObjectTypes()
			if err != nil {
				return err
			}
			return a.printValues(cmd.OutOrStdout(), names)
		},
	}
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Register an object type and keep it as a default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("object type must not be empty")
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			if err := repo.RegisterObjectType(name); err != nil {
				return fmt.Errorf("register object type: %w", err)
			}
			prefs, err := a.settings.Load()
			if err != nil {
				return err
			}
			prefs.ObjectTypes = append(prefs.ObjectTypes, name)
			return a.settings.Save(prefs)
		},
	}
	cmd.AddCommand(list, add)
	return cmd
}
