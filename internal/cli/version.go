package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const modulePath = "github.com/cs121/verwaltung-db"

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the inventar version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "inventar %s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
