package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"checkin/internal/codec"
)

type derived struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// NewDeriveCommand prints the identifier each name would be assigned.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "derive <name>...",
		Short: "Print derived identifiers for names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := make([]derived, 0, len(args))
			for _, name := range args {
				out = append(out, derived{Name: name, ID: codec.DeriveIdentifier(name)})
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			for _, d := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.ID, d.Name)
			}
			return nil
		},
	}
}
