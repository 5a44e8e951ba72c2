// Package cli implements checkinctl, the offline companion to the API
// server: derive identifiers, print badges, convert exports and run a
// keyboard-wedge scanning station.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"checkin/internal/roster"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the checkinctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "checkinctl",
		Short: "Event check-in tooling",
		Long:  "Offline tools for QR event check-in: identifiers, badges, exports and a stdin scanning station.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewDeriveCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewBadgesCommand(opts))
	cmd.AddCommand(NewScanCommand(opts))
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadRoster reads path into a store. keepStatus keeps entry statuses from
// the file; otherwise everyone starts not entered.
func loadRoster(path string, keepStatus bool, warn io.Writer) (*roster.Store, error) {
	records, err := roster.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "read roster", err)
	}
	st := roster.NewStore()
	var warnings []roster.Warning
	if keepStatus {
		warnings = st.Replace(records)
	} else {
		warnings = st.Load(records)
	}
	for _, w := range warnings {
		fmt.Fprintf(warn, "warning: %s\n", w.Message)
	}
	return st, nil
}
