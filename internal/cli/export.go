package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"checkin/internal/export"
)

type exportOptions struct {
	entered bool
	output  string
}

// NewExportCommand converts a roster file into the entry log CSV.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export <roster-file>",
		Short: "Write the entry log CSV for a roster file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadRoster(args[0], true, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if opts.output != "" {
				f, err := os.Create(opts.output)
				if err != nil {
					return WrapExitError(ExitCommandError, "create output", err)
				}
				defer f.Close()
				w = f
			}
			if _, err := export.WriteCSV(w, st.Snapshot(), export.Options{EnteredOnly: opts.entered}); err != nil {
				return WrapExitError(ExitFailure, "write csv", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.entered, "entered", false, "only attendees who have entered")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	return cmd
}
