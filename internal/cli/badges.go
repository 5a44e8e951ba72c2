package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"checkin/internal/badge"
)

type badgesOptions struct {
	output  string
	title   string
	retries int
	backoff time.Duration
}

// NewBadgesCommand renders one badge page per attendee into a PDF.
func NewBadgesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &badgesOptions{}
	cmd := &cobra.Command{
		Use:   "badges <roster-file>",
		Short: "Render printable QR badges",
		Long: `Render one A4 page per attendee with name, identifier and a QR code.

Attendees whose QR code cannot be generated after the configured retries
are skipped and listed; the remaining badges are still written. The
command exits 1 when any badge was skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBadges(cmd, rootOpts, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "badges.pdf", "output PDF")
	cmd.Flags().StringVar(&opts.title, "title", "", "heading printed on every badge")
	cmd.Flags().IntVar(&opts.retries, "retries", 3, "QR encode attempts per attendee")
	cmd.Flags().DurationVar(&opts.backoff, "backoff", 300*time.Millisecond, "pause between attempts")
	return cmd
}

func runBadges(cmd *cobra.Command, rootOpts *RootOptions, opts *badgesOptions, path string) error {
	st, err := loadRoster(path, false, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	enc := badge.Retrying(badge.NewQREncoder(), opts.retries, opts.backoff)
	renderer := badge.NewRenderer(enc, opts.title)

	var buf bytes.Buffer
	report, err := renderer.Render(cmd.Context(), st.Snapshot(), &buf)
	if err != nil {
		return WrapExitError(ExitFailure, "render badges", err)
	}
	if err := os.WriteFile(opts.output, buf.Bytes(), 0o644); err != nil {
		return WrapExitError(ExitCommandError, "write output", err)
	}

	out := cmd.OutOrStdout()
	if rootOpts.Format == "json" {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "rendered %d badge(s) to %s\n", report.Rendered, opts.output)
		for _, f := range report.Failed {
			fmt.Fprintf(out, "skipped %s (%s): %s\n", f.ID, f.Name, f.Error)
		}
	}
	if len(report.Failed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d badge(s) skipped", len(report.Failed)))
	}
	return nil
}
