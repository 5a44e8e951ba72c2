package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"checkin/internal/attendance"
	"checkin/internal/export"
)

type scanOptions struct {
	station        string
	cooldown       time.Duration
	decodeInterval time.Duration
	export         string
}

// NewScanCommand runs a scanning station that reads payloads from stdin,
// one per line, as USB keyboard-wedge scanners type them.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan <roster-file>",
		Short: "Admit attendees from payloads on stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, rootOpts, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.station, "station", "console", "station id recorded with each scan")
	cmd.Flags().DurationVar(&opts.cooldown, "cooldown", 3*time.Second, "minimum time between accepted scans")
	cmd.Flags().DurationVar(&opts.decodeInterval, "decode-interval", time.Second, "minimum time between decodes")
	cmd.Flags().StringVar(&opts.export, "export", "", "write the entry log CSV here when input ends")
	return cmd
}

type scanLine struct {
	Outcome attendance.Outcome `json:"outcome"`
	ID      string             `json:"id,omitempty"`
	Message string             `json:"message"`
}

func runScan(cmd *cobra.Command, rootOpts *RootOptions, opts *scanOptions, path string) error {
	st, err := loadRoster(path, false, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	svc := attendance.NewService(st, opts.cooldown)

	out := cmd.OutOrStdout()
	var results []scanLine
	session := attendance.NewSession(svc, opts.station, opts.decodeInterval, func(res attendance.ScanResult) {
		line := scanLine{Outcome: res.Outcome, Message: res.Message}
		if res.Record != nil {
			line.ID = res.Record.ID
		}
		results = append(results, line)
		if rootOpts.Format == "text" {
			fmt.Fprintf(out, "%-16s %-12s %s\n", line.Outcome, line.ID, line.Message)
		}
	})
	if err := session.Start(cmd.Context(), attendance.LineDecoder{R: cmd.InOrStdin()}); err != nil {
		return WrapExitError(ExitCommandError, "start session", err)
	}
	session.Wait()
	session.Stop()

	total, entered := st.Counts()
	if rootOpts.Format == "json" {
		if err := writeJSON(out, map[string]any{"scans": results, "total": total, "entered": entered}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "entered %d of %d\n", entered, total)
	}

	if opts.export != "" {
		f, err := os.Create(opts.export)
		if err != nil {
			return WrapExitError(ExitCommandError, "create export", err)
		}
		defer f.Close()
		if _, err := export.WriteCSV(f, st.Snapshot(), export.Options{}); err != nil {
			return WrapExitError(ExitFailure, "write export", err)
		}
	}
	return nil
}
