package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"witar/internal/bootstrap"
	trackerdto "witar/internal/modules/tracker/dto"
	"witar/internal/platform/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:           "witar",
		Short:         "Terminal time clock",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.witar)")

	root.AddCommand(newInCmd(&dataDir))
	root.AddCommand(newOutCmd(&dataDir))
	root.AddCommand(newPauseCmd(&dataDir))
	root.AddCommand(newResumeCmd(&dataDir))
	root.AddCommand(newStatusCmd(&dataDir))
	root.AddCommand(newSyncCmd(&dataDir))
	root.AddCommand(newEntriesCmd(&dataDir))
	root.AddCommand(newWatchCmd(&dataDir))
	return root
}

func loadApp(ctx context.Context, dataDir string) (*bootstrap.App, error) {
	cfg, err := config.New(dataDir)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg)
}

func newInCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "in",
		Short: "Clock in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx, *dataDir)
			if err != nil {
				return err
			}
			out, err := app.TrackerCLI.ClockIn(ctx)
			if err != nil {
				return err
			}
			where := "no location"
			if out.Location != nil {
				where = fmt.Sprintf("%.4f, %.4f", out.Location.Lat, out.Location.Lng)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "clocked in at %s (%s)\n",
				out.StartedAt.Local().Format("15:04:05"), where)
			return nil
		},
	}
}

func newOutCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "out",
		Short: "Clock out",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx, *dataDir)
			if err != nil {
				return err
			}
			out, err := app.TrackerCLI.ClockOut(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "clocked out, %s on the clock\n",
				formatDuration(out.DurationMs))
			return nil
		},
	}
}

func newPauseCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Start a break",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx, *dataDir)
			if err != nil {
				return err
			}
			out, err := app.TrackerCLI.Pause(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "on break, %s worked so far\n",
				formatDuration(out.ElapsedMs))
			return nil
		},
	}
}

func newResumeCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "End the current break",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx, *dataDir)
			if err != nil {
				return err
			}
			out, err := app.TrackerCLI.Resume(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "back to work, %s of breaks total\n",
				formatDuration(out.PausedMs))
			return nil
		},
	}
}

func newStatusCmd(dataDir *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx, *dataDir)
			if err != nil {
				return err
			}
			out, err := app.TrackerCLI.Status(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				payload, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
				return nil
			}
			printStatus(cmd, out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "machine-readable output")
	return cmd
}

func printStatus(cmd *cobra.Command, out trackerdto.SessionOutput) {
	w := cmd.OutOrStdout()
	switch {
	case out.Active && out.Paused:
		_, _ = fmt.Fprintf(w, "on break, %s worked\n", formatDuration(out.ElapsedMs))
	case out.Active:
		_, _ = fmt.Fprintf(w, "clocked in, %s worked\n", formatDuration(out.ElapsedMs))
	default:
		_, _ = fmt.Fprintln(w, "clocked out")
		return
	}
	if out.StartedAt != nil {
		_, _ = fmt.Fprintf(w, "  since     %s\n", out.StartedAt.Local().Format("15:04:05"))
	}
	if out.PausedMs > 0 {
		_, _ = fmt.Fprintf(w, "  breaks    %s\n", formatDuration(out.PausedMs))
	}
	if out.Location != nil {
		_, _ = fmt.Fprintf(w, "  location  %.4f, %.4f\n", out.Location.Lat, out.Location.Lng)
	}
	if out.LastSyncAt != nil {
		_, _ = fmt.Fprintf(w, "  synced    %s\n", out.LastSyncAt.Local().Format("15:04:05"))
	}
}

func newSyncCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local state with the time entry store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx, *dataDir)
			if err != nil {
				return err
			}
			out, err := app.TrackerCLI.Sync(ctx)
			if err != nil {
				return err
			}
			switch {
			case out.Restored:
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "synced, restored missing remote entry")
			case out.Corrected:
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "synced, corrected local start time")
			default:
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "synced, local and remote agree")
			}
			return nil
		},
	}
}

func newEntriesCmd(dataDir *string) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List recorded time entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx, *dataDir)
			if err != nil {
				return err
			}
			var when time.Time
			if day != "" {
				when, err = time.Parse("2006-01-02", day)
				if err != nil {
					return fmt.Errorf("parse --day: %w", err)
				}
			}
			entries, err := app.TrackerCLI.Entries(ctx, when)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no entries")
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s  %-11s %-9s", e.EntryTime.Local().Format("15:04:05"), e.Type, e.Status)
				if e.DurationMs > 0 {
					line += "  " + formatDuration(e.DurationMs)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "day to list (YYYY-MM-DD, default today)")
	return cmd
}

func newWatchCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live elapsed-time display",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx, *dataDir)
			if err != nil {
				return err
			}
			return bootstrap.RunTUI(ctx, app)
		},
	}
}

func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
