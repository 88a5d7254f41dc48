package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"explainer/internal/jobs"
	"explainer/internal/logging"
	"explainer/internal/report"
)

type jobRow struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Topic     string    `json:"topic,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
	Outcome   string    `json:"outcome"`
	Compiled  int       `json:"compiled"`
	Segments  int       `json:"segments"`
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and prune job directories",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsCleanCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List job directories, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			infos, err := jobs.NewStore(cfg.Paths.JobsDir).List()
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			rows := make([]jobRow, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, buildJobRow(info))
			}

			if ctx.JSONMode() {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
				return nil
			}
			now := time.Now()
			table := make([][]string, 0, len(rows))
			for _, row := range rows {
				segments := ""
				if row.Segments > 0 {
					segments = fmt.Sprintf("%d/%d", row.Compiled, row.Segments)
				}
				table = append(table, []string{
					row.ID,
					row.Outcome,
					segments,
					formatAge(now.Sub(row.CreatedAt)),
					logging.FormatBytes(row.SizeBytes),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{
				{header: "Job"},
				{header: "Outcome"},
				{header: "Segments", align: alignRight},
				{header: "Age", align: alignRight},
				{header: "Size", align: alignRight},
			}, table, nil))
			return nil
		},
	}
}

func buildJobRow(info jobs.Info) jobRow {
	row := jobRow{
		ID:        info.ID,
		Path:      info.Path,
		Topic:     info.Topic,
		CreatedAt: info.CreatedAt,
		SizeBytes: info.Size,
	}
	if info.Locked {
		row.Outcome = "running"
		return row
	}
	rep, err := report.Load(filepath.Join(info.Path, report.FileName))
	if err != nil {
		row.Outcome = "unknown"
		return row
	}
	row.Outcome = string(rep.Outcome)
	row.Compiled = rep.Compiled
	row.Segments = len(rep.Segments)
	return row
}

func newJobsCleanCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove all but the newest job directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("keep") {
				keep = cfg.Batch.KeepJobs
			}
			if keep < 0 {
				return errors.New("--keep must not be negative")
			}
			result := jobs.NewStore(cfg.Paths.JobsDir, jobs.WithLogger(logger)).Cleanup(keep)

			if ctx.JSONMode() {
				payload := map[string]any{
					"removed": nonNil(result.Removed),
					"skipped": nonNil(result.Skipped),
				}
				errs := make([]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
				}
				payload["errors"] = errs
				if err := writeJSON(cmd.OutOrStdout(), payload); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, path := range result.Removed {
					fmt.Fprintln(out, renderStatusLine("Removed", statusOK, path, colorize))
				}
				for _, path := range result.Skipped {
					fmt.Fprintln(out, renderStatusLine("Skipped", statusWarn, path+" (in use)", colorize))
				}
				for _, e := range result.Errors {
					fmt.Fprintln(out, renderStatusLine("Failed", statusError, fmt.Sprintf("%s: %v", e.Path, e.Error), colorize))
				}
				if len(result.Removed)+len(result.Skipped)+len(result.Errors) == 0 {
					fmt.Fprintln(out, "Nothing to remove")
				}
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d job directories could not be removed", len(result.Errors))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "Number of newest jobs to keep (default from config keep_jobs)")
	return cmd
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
