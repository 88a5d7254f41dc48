package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"explainer/internal/preflight"
)

type checkRow struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var prof profileFlags

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check ffmpeg, ffprobe, encoders and writable directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			resolved, err := prof.resolve(cfg)
			if err != nil {
				return err
			}
			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			results := preflight.RunAll(runCtx, cfg, resolved, nil)
			failed := preflight.Failed(results)

			if ctx.JSONMode() {
				rows := make([]checkRow, 0, len(results))
				for _, r := range results {
					rows = append(rows, checkRow{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
				}
				if err := writeJSON(cmd.OutOrStdout(), rows); err != nil {
					return err
				}
			} else {
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(stdout, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
				fmt.Fprintln(stdout, renderStatusLine("Profile", statusInfo, resolved.String(), colorize))
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
	prof.register(cmd)
	return cmd
}
