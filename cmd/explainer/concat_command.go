package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"explainer/internal/concat"
	"explainer/internal/config"
	"explainer/internal/logging"
	"explainer/internal/media/ffprobe"
)

func newConcatCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "concat <clip>...",
		Short: "Join existing segment clips into one video without re-encoding",
		Long: `Join clips in the order given. Every clip must share the same video codec,
resolution, frame rate, pixel format and audio layout; compile them with the
same profile to guarantee this.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if strings.TrimSpace(output) == "" {
				return errors.New("--out is required")
			}
			finalPath, err := config.ExpandPath(output)
			if err != nil {
				return err
			}
			inputs := make([]concat.Input, 0, len(args))
			for i, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				inputs = append(inputs, concat.Input{Index: i + 1, Path: path})
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			prober := ffprobe.NewProber(cfg.FFmpeg.FFprobeBinary, ffprobe.WithTimeout(cfg.ProbeTimeout()))
			concatenator := concat.New(cfg.FFmpeg.FFmpegBinary, prober,
				concat.WithTimeout(cfg.ConcatTimeout()),
				concat.WithLogger(logger),
			)
			final, err := concatenator.Concatenate(runCtx, inputs, finalPath)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd.OutOrStdout(), final)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine("Final video", statusOK,
				fmt.Sprintf("%s (%.3fs, %s, %d clips)", final.Path, final.DurationSeconds, logging.FormatBytes(final.SizeBytes), len(final.Segments)),
				shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "out", "o", "", "Final video path")
	return cmd
}
