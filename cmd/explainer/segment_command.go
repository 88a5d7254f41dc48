package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"explainer/internal/assets"
	"explainer/internal/compiler"
	"explainer/internal/config"
	"explainer/internal/logging"
	"explainer/internal/media/ffprobe"
)

func newSegmentCommand(ctx *commandContext) *cobra.Command {
	var (
		prof      profileFlags
		index     int
		imagePath string
		audioPath string
		outDir    string
	)

	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Compile a single segment from one image and one audio file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			resolved, err := prof.resolve(cfg)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if index <= 0 {
				return errors.New("--index must be positive")
			}
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			dir := cwd
			if strings.TrimSpace(outDir) != "" {
				if dir, err = config.ExpandPath(outDir); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			prober := ffprobe.NewProber(cfg.FFmpeg.FFprobeBinary, ffprobe.WithTimeout(cfg.ProbeTimeout()))
			segmentCompiler := compiler.New(cfg.FFmpeg.FFmpegBinary, dir, prober,
				compiler.WithTimeout(cfg.SegmentTimeout()),
				compiler.WithLogger(logger),
			)
			result := segmentCompiler.Compile(runCtx, compiler.Request{
				Index:     index,
				ImagePath: assets.Absolute(cwd, imagePath),
				AudioPath: assets.Absolute(cwd, audioPath),
			}, resolved)

			if ctx.JSONMode() {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				colorize := shouldColorize(cmd.OutOrStdout())
				if result.Compiled() {
					fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine(fmt.Sprintf("Segment %d", index), statusOK,
						fmt.Sprintf("%s (%.3fs, %s)", result.OutputPath, result.DurationSeconds, logging.FormatBytes(result.SizeBytes)), colorize))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine(fmt.Sprintf("Segment %d", index), statusError,
						string(result.Reason), colorize))
				}
			}
			if !result.Compiled() {
				return fmt.Errorf("segment %d failed: %s", index, result.Detail)
			}
			return nil
		},
	}

	prof.register(cmd)
	cmd.Flags().IntVar(&index, "index", 1, "Segment index used to name the output")
	cmd.Flags().StringVar(&imagePath, "image", "", "Background image")
	cmd.Flags().StringVar(&audioPath, "audio", "", "Narration audio")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default current directory)")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("audio")
	return cmd
}
