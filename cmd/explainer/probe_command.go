package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"explainer/internal/logging"
	"explainer/internal/media/ffprobe"
)

type probeRow struct {
	Path            string  `json:"path"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	SizeBytes       int64   `json:"size_bytes,omitempty"`
	Video           string  `json:"video,omitempty"`
	Audio           string  `json:"audio,omitempty"`
	Error           string  `json:"error,omitempty"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>...",
		Short: "Show duration and stream layout of media files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			prober := ffprobe.NewProber(cfg.FFmpeg.FFprobeBinary, ffprobe.WithTimeout(cfg.ProbeTimeout()))

			rows := make([]probeRow, 0, len(args))
			failed := 0
			for _, path := range args {
				row := probeRow{Path: path}
				result, err := prober.Inspect(cmd.Context(), path)
				if err != nil {
					row.Error = err.Error()
					failed++
					rows = append(rows, row)
					continue
				}
				row.DurationSeconds = result.DurationSeconds()
				row.SizeBytes = result.SizeBytes()
				if v, ok := result.FirstVideo(); ok {
					row.Video = fmt.Sprintf("%s %dx%d %s %s", v.CodecName, v.Width, v.Height, v.RFrameRate, v.PixFmt)
				}
				if a, ok := result.FirstAudio(); ok {
					row.Audio = strings.TrimSpace(fmt.Sprintf("%s %sHz %s", a.CodecName, a.SampleRate, a.ChannelLayout))
				}
				rows = append(rows, row)
			}

			if ctx.JSONMode() {
				if err := writeJSON(cmd.OutOrStdout(), rows); err != nil {
					return err
				}
			} else {
				table := make([][]string, 0, len(rows))
				for _, row := range rows {
					if row.Error != "" {
						table = append(table, []string{row.Path, "", "", "", row.Error})
						continue
					}
					table = append(table, []string{
						row.Path,
						fmt.Sprintf("%.3f", row.DurationSeconds),
						logging.FormatBytes(row.SizeBytes),
						row.Video,
						row.Audio,
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{
					{header: "File"},
					{header: "Seconds", align: alignRight},
					{header: "Size", align: alignRight},
					{header: "Video"},
					{header: "Audio / Error"},
				}, table, nil))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be probed", failed, len(args))
			}
			return nil
		},
	}
}
