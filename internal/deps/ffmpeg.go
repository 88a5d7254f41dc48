package deps

import (
	"context"
	"fmt"
	"strings"

	"explainer/internal/config"
	"explainer/internal/profile"
	"explainer/internal/services"
)

// Requirements lists the binaries named in the [ffmpeg] section.
func Requirements(cfg *config.Config) []Requirement {
	ff := config.Default().FFmpeg
	if cfg != nil {
		ff = cfg.FFmpeg
	}
	return []Requirement{
		{Name: "FFmpeg", Command: ff.FFmpegBinary, Description: "Encodes segments and joins the final video"},
		{Name: "FFprobe", Command: ff.FFprobeBinary, Description: "Measures narration and verifies outputs"},
	}
}

// CheckEncoders confirms ffmpeg was built with the encoders prof needs.
func CheckEncoders(ctx context.Context, ffmpegBinary string, prof profile.Profile, run services.OutputRunner) error {
	if run == nil {
		run = services.RunOutput
	}
	out, err := run(ctx, ffmpegBinary, "-hide_banner", "-encoders")
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "deps", "list encoders", ffmpegBinary, err)
	}
	available := parseEncoders(string(out))
	var missing []string
	for _, name := range []string{prof.Video.Codec, prof.Audio.Codec} {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrConfiguration, "deps", "check encoders",
			fmt.Sprintf("ffmpeg lacks encoder(s) %s", strings.Join(missing, ", ")), nil)
	}
	return nil
}

// parseEncoders reads `ffmpeg -encoders` output, whose listing lines look like
// " V....D libx264   libx264 H.264 ...".
func parseEncoders(output string) map[string]struct{} {
	encoders := make(map[string]struct{})
	listing := false
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "------") {
			listing = true
			continue
		}
		if !listing {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) >= 2 {
			encoders[fields[1]] = struct{}{}
		}
	}
	return encoders
}
