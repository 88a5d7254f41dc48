package preflight

import (
	"context"
	"strings"

	"explainer/internal/config"
	"explainer/internal/deps"
	"explainer/internal/profile"
	"explainer/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for cfg and prof. run executes the
// version and encoder probes; nil uses services.RunOutput.
func RunAll(ctx context.Context, cfg *config.Config, prof profile.Profile, run services.OutputRunner) []Result {
	if cfg == nil {
		return nil
	}
	if run == nil {
		run = services.RunOutput
	}

	results := []Result{
		CheckDirectoryAccess("Jobs directory", cfg.Paths.JobsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	ffmpegAvailable := false
	for _, status := range deps.CheckBinaries(ctx, deps.Requirements(cfg), run) {
		results = append(results, fromStatus(status))
		if status.Name == "FFmpeg" && status.Available {
			ffmpegAvailable = true
		}
	}
	if ffmpegAvailable {
		results = append(results, CheckEncoders(ctx, cfg.FFmpeg.FFmpegBinary, prof, run))
	}
	if cfg.Publish.Enabled {
		results = append(results, CheckPublish(cfg.Publish))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Summary joins failed checks into one line.
func Summary(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range Failed(results) {
		parts = append(parts, r.Name+": "+r.Detail)
	}
	return strings.Join(parts, "; ")
}

func fromStatus(status deps.Status) Result {
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	detail := status.Path
	if status.Version != "" {
		detail = status.Version
	}
	return Result{Name: status.Name, Passed: true, Detail: detail}
}
