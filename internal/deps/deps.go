// Package deps reports whether the external tools explainer shells out to
// are installed and capable of the configured encoding profile.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"explainer/internal/services"
)

const versionTimeout = 5 * time.Second

// Requirement defines an external dependency explainer relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Version     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
// When run is non-nil each available binary is asked for its version.
func CheckBinaries(ctx context.Context, requirements []Requirement, run services.OutputRunner) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = resolved
		status.Available = true
		if run != nil {
			status.Version = version(ctx, run, resolved)
		}
		results = append(results, status)
	}
	return results
}

// version returns the first line of `<bin> -version`, or "" when it fails.
func version(ctx context.Context, run services.OutputRunner, binary string) string {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := run(ctx, binary, "-version")
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line)
}
