package services

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// CommandRunner executes an external binary and returns an error that carries
// its combined output on failure. Packages accept one so tests can substitute
// a recorder for ffmpeg and ffprobe.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// OutputRunner executes an external binary and returns its stdout.
type OutputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

const killGrace = 2 * time.Second

// RunCommand runs name in its own process group. When ctx ends the whole group
// is killed so encoder children never outlive the call.
func RunCommand(ctx context.Context, name string, args ...string) error {
	cmd := newGroupCommand(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ContextError(ctx); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s: %w: %s", name, err, trimOutput(output))
	}
	return nil
}

// RunOutput runs name in its own process group and returns stdout.
func RunOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := newGroupCommand(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ContextError(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, trimOutput([]byte(stderr.String())))
	}
	return output, nil
}

func newGroupCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = killGrace
	return cmd
}

func trimOutput(output []byte) string {
	text := strings.TrimSpace(string(output))
	const limit = 2048
	if len(text) > limit {
		text = "..." + text[len(text)-limit:]
	}
	if text == "" {
		return "no output"
	}
	return text
}
