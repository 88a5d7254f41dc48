package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// exitInterrupted follows the shell convention for SIGINT (128 + 2).
const exitInterrupted = 130

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	code := exitCode(err)
	if code != exitInterrupted {
		fmt.Fprintf(os.Stderr, "explainer: %v\n", err)
	}
	os.Exit(code)
}

// exitCode maps a command error to the process exit status. An interrupted
// batch has already written its report, so it exits quietly.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return 1
	}
}
