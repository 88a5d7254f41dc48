// Package logging assembles the slog loggers used by the compiler, the batch
// orchestrator and the CLI.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context helpers that tag lines with job IDs, segment indices and stage
// names. A job logger can be teed into a per-job log file so each job
// directory carries its own record of the run. NewNop returns a logger for
// tests and wiring code that has nothing to report.
package logging
