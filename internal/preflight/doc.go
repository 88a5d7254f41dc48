// Package preflight provides readiness checks for the tools and directories
// a batch depends on.
//
// The compile command calls RunAll before creating a job so a missing ffmpeg
// or an unwritable jobs directory fails fast instead of producing a report
// full of identical segment failures. The deps command prints the same
// results as a table.
package preflight
