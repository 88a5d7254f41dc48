// Package main hosts the explainer CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into batch runs, single
// segment compiles, ad-hoc concatenation, probing, dependency checks, job
// maintenance and configuration scaffolding. Configuration is resolved once
// per invocation by commandContext so subcommands only deal with their own
// flags.
//
// Keep this package lean: behaviour lives in internal packages and is only
// surfaced here.
package main
