// Package config loads, normalizes, and validates the explainer TOML
// configuration.
//
// Load searches an explicit path, then ~/.config/explainer/config.toml, then
// ./explainer.toml, and falls back to Default when no file exists. Paths are
// expanded (including ~), credentials fall back to environment variables, and
// Validate reports the first offending key by its TOML name.
package config
