// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Prober: runs ffprobe with a deadline and classifies failures
//
// Prober.Duration is the authority for segment timing. Its errors wrap
// ErrNotFound, ErrUnreadable or ErrMalformed so callers can tell a missing
// file from a broken one.
package ffprobe
