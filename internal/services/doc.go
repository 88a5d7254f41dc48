// Package services defines shared utilities consumed by the compilation
// pipeline and its external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, segment indices, and stage names
//     for logging.
//   - Structured error markers plus the Wrap helper, and ReasonOf which maps
//     any failure onto the fixed reason labels recorded in results.
//   - A command runner that executes ffmpeg/ffprobe in its own process group
//     so cancellation and timeouts terminate the whole tree.
package services
