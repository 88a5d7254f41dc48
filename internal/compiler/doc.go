// Package compiler turns one still image and one narration clip into a
// segment video whose length follows the audio.
//
// Compile never returns an error: every outcome, including missing inputs,
// unreadable audio, encoder failures, timeouts and cancellation, is folded
// into a Result carrying a services.Reason. Output is written to a temp
// sibling, verified with ffprobe and then renamed to segment_NN_video.mp4,
// so the final path only ever holds a complete, verified clip.
package compiler
