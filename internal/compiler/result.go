package compiler

import (
	"fmt"
	"time"

	"explainer/internal/services"
)

// Status is the outcome of a segment compilation.
type Status string

const (
	StatusCompiled Status = "compiled"
	StatusFailed   Status = "failed"
)

// Result is the outcome of compiling one segment. It is never mutated after
// Compile returns.
type Result struct {
	Index           int             `json:"index"`
	Status          Status          `json:"status"`
	OutputPath      string          `json:"output_path,omitempty"`
	DurationSeconds float64         `json:"duration_seconds,omitempty"`
	AudioSeconds    float64         `json:"audio_seconds,omitempty"`
	SizeBytes       int64           `json:"size_bytes,omitempty"`
	Reason          services.Reason `json:"reason,omitempty"`
	Detail          string          `json:"detail,omitempty"`
	Elapsed         time.Duration   `json:"elapsed_ns"`
}

// Compiled reports whether the segment produced a usable clip.
func (r Result) Compiled() bool {
	return r.Status == StatusCompiled
}

// Failed builds a failure result from err, classifying it with services.ReasonOf.
func Failed(index int, err error) Result {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return Result{
		Index:  index,
		Status: StatusFailed,
		Reason: services.ReasonOf(err),
		Detail: detail,
	}
}

// FailedWithReason builds a failure result with an explicit reason.
func FailedWithReason(index int, reason services.Reason, detail string) Result {
	return Result{Index: index, Status: StatusFailed, Reason: reason, Detail: detail}
}

// SegmentFileName returns the deterministic output name for index.
func SegmentFileName(index int) string {
	return fmt.Sprintf("segment_%02d_video.mp4", index)
}
