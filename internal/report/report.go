// Package report records the outcome of a batch as report.json and a
// markdown summary. Every manifest index appears in both.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"explainer/internal/batch"
	"explainer/internal/fileutil"
	"explainer/internal/logging"
	"explainer/internal/profile"
)

const (
	FileName        = "report.json"
	SummaryFileName = "compilation_summary.md"
)

// Outcome summarizes the whole batch in one word.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomePartial  Outcome = "partial"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// ProfileInfo is the encoding profile as recorded in the report.
type ProfileInfo struct {
	Resolution  string `json:"resolution"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FrameRate   int    `json:"frame_rate"`
	VideoPreset string `json:"video_preset"`
	VideoCodec  string `json:"video_codec"`
	AudioPreset string `json:"audio_preset"`
	AudioCodec  string `json:"audio_codec"`
}

// Segment is one index's entry.
type Segment struct {
	Index           int     `json:"index"`
	Status          string  `json:"status"`
	OutputPath      string  `json:"output_path,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	AudioSeconds    float64 `json:"audio_seconds,omitempty"`
	SizeBytes       int64   `json:"size_bytes,omitempty"`
	Reason          string  `json:"reason,omitempty"`
	Detail          string  `json:"detail,omitempty"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
}

// Final describes the assembled video.
type Final struct {
	Path            string  `json:"path"`
	SizeBytes       int64   `json:"size_bytes"`
	DurationSeconds float64 `json:"duration_seconds"`
	Segments        []int   `json:"segments"`
	PublicURL       string  `json:"public_url,omitempty"`
}

// Report is the serialized form of a batch result.
type Report struct {
	JobID          string      `json:"job_id,omitempty"`
	Topic          string      `json:"topic,omitempty"`
	Manifest       string      `json:"manifest,omitempty"`
	GeneratedAt    time.Time   `json:"generated_at"`
	Outcome        Outcome     `json:"outcome"`
	Profile        ProfileInfo `json:"profile"`
	Compiled       int         `json:"compiled"`
	Failed         int         `json:"failed"`
	Canceled       bool        `json:"canceled,omitempty"`
	SegmentsOnly   bool        `json:"segments_only,omitempty"`
	Segments       []Segment   `json:"segments"`
	Final          *Final      `json:"final,omitempty"`
	ConcatError    string      `json:"concat_error,omitempty"`
	PublishError   string      `json:"publish_error,omitempty"`
	ElapsedSeconds float64     `json:"elapsed_seconds"`
}

// Meta carries the batch context that is not part of batch.Result.
type Meta struct {
	JobID        string
	Topic        string
	Manifest     string
	SegmentsOnly bool
	Now          time.Time
}

// Build converts a batch result into a report.
func Build(meta Meta, prof profile.Profile, res batch.Result) Report {
	now := meta.Now
	if now.IsZero() {
		now = time.Now()
	}
	r := Report{
		JobID:       meta.JobID,
		Topic:       meta.Topic,
		Manifest:    meta.Manifest,
		GeneratedAt: now.UTC(),
		Profile: ProfileInfo{
			Resolution:  prof.Resolution,
			Width:       prof.Width,
			Height:      prof.Height,
			FrameRate:   prof.FrameRate,
			VideoPreset: prof.Video.Name,
			VideoCodec:  prof.Video.CodecName,
			AudioPreset: prof.Audio.Name,
			AudioCodec:  prof.Audio.CodecName,
		},
		Compiled:       res.CompiledCount(),
		Failed:         res.FailedCount(),
		Canceled:       res.Canceled,
		SegmentsOnly:   meta.SegmentsOnly,
		ElapsedSeconds: res.Elapsed.Seconds(),
	}
	for _, seg := range res.Segments {
		r.Segments = append(r.Segments, Segment{
			Index:           seg.Index,
			Status:          string(seg.Status),
			OutputPath:      seg.OutputPath,
			DurationSeconds: seg.DurationSeconds,
			AudioSeconds:    seg.AudioSeconds,
			SizeBytes:       seg.SizeBytes,
			Reason:          string(seg.Reason),
			Detail:          seg.Detail,
			ElapsedSeconds:  seg.Elapsed.Seconds(),
		})
	}
	if res.Final != nil {
		r.Final = &Final{
			Path:            res.Final.Path,
			SizeBytes:       res.Final.SizeBytes,
			DurationSeconds: res.Final.DurationSeconds,
			Segments:        append([]int(nil), res.Final.Segments...),
		}
	}
	if res.ConcatErr != nil {
		r.ConcatError = res.ConcatErr.Error()
	}
	r.Outcome = outcomeOf(r)
	return r
}

func outcomeOf(r Report) Outcome {
	switch {
	case r.Canceled:
		return OutcomeCanceled
	case r.Compiled == 0:
		return OutcomeFailed
	case r.Failed == 0 && (r.Final != nil || r.SegmentsOnly):
		return OutcomeComplete
	default:
		return OutcomePartial
	}
}

// SetPublished records where the final video was uploaded, or why the upload
// failed. A publish failure never changes the outcome.
func (r *Report) SetPublished(url string, err error) {
	if err != nil {
		r.PublishError = err.Error()
		return
	}
	if r.Final != nil {
		r.Final.PublicURL = url
	}
}

// Write stores report.json and the markdown summary in dir.
func Write(dir string, r Report) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create report dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode report: %w", err)
	}
	jsonPath := filepath.Join(dir, FileName)
	if err := fileutil.WriteFileAtomic(jsonPath, append(data, '\n'), 0o644); err != nil {
		return "", "", fmt.Errorf("write report: %w", err)
	}
	mdPath := filepath.Join(dir, SummaryFileName)
	if err := fileutil.WriteFileAtomic(mdPath, []byte(r.Markdown()), 0o644); err != nil {
		return jsonPath, "", fmt.Errorf("write summary: %w", err)
	}
	return jsonPath, mdPath, nil
}

// Load reads a report.json.
func Load(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return r, nil
}

// Markdown renders the human summary.
func (r Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Video Compilation Summary\n\n")
	if r.Topic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", r.Topic)
	}
	if r.JobID != "" {
		fmt.Fprintf(&b, "Job: %s\n", r.JobID)
	}
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Outcome: %s (%d compiled, %d failed of %d)\n\n", r.Outcome, r.Compiled, r.Failed, len(r.Segments))

	b.WriteString("## Segments\n\n")
	for _, seg := range r.Segments {
		fmt.Fprintf(&b, "### Segment %d\n", seg.Index)
		if seg.Status == "compiled" {
			fmt.Fprintf(&b, "- **File**: %s\n", filepath.Base(seg.OutputPath))
			fmt.Fprintf(&b, "- **Duration**: %.3f s\n", seg.DurationSeconds)
			fmt.Fprintf(&b, "- **Size**: %s\n", logging.FormatBytes(seg.SizeBytes))
			b.WriteString("- **Status**: compiled\n\n")
			continue
		}
		fmt.Fprintf(&b, "- **Status**: failed (%s)\n", seg.Reason)
		if seg.Detail != "" {
			fmt.Fprintf(&b, "- **Detail**: %s\n", seg.Detail)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Final Video\n\n")
	switch {
	case r.Final != nil:
		fmt.Fprintf(&b, "- **File**: %s\n", filepath.Base(r.Final.Path))
		fmt.Fprintf(&b, "- **Duration**: %.3f s\n", r.Final.DurationSeconds)
		fmt.Fprintf(&b, "- **Size**: %s\n", logging.FormatBytes(r.Final.SizeBytes))
		fmt.Fprintf(&b, "- **Segments**: %s\n", joinInts(r.Final.Segments))
		if r.Final.PublicURL != "" {
			fmt.Fprintf(&b, "- **URL**: %s\n", r.Final.PublicURL)
		}
		b.WriteString("- **Status**: complete\n")
	case r.ConcatError != "":
		fmt.Fprintf(&b, "- **Status**: failed\n- **Detail**: %s\n", r.ConcatError)
	case r.SegmentsOnly:
		b.WriteString("- **Status**: skipped (segments only)\n")
	case r.Canceled:
		b.WriteString("- **Status**: not created (canceled)\n")
	default:
		b.WriteString("- **Status**: not created\n")
	}
	if r.PublishError != "" {
		fmt.Fprintf(&b, "- **Publish**: failed: %s\n", r.PublishError)
	}

	b.WriteString("\n## Video Settings\n\n")
	fmt.Fprintf(&b, "- **Resolution**: %dx%d (%s)\n", r.Profile.Width, r.Profile.Height, r.Profile.Resolution)
	fmt.Fprintf(&b, "- **Frame Rate**: %d fps\n", r.Profile.FrameRate)
	fmt.Fprintf(&b, "- **Video**: %s\n", r.Profile.VideoPreset)
	fmt.Fprintf(&b, "- **Audio**: %s\n", r.Profile.AudioPreset)
	return b.String()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
