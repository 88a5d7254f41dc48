package concat_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"explainer/internal/concat"
	"explainer/internal/media/ffprobe"
	"explainer/internal/services"
)

func clipResult(duration float64, width int, sampleRate string) ffprobe.Result {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{
			{CodecType: "video", CodecName: "h264", Width: width, Height: 720, PixFmt: "yuv420p", RFrameRate: "30/1"},
			{CodecType: "audio", CodecName: "aac", SampleRate: sampleRate, Channels: 2},
		},
		Format: ffprobe.Format{Duration: fmt.Sprintf("%.6f", duration)},
	}
}

// fakeProber answers from a table; unknown paths are treated as the joined
// output and report the table's total duration.
type fakeProber struct {
	results map[string]ffprobe.Result
}

func (f *fakeProber) Inspect(_ context.Context, path string) (ffprobe.Result, error) {
	if res, ok := f.results[path]; ok {
		return res, nil
	}
	var total float64
	for _, res := range f.results {
		total += res.DurationSeconds()
	}
	return clipResult(total, 1280, "48000"), nil
}

type concatRunner struct {
	lists []string
	err   error
}

func (r *concatRunner) run(_ context.Context, _ string, args ...string) error {
	var list string
	for i, arg := range args {
		if arg == "-i" {
			list = args[i+1]
		}
	}
	data, err := os.ReadFile(list)
	if err != nil {
		return err
	}
	r.lists = append(r.lists, string(data))
	if r.err != nil {
		return r.err
	}
	return os.WriteFile(args[len(args)-1], []byte("joined\n"+string(data)), 0o644)
}

func makeClips(t *testing.T, dir string, durations ...float64) ([]concat.Input, *fakeProber) {
	t.Helper()
	prober := &fakeProber{results: map[string]ffprobe.Result{}}
	inputs := make([]concat.Input, 0, len(durations))
	for i, d := range durations {
		path := filepath.Join(dir, fmt.Sprintf("segment_%02d_video.mp4", i+1))
		if err := os.WriteFile(path, []byte(fmt.Sprintf("clip %d", i+1)), 0o644); err != nil {
			t.Fatal(err)
		}
		prober.results[path] = clipResult(d, 1280, "48000")
		inputs = append(inputs, concat.Input{Index: i + 1, Path: path})
	}
	return inputs, prober
}

func TestConcatenatePreservesOrder(t *testing.T) {
	dir := t.TempDir()
	inputs, prober := makeClips(t, dir, 18.3, 22.5, 10)
	runner := &concatRunner{}
	c := concat.New("ffmpeg", prober, concat.WithCommandRunner(runner.run))

	reordered := []concat.Input{inputs[0], inputs[2], inputs[1]}
	finalPath := filepath.Join(dir, "explainer_video.mp4")
	final, err := c.Concatenate(context.Background(), reordered, finalPath)
	if err != nil {
		t.Fatalf("Concatenate: %v", err)
	}
	if final.Path != finalPath || final.SizeBytes == 0 {
		t.Fatalf("unexpected final %+v", final)
	}
	if got := fmt.Sprint(final.Segments); got != "[1 3 2]" {
		t.Fatalf("segments = %s, want [1 3 2]", got)
	}
	lines := strings.Split(strings.TrimSpace(runner.lists[0]), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 list entries, got %v", lines)
	}
	for i, in := range reordered {
		want := fmt.Sprintf("file '%s'", in.Path)
		if lines[i] != want {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want)
		}
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, ".concat-*"))
	if len(leftovers) != 0 {
		t.Fatalf("list file not removed: %v", leftovers)
	}
}

func TestConcatenateTwoSegmentsDuration(t *testing.T) {
	dir := t.TempDir()
	inputs, prober := makeClips(t, dir, 18.3, 22.5)
	runner := &concatRunner{}
	c := concat.New("ffmpeg", prober, concat.WithCommandRunner(runner.run))

	final, err := c.Concatenate(context.Background(), inputs, filepath.Join(dir, "final.mp4"))
	if err != nil {
		t.Fatalf("Concatenate: %v", err)
	}
	if final.DurationSeconds < 40.7 || final.DurationSeconds > 40.9 {
		t.Fatalf("final duration = %v, want about 40.8", final.DurationSeconds)
	}
}

func TestConcatenateSingleInputCopies(t *testing.T) {
	dir := t.TempDir()
	inputs, prober := makeClips(t, dir, 5)
	runner := &concatRunner{}
	c := concat.New("ffmpeg", prober, concat.WithCommandRunner(runner.run))

	finalPath := filepath.Join(dir, "out", "final.mp4")
	if _, err := c.Concatenate(context.Background(), inputs, finalPath); err != nil {
		t.Fatalf("Concatenate: %v", err)
	}
	if len(runner.lists) != 0 {
		t.Fatal("single input should not invoke ffmpeg")
	}
	src, _ := os.ReadFile(inputs[0].Path)
	dst, _ := os.ReadFile(finalPath)
	if !bytes.Equal(src, dst) {
		t.Fatalf("copy mismatch: %q vs %q", src, dst)
	}
}

func TestConcatenateEmpty(t *testing.T) {
	c := concat.New("ffmpeg", &fakeProber{})
	_, err := c.Concatenate(context.Background(), nil, filepath.Join(t.TempDir(), "final.mp4"))
	if !errors.Is(err, services.ErrConcat) {
		t.Fatalf("expected ErrConcat, got %v", err)
	}
}

func TestConcatenateMismatchIsInvariantViolation(t *testing.T) {
	dir := t.TempDir()
	inputs, prober := makeClips(t, dir, 3, 4)
	prober.results[inputs[1].Path] = clipResult(4, 1280, "44100")
	runner := &concatRunner{}
	c := concat.New("ffmpeg", prober, concat.WithCommandRunner(runner.run))

	finalPath := filepath.Join(dir, "final.mp4")
	_, err := c.Concatenate(context.Background(), inputs, finalPath)
	if !errors.Is(err, services.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
	if errors.Is(err, services.ErrConcat) {
		t.Fatal("invariant violation must be distinct from concat error")
	}
	if !strings.Contains(err.Error(), "sample rate") {
		t.Fatalf("expected mismatch detail, got %v", err)
	}
	if len(runner.lists) != 0 {
		t.Fatal("ffmpeg must not run on mismatched inputs")
	}
}

func TestConcatenateFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	inputs, prober := makeClips(t, dir, 3, 4)
	runner := &concatRunner{err: errors.New("ffmpeg: exit status 1")}
	c := concat.New("ffmpeg", prober, concat.WithCommandRunner(runner.run))

	finalPath := filepath.Join(dir, "final.mp4")
	_, err := c.Concatenate(context.Background(), inputs, finalPath)
	if !errors.Is(err, services.ErrConcat) {
		t.Fatalf("expected ErrConcat, got %v", err)
	}
	for _, pattern := range []string{"final.mp4", ".final.mp4.tmp", ".concat-*"} {
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		if len(matches) != 0 {
			t.Fatalf("expected no %s after failure, got %v", pattern, matches)
		}
	}
}

func TestConcatenateFailureRemovesPreviousFinal(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(inputs []concat.Input, prober *fakeProber, runner *concatRunner)
		marker error
	}{
		{"join fails", func(_ []concat.Input, _ *fakeProber, r *concatRunner) { r.err = errors.New("boom") }, services.ErrConcat},
		{"inputs differ", func(in []concat.Input, p *fakeProber, _ *concatRunner) {
			p.results[in[1].Path] = clipResult(4, 1920, "48000")
		}, services.ErrInvariantViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			inputs, prober := makeClips(t, dir, 3, 4)
			runner := &concatRunner{}
			tt.mutate(inputs, prober, runner)
			finalPath := filepath.Join(dir, "final.mp4")
			if err := os.WriteFile(finalPath, []byte("previous run"), 0o644); err != nil {
				t.Fatal(err)
			}

			c := concat.New("ffmpeg", prober, concat.WithCommandRunner(runner.run))
			_, err := c.Concatenate(context.Background(), inputs, finalPath)
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
			if _, err := os.Stat(finalPath); !os.IsNotExist(err) {
				t.Fatalf("stale final video survived the failure, stat err = %v", err)
			}
		})
	}
}

func TestWriteListEscapesQuotes(t *testing.T) {
	var buf bytes.Buffer
	if err := concat.WriteList(&buf, []string{"/tmp/it's/a.mp4", "/tmp/b.mp4"}); err != nil {
		t.Fatalf("WriteList: %v", err)
	}
	want := "file '/tmp/it'\\''s/a.mp4'\nfile '/tmp/b.mp4'\n"
	if buf.String() != want {
		t.Fatalf("list = %q, want %q", buf.String(), want)
	}
}

func TestWriteListOrderMatters(t *testing.T) {
	var abc, acb bytes.Buffer
	if err := concat.WriteList(&abc, []string{"/a", "/b", "/c"}); err != nil {
		t.Fatal(err)
	}
	if err := concat.WriteList(&acb, []string{"/a", "/c", "/b"}); err != nil {
		t.Fatal(err)
	}
	if abc.String() == acb.String() {
		t.Fatal("different input orders must produce different lists")
	}
}
