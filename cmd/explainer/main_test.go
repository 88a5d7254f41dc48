package main

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"explainer/internal/report"
	"explainer/internal/testsupport"
)

func TestCompileCommandProducesFinalVideo(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFakeMedia(), testsupport.WithParallelism(2))
	manifestPath := writeManifest(t, env.baseDir, 3, 4.5)

	stdout, _, err := runCLI(t, []string{"--json", "compile", "--skip-preflight", manifestPath}, env.configPath)
	if err != nil {
		t.Fatalf("compile: %v\n%s", err, stdout)
	}

	var rep report.Report
	if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
		t.Fatalf("decode report: %v\n%s", err, stdout)
	}
	if rep.Outcome != report.OutcomeComplete {
		t.Fatalf("outcome = %q, want complete", rep.Outcome)
	}
	if rep.Final == nil {
		t.Fatal("expected final video")
	}
	if math.Abs(rep.Final.DurationSeconds-7.5) > 0.01 {
		t.Fatalf("final duration = %.3f, want 7.5", rep.Final.DurationSeconds)
	}
	if !strings.HasSuffix(rep.JobID, "_how_tides_work") {
		t.Fatalf("job id %q should carry the topic slug", rep.JobID)
	}
	jobDir := filepath.Join(env.cfg.Paths.JobsDir, rep.JobID)
	for _, name := range []string{report.FileName, report.SummaryFileName, "job.log"} {
		if _, err := os.Stat(filepath.Join(jobDir, name)); err != nil {
			t.Fatalf("expected %s in job dir: %v", name, err)
		}
	}
}

func TestCompileCommandFailsWhenSegmentMissing(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFakeMedia())
	manifestPath := writeManifest(t, env.baseDir, 2, 2, 2)
	if err := os.Remove(filepath.Join(filepath.Dir(manifestPath), "audio", "segment_02_audio.mp3")); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := runCLI(t, []string{"compile", "--skip-preflight", manifestPath}, env.configPath)
	if err == nil {
		t.Fatal("expected partial batch to fail the command")
	}
	requireContains(t, err.Error(), "1 of 3 segments failed")
	requireContains(t, stdout, "MissingAsset")
	requireContains(t, stdout, "Final video")
}

func TestCompileCommandRejectsInvalidManifest(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFakeMedia())
	path := filepath.Join(env.baseDir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"segments":[{"segment_number":1},{"segment_number":1}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, []string{"compile", "--skip-preflight", path}, env.configPath)
	if err == nil {
		t.Fatal("expected duplicate indices to be rejected")
	}
	entries, _ := os.ReadDir(env.cfg.Paths.JobsDir)
	if len(entries) != 0 {
		t.Fatalf("expected no job directory, found %d", len(entries))
	}
}

func TestOutcomeErrorForCanceledBatch(t *testing.T) {
	err := outcomeError(report.Report{Outcome: report.OutcomeCanceled})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if code := exitCode(err); code != exitInterrupted {
		t.Fatalf("canceled batch exit code = %d, want %d", code, exitInterrupted)
	}
	if err := outcomeError(report.Report{Outcome: report.OutcomeComplete}); err != nil {
		t.Fatalf("complete batch should succeed, got %v", err)
	}
	if code := exitCode(outcomeError(report.Report{Outcome: report.OutcomeFailed})); code != 1 {
		t.Fatalf("failed batch exit code = %d, want 1", code)
	}
}

func TestWriteJSONKeepsURLQuery(t *testing.T) {
	var buf strings.Builder
	url := "https://cdn.example.com/final.mp4?X-Amz-Expires=3600&X-Amz-Signature=abc"
	if err := writeJSON(&buf, map[string]string{"public_url": url}); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	if !strings.Contains(buf.String(), url) {
		t.Fatalf("expected literal URL in output, got %s", buf.String())
	}
}

func TestJobsListShowsOutcome(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFakeMedia())
	manifestPath := writeManifest(t, env.baseDir, 1.5)
	if _, _, err := runCLI(t, []string{"compile", "--skip-preflight", manifestPath}, env.configPath); err != nil {
		t.Fatalf("compile: %v", err)
	}

	stdout, _, err := runCLI(t, []string{"--json", "jobs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	var rows []jobRow
	if err := json.Unmarshal([]byte(stdout), &rows); err != nil {
		t.Fatalf("decode rows: %v\n%s", err, stdout)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 job, got %d", len(rows))
	}
	if rows[0].Outcome != "complete" || rows[0].Compiled != 1 || rows[0].Segments != 1 {
		t.Fatalf("unexpected row %+v", rows[0])
	}
}

func TestJobsCleanKeepsNewest(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, name := range []string{"1700000000_aaaaaaaa_old", "1700000100_bbbbbbbb_mid", "1700000200_cccccccc_new"} {
		if err := os.MkdirAll(filepath.Join(env.cfg.Paths.JobsDir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	stdout, _, err := runCLI(t, []string{"jobs", "clean", "--keep", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs clean: %v", err)
	}
	requireContains(t, stdout, "1700000000_aaaaaaaa_old")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.JobsDir, "1700000200_cccccccc_new")); err != nil {
		t.Fatalf("newest job removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.JobsDir, "1700000100_bbbbbbbb_mid")); !os.IsNotExist(err) {
		t.Fatalf("expected middle job removed, got %v", err)
	}
}

func TestDepsReportsMissingBinaries(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.FFmpeg.FFmpegBinary = filepath.Join(env.baseDir, "missing-ffmpeg")
	env.cfg.FFmpeg.FFprobeBinary = filepath.Join(env.baseDir, "missing-ffprobe")
	writeTestConfig(t, env.configPath, env.cfg)

	stdout, _, err := runCLI(t, []string{"deps"}, env.configPath)
	if err == nil {
		t.Fatal("expected missing binaries to fail")
	}
	requireContains(t, stdout, "FFmpeg")
	requireContains(t, stdout, "[FAIL]")
	requireContains(t, stdout, "Jobs directory")
}

func TestConfigInitCreatesSample(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	target := filepath.Join(base, "conf", "explainer.toml")

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected existing file to be refused without --overwrite")
	}

	stdout, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, stdout, "Configuration valid")
}

func TestConfigShowRedactsSecret(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Publish.AccessKey = "AKIDEXAMPLE"
	env.cfg.Publish.SecretKey = "super-secret"
	writeTestConfig(t, env.configPath, env.cfg)

	stdout, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(stdout, "super-secret") {
		t.Fatal("secret key leaked")
	}
	requireContains(t, stdout, "<redacted>")
}
