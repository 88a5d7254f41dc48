package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"explainer/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrEncode, "compile", "ffmpeg", "exit status 1", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"compile", "ffmpeg", "exit status 1"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want services.Reason
	}{
		{"nil", nil, services.ReasonNone},
		{"missing", services.Wrap(services.ErrMissingAsset, "compile", "validate", "image", nil), services.ReasonMissingAsset},
		{"audio", services.Wrap(services.ErrAudioUnreadable, "compile", "probe", "", errors.New("x")), services.ReasonAudioUnreadable},
		{"deadline", context.DeadlineExceeded, services.ReasonTimeout},
		{"timeout marker", services.ErrTimeout, services.ReasonTimeout},
		{"canceled", context.Canceled, services.ReasonCanceled},
		{"concat", services.Wrap(services.ErrConcat, "concat", "", "", nil), services.ReasonConcatError},
		{"manifest", services.ErrInvalidManifest, services.ReasonInvalidManifest},
		{"invariant", services.ErrInvariantViolation, services.ReasonInvariantViolation},
		{"unknown", errors.New("disk full"), services.ReasonEncodeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.ReasonOf(tt.err); got != tt.want {
				t.Fatalf("ReasonOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestContextError(t *testing.T) {
	if err := services.ContextError(context.Background()); err != nil {
		t.Fatalf("expected nil for live context, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := services.ContextError(ctx); !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected canceled marker, got %v", err)
	}

	expired, cancelExpired := context.WithTimeout(context.Background(), 0)
	defer cancelExpired()
	<-expired.Done()
	if err := services.ContextError(expired); !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}
