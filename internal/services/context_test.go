package services_test

import (
	"context"
	"testing"

	"explainer/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "1700000000_ab12cd34_topic")
	ctx = services.WithSegmentIndex(ctx, 3)
	ctx = services.WithStage(ctx, "compile")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "1700000000_ab12cd34_topic" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if idx, ok := services.SegmentIndexFromContext(ctx); !ok || idx != 3 {
		t.Fatalf("unexpected segment index: %v %v", idx, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "compile" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithJobID(ctx, "")
	ctx = services.WithSegmentIndex(ctx, 0)
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id")
	}
	if _, ok := services.SegmentIndexFromContext(ctx); ok {
		t.Fatal("expected no segment index")
	}
}
