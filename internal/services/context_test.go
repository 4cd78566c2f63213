package services_test

import (
	"context"
	"testing"

	"tacreview/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithStage(ctx, "analyze")
	ctx = services.WithVideo(ctx, "drill")
	ctx = services.WithFrameIndex(ctx, 2)

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "analyze" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if video, ok := services.VideoFromContext(ctx); !ok || video != "drill" {
		t.Fatalf("unexpected video: %v %v", video, ok)
	}
	if idx, ok := services.FrameIndexFromContext(ctx); !ok || idx != 2 {
		t.Fatalf("unexpected frame index: %v %v", idx, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.FrameIndexFromContext(ctx); ok {
		t.Fatal("expected no frame index value")
	}
}
