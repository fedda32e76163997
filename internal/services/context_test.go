package services_test

import (
	"context"
	"testing"

	"ecbatch/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCategory(ctx, "1.1.1.1")
	ctx = services.WithStage(ctx, "createdb")
	ctx = services.WithRunID(ctx, "run-123")

	if key, ok := services.CategoryFromContext(ctx); !ok || key != "1.1.1.1" {
		t.Fatalf("unexpected category: %v %v", key, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "createdb" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithCategory(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.CategoryFromContext(ctx); ok {
		t.Fatal("expected no category value")
	}
}
