package services_test

import (
	"context"
	"testing"

	"ytdesk/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRequestID(ctx, "req-123")
	ctx = services.WithGeneration(ctx, "gen-1")
	ctx = services.WithOperation(ctx, "info")

	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
	if gen, ok := services.GenerationFromContext(ctx); !ok || gen != "gen-1" {
		t.Fatalf("unexpected generation: %v %v", gen, ok)
	}
	if op, ok := services.OperationFromContext(ctx); !ok || op != "info" {
		t.Fatalf("unexpected operation: %v %v", op, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithOperation(ctx, "")
	ctx = services.WithGeneration(ctx, "")
	if _, ok := services.OperationFromContext(ctx); ok {
		t.Fatal("expected no operation value")
	}
	if _, ok := services.GenerationFromContext(ctx); ok {
		t.Fatal("expected no generation value")
	}
}
