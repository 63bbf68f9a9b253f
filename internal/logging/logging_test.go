package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestFromContextRoundTrip(t *testing.T) {
	t.Parallel()

	logger := slog.Default().With("request_id", "req-1")
	ctx := ContextWithLogger(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Fatalf("expected attached logger back, got %v", got)
	}
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected nil for bare context, got %v", got)
	}
}

func TestFromContextOrPrecedence(t *testing.T) {
	t.Parallel()

	attached := slog.Default().With("scope", "request")
	fallback := slog.Default().With("scope", "service")
	ctx := ContextWithLogger(context.Background(), attached)

	if got := FromContextOr(ctx, fallback); got != attached {
		t.Fatal("context logger must win over the fallback")
	}
	if got := FromContextOr(context.Background(), fallback); got != fallback {
		t.Fatal("fallback must win when the context carries no logger")
	}
	if got := FromContextOr(context.Background(), nil); got != slog.Default() {
		t.Fatal("process default must be the last resort")
	}
}
