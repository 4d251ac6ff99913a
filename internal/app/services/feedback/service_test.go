package feedback

import (
	"context"
	"testing"

	"github.com/studioshot/platform/internal/app/storage/memory"
)

func TestCreateValidatesRating(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "p1", 0, "meh"); err == nil {
		t.Fatal("expected error for rating 0")
	}
	if _, err := svc.Create(ctx, "p1", 6, "wow"); err == nil {
		t.Fatal("expected error for rating 6")
	}

	fb, err := svc.Create(ctx, "p1", 5, "  love the navy background  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if fb.Message != "love the navy background" {
		t.Fatalf("message not trimmed: %q", fb.Message)
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 note, got %d", len(all))
	}
}
