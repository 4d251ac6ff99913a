package generations

import (
	"context"
	"errors"
	"testing"

	"github.com/studioshot/platform/internal/app/domain/credit"
	"github.com/studioshot/platform/internal/app/domain/generation"
)

func TestWorkerRetriesTransientFailures(t *testing.T) {
	f := newPipelineFixture(t)
	f.generator.failFirst = 1
	worker := NewWorker(f.svc, f.pipeline, 0, 3, nil)
	ctx := context.Background()

	g := f.queueProcessing(t, "")
	worker.process(ctx, g)

	// First attempt hit a transient error; the record stays processing.
	current, err := f.svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Status != generation.StatusProcessing {
		t.Fatalf("status %q, want processing", current.Status)
	}

	worker.process(ctx, current)
	current, err = f.svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Status != generation.StatusCompleted {
		t.Fatalf("status %q, want completed after retry", current.Status)
	}
}

func TestWorkerFailsPermanentErrors(t *testing.T) {
	f := newPipelineFixture(t)
	f.generator.err = errors.New("prompt rejected")
	worker := NewWorker(f.svc, f.pipeline, 0, 3, nil)
	ctx := context.Background()

	g := f.queueProcessing(t, "")
	worker.process(ctx, g)

	current, err := f.svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Status != generation.StatusFailed {
		t.Fatalf("status %q, want failed", current.Status)
	}
	if current.Error == "" {
		t.Fatal("cause not recorded")
	}

	// The charged credit came back.
	balance, err := f.svc.credits.Balance(ctx, credit.SourcePerson, f.person.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 5 {
		t.Fatalf("balance = %d, want 5 after refund", balance)
	}
}

func TestWorkerGivesUpAfterMaxAttempts(t *testing.T) {
	f := newPipelineFixture(t)
	f.generator.failFirst = 10
	worker := NewWorker(f.svc, f.pipeline, 0, 2, nil)
	ctx := context.Background()

	g := f.queueProcessing(t, "")
	worker.process(ctx, g)
	worker.process(ctx, g)

	current, err := f.svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Status != generation.StatusFailed {
		t.Fatalf("status %q, want failed after exhausted retries", current.Status)
	}
}
