package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/studioshot/platform/internal/app/domain/credit"
	"github.com/studioshot/platform/internal/app/domain/generation"
	"github.com/studioshot/platform/internal/app/domain/person"
	"github.com/studioshot/platform/internal/app/domain/selfie"
	"github.com/studioshot/platform/internal/app/services/credits"
	"github.com/studioshot/platform/internal/app/services/generations"
	"github.com/studioshot/platform/internal/app/services/teams"
	"github.com/studioshot/platform/internal/app/storage/memory"
)

func TestFailStuckRefunds(t *testing.T) {
	store := memory.New()
	ledger := credits.New(store, store, nil)
	genSvc := generations.New(store, store, store, store, ledger, 3, nil)
	teamSvc := teams.New(store, store, store, store, store, nil)
	sweeper := NewSweeper(teamSvc, genSvc, store, "@every 1m", 15*time.Minute, nil)
	ctx := context.Background()

	p, err := store.CreatePerson(ctx, person.Person{Email: "ada@example.com", Name: "Ada", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := store.CreateSelfie(ctx, selfie.Selfie{PersonID: p.ID, ObjectKey: "k", ContentType: "image/jpeg"}); err != nil {
			t.Fatalf("create selfie: %v", err)
		}
	}
	if _, err := ledger.Grant(ctx, credit.SourcePerson, p.ID, 1, ""); err != nil {
		t.Fatalf("grant: %v", err)
	}

	g, err := genSvc.Create(ctx, p.ID, "", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := genSvc.MarkProcessing(ctx, g.ID); err != nil {
		t.Fatalf("mark processing: %v", err)
	}

	// Not yet past the deadline.
	count, err := sweeper.FailStuck(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("fail stuck: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no stuck generations yet, got %d", count)
	}

	count, err = sweeper.FailStuck(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("fail stuck: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stuck generation, got %d", count)
	}

	failed, err := genSvc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if failed.Status != generation.StatusFailed {
		t.Fatalf("status %q, want failed", failed.Status)
	}

	balance, err := ledger.Balance(ctx, credit.SourcePerson, p.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 1 {
		t.Fatalf("balance = %d, want 1 after refund", balance)
	}
}
