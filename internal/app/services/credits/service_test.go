package credits

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/studioshot/platform/internal/app/domain/credit"
	"github.com/studioshot/platform/internal/app/domain/generation"
	"github.com/studioshot/platform/internal/app/domain/person"
	"github.com/studioshot/platform/internal/app/storage/memory"
)

func TestGrantAndBalance(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	if _, err := svc.Grant(ctx, credit.SourcePerson, "p1", 5, "welcome"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := svc.Purchase(ctx, credit.SourcePerson, "p1", 10, "starter pack"); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	balance, err := svc.Balance(ctx, credit.SourcePerson, "p1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 15 {
		t.Fatalf("balance = %d, want 15", balance)
	}

	if _, err := svc.Grant(ctx, credit.SourcePerson, "p1", 0, ""); err == nil {
		t.Fatal("expected error for non-positive amount")
	}
	if _, err := svc.Grant(ctx, "wallet", "p1", 1, ""); err == nil {
		t.Fatal("expected error for unknown source type")
	}
}

func TestConsumePrefersPersonalBalance(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	p, err := store.CreatePerson(ctx, person.Person{Email: "ada@example.com", Name: "Ada", PasswordHash: "x", TeamID: "t1"})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	if _, err := svc.Grant(ctx, credit.SourcePerson, p.ID, 1, ""); err != nil {
		t.Fatalf("grant person: %v", err)
	}
	if _, err := svc.Grant(ctx, credit.SourceTeam, "t1", 5, ""); err != nil {
		t.Fatalf("grant team: %v", err)
	}

	source, err := svc.ConsumeForGeneration(ctx, p.ID, "gen-1")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if source != generation.SourcePerson {
		t.Fatalf("source = %q, want person", source)
	}

	// Personal balance is now empty; the team pool pays.
	source, err = svc.ConsumeForGeneration(ctx, p.ID, "gen-2")
	if err != nil {
		t.Fatalf("consume from team: %v", err)
	}
	if source != generation.SourceTeam {
		t.Fatalf("source = %q, want team", source)
	}

	teamBalance, err := svc.Balance(ctx, credit.SourceTeam, "t1")
	if err != nil {
		t.Fatalf("team balance: %v", err)
	}
	if teamBalance != 4 {
		t.Fatalf("team balance = %d, want 4", teamBalance)
	}
}

func TestConsumeFailsWhenBothEmpty(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	p, err := store.CreatePerson(ctx, person.Person{Email: "ada@example.com", Name: "Ada", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}

	if _, err := svc.ConsumeForGeneration(ctx, p.ID, "gen-1"); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
}

func TestRefundIsIdempotent(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	p, err := store.CreatePerson(ctx, person.Person{Email: "ada@example.com", Name: "Ada", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	if _, err := svc.Grant(ctx, credit.SourcePerson, p.ID, 1, ""); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := svc.ConsumeForGeneration(ctx, p.ID, "gen-1"); err != nil {
		t.Fatalf("consume: %v", err)
	}

	if err := svc.RefundGeneration(ctx, "gen-1"); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if err := svc.RefundGeneration(ctx, "gen-1"); err != nil {
		t.Fatalf("second refund: %v", err)
	}

	balance, err := svc.Balance(ctx, credit.SourcePerson, p.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 1 {
		t.Fatalf("balance = %d, want 1 after single refund", balance)
	}
}

func TestRefundWithoutConsumeIsNoop(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	if err := svc.RefundGeneration(context.Background(), "gen-free"); err != nil {
		t.Fatalf("refund: %v", err)
	}
}

func TestConcurrentConsumesCannotOverdraw(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	p, err := store.CreatePerson(ctx, person.Person{Email: "ada@example.com", Name: "Ada", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	if _, err := svc.Grant(ctx, credit.SourcePerson, p.ID, 1, ""); err != nil {
		t.Fatalf("grant: %v", err)
	}

	const workers = 64
	var wg sync.WaitGroup
	var succeeded int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := svc.ConsumeForGeneration(ctx, p.ID, fmt.Sprintf("gen-%d", n)); err == nil {
				atomic.AddInt64(&succeeded, 1)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("%d consumes succeeded with a single credit, want 1", succeeded)
	}
	balance, err := svc.Balance(ctx, credit.SourcePerson, p.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestConcurrentRefundsWriteOneRow(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	p, err := store.CreatePerson(ctx, person.Person{Email: "ada@example.com", Name: "Ada", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	if _, err := svc.Grant(ctx, credit.SourcePerson, p.ID, 1, ""); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := svc.ConsumeForGeneration(ctx, p.ID, "gen-1"); err != nil {
		t.Fatalf("consume: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.RefundGeneration(ctx, "gen-1"); err != nil {
				t.Errorf("refund: %v", err)
			}
		}()
	}
	wg.Wait()

	rows, err := store.ListGenerationTransactions(ctx, "gen-1")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	refunds := 0
	for _, tx := range rows {
		if tx.Kind == credit.KindRefund {
			refunds++
		}
	}
	if refunds != 1 {
		t.Fatalf("%d refund rows, want 1", refunds)
	}
	balance, err := svc.Balance(ctx, credit.SourcePerson, p.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 1 {
		t.Fatalf("balance = %d, want 1", balance)
	}
}
