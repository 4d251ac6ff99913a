package persons

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/studioshot/platform/internal/app/storage/memory"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	p, err := svc.Register(ctx, "Ada@Example.com", "Ada", "correct-horse", "acme")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %q", p.Email)
	}
	if p.PasswordHash == "correct-horse" || p.PasswordHash == "" {
		t.Fatal("password was not hashed")
	}

	if _, err := svc.Authenticate(ctx, "ada@example.com", "correct-horse"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ada@example.com", "Ada", "correct-horse", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "ADA@example.com", "Other", "password123", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "not-an-email", "Ada", "password123", ""); err == nil {
		t.Fatal("expected error for bad email")
	}
	if _, err := svc.Register(ctx, "ada@example.com", "", "password123", ""); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := svc.Register(ctx, "ada@example.com", "Ada", "short", ""); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestDeleteUnknownPerson(t *testing.T) {
	svc := New(memory.New(), nil)
	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}
