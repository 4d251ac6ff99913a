package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/lib/pq"

	"github.com/studioshot/platform/internal/app/domain/credit"
	"github.com/studioshot/platform/internal/app/domain/generation"
	"github.com/studioshot/platform/internal/app/domain/person"
	"github.com/studioshot/platform/internal/app/domain/team"
)

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)

	ctx := context.Background()
	admin, err := store.CreatePerson(ctx, person.Person{Email: "admin@acme.test", Name: "Admin", PasswordHash: "x", Role: person.RoleAdmin})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}

	tm, err := store.CreateTeam(ctx, team.Team{Name: "Acme", AdminID: admin.ID, Seats: 5})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	gen, err := store.CreateGeneration(ctx, generation.Generation{
		PersonID: admin.ID,
		TeamID:   tm.ID,
		GroupID:  "group-1",
		Status:   generation.StatusPending,
	})
	if err != nil {
		t.Fatalf("create generation: %v", err)
	}

	if _, err := store.CreateCreditTransaction(ctx, credit.Transaction{
		SourceType:   credit.SourceTeam,
		SourceID:     tm.ID,
		Amount:       -1,
		Kind:         credit.KindConsume,
		GenerationID: gen.ID,
	}); err != nil {
		t.Fatalf("create credit transaction: %v", err)
	}
}

func TestGetGenerationScansResultKeys(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	columns := []string{
		"id", "person_id", "team_id", "group_id", "regeneration", "context_id", "style", "status",
		"composite_key", "result_keys", "error", "credit_source", "brand", "created_at", "updated_at",
		"started_at", "completed_at",
	}
	mock.ExpectQuery("SELECT .* FROM generations").
		WithArgs("gen-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"gen-1", "person-1", "team-1", "group-1", false, nil, "studio", "completed",
			"composites/gen-1.jpg", []byte(`["results/gen-1/0.jpg","results/gen-1/1.jpg"]`), "", "team", "acme",
			now, now, now, now,
		))

	store := New(db)
	gen, err := store.GetGeneration(context.Background(), "gen-1")
	if err != nil {
		t.Fatalf("get generation: %v", err)
	}
	if gen.Status != generation.StatusCompleted {
		t.Fatalf("expected completed status, got %q", gen.Status)
	}
	if len(gen.ResultKeys) != 2 {
		t.Fatalf("expected 2 result keys, got %d", len(gen.ResultKeys))
	}
	if gen.CreditSource != generation.SourceTeam {
		t.Fatalf("expected team credit source, got %q", gen.CreditSource)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetGenerationRejectsCorruptResultKeys(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	columns := []string{
		"id", "person_id", "team_id", "group_id", "regeneration", "context_id", "style", "status",
		"composite_key", "result_keys", "error", "credit_source", "brand", "created_at", "updated_at",
		"started_at", "completed_at",
	}
	mock.ExpectQuery("SELECT .* FROM generations").
		WithArgs("gen-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"gen-1", "person-1", "team-1", "group-1", false, nil, "studio", "completed",
			"composites/gen-1.jpg", []byte(`{not json`), "", "team", "acme",
			now, now, now, now,
		))

	store := New(db)
	if _, err := store.GetGeneration(context.Background(), "gen-1"); err == nil {
		t.Fatal("expected error for corrupt result_keys")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConsumeCreditInsufficientBalance(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO credit_transactions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	store := New(db)
	charged, err := store.ConsumeCredit(context.Background(), credit.SourcePerson, "person-1", "gen-1")
	if err != nil {
		t.Fatalf("consume credit: %v", err)
	}
	if charged {
		t.Fatal("expected no charge against an empty balance")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteSelfieNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM selfies").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := New(db)
	if err := store.DeleteSelfie(context.Background(), "missing"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
