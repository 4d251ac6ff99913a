package storage

import (
	"context"

	"github.com/studioshot/platform/internal/app/domain/credit"
	"github.com/studioshot/platform/internal/app/domain/feedback"
	"github.com/studioshot/platform/internal/app/domain/generation"
	"github.com/studioshot/platform/internal/app/domain/person"
	"github.com/studioshot/platform/internal/app/domain/selfie"
	"github.com/studioshot/platform/internal/app/domain/team"
)

// PersonStore persists person records.
type PersonStore interface {
	CreatePerson(ctx context.Context, p person.Person) (person.Person, error)
	UpdatePerson(ctx context.Context, p person.Person) (person.Person, error)
	GetPerson(ctx context.Context, id string) (person.Person, error)
	GetPersonByEmail(ctx context.Context, email string) (person.Person, error)
	ListPersons(ctx context.Context, teamID string) ([]person.Person, error)
	DeletePerson(ctx context.Context, id string) error
}

// TeamStore persists team records.
type TeamStore interface {
	CreateTeam(ctx context.Context, t team.Team) (team.Team, error)
	UpdateTeam(ctx context.Context, t team.Team) (team.Team, error)
	GetTeam(ctx context.Context, id string) (team.Team, error)
	ListTeams(ctx context.Context) ([]team.Team, error)
}

// InviteStore persists team invites.
type InviteStore interface {
	CreateInvite(ctx context.Context, inv team.Invite) (team.Invite, error)
	UpdateInvite(ctx context.Context, inv team.Invite) (team.Invite, error)
	GetInvite(ctx context.Context, id string) (team.Invite, error)
	GetInviteByToken(ctx context.Context, token string) (team.Invite, error)
	ListInvites(ctx context.Context, teamID string) ([]team.Invite, error)
	ListPendingInvites(ctx context.Context) ([]team.Invite, error)
}

// ContextStore persists brand context presets.
type ContextStore interface {
	CreateBrandContext(ctx context.Context, bc team.BrandContext) (team.BrandContext, error)
	UpdateBrandContext(ctx context.Context, bc team.BrandContext) (team.BrandContext, error)
	GetBrandContext(ctx context.Context, id string) (team.BrandContext, error)
	ListBrandContexts(ctx context.Context, teamID string) ([]team.BrandContext, error)
	DeleteBrandContext(ctx context.Context, id string) error
}

// SelfieStore persists selfie records.
type SelfieStore interface {
	CreateSelfie(ctx context.Context, s selfie.Selfie) (selfie.Selfie, error)
	GetSelfie(ctx context.Context, id string) (selfie.Selfie, error)
	ListSelfies(ctx context.Context, personID string) ([]selfie.Selfie, error)
	DeleteSelfie(ctx context.Context, id string) error
}

// GenerationStore persists generation records.
type GenerationStore interface {
	CreateGeneration(ctx context.Context, g generation.Generation) (generation.Generation, error)
	UpdateGeneration(ctx context.Context, g generation.Generation) (generation.Generation, error)
	GetGeneration(ctx context.Context, id string) (generation.Generation, error)
	ListGenerations(ctx context.Context, personID string) ([]generation.Generation, error)
	ListTeamGenerations(ctx context.Context, teamID string) ([]generation.Generation, error)
	ListGroupGenerations(ctx context.Context, groupID string) ([]generation.Generation, error)
	ListPendingGenerations(ctx context.Context) ([]generation.Generation, error)
	ListProcessingGenerations(ctx context.Context) ([]generation.Generation, error)
}

// CreditStore persists the credit ledger. Consume and refund are conditional
// writes so the balance check and the ledger row land atomically: balances can
// never be overdrawn and a generation is refunded at most once, no matter how
// many callers race.
type CreditStore interface {
	CreateCreditTransaction(ctx context.Context, tx credit.Transaction) (credit.Transaction, error)
	// ConsumeCredit writes a one-credit consume row for the generation when
	// the source's balance covers it, reporting false when it does not.
	ConsumeCredit(ctx context.Context, sourceType credit.SourceType, sourceID, generationID string) (bool, error)
	// RefundGenerationCredit reverses a generation's consume row exactly
	// once, reporting whether a refund row was written.
	RefundGenerationCredit(ctx context.Context, generationID string) (bool, error)
	ListCreditTransactions(ctx context.Context, sourceType credit.SourceType, sourceID string) ([]credit.Transaction, error)
	ListGenerationTransactions(ctx context.Context, generationID string) ([]credit.Transaction, error)
	CreditBalance(ctx context.Context, sourceType credit.SourceType, sourceID string) (int64, error)
}

// FeedbackStore persists feedback notes.
type FeedbackStore interface {
	CreateFeedback(ctx context.Context, fb feedback.Feedback) (feedback.Feedback, error)
	ListFeedback(ctx context.Context) ([]feedback.Feedback, error)
}
