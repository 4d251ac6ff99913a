// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces, intended for tests and prototyping.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studioshot/platform/internal/app/domain/credit"
	"github.com/studioshot/platform/internal/app/domain/feedback"
	"github.com/studioshot/platform/internal/app/domain/generation"
	"github.com/studioshot/platform/internal/app/domain/person"
	"github.com/studioshot/platform/internal/app/domain/selfie"
	"github.com/studioshot/platform/internal/app/domain/team"
)

// Store implements every storage interface over mutex-guarded maps.
type Store struct {
	mu          sync.RWMutex
	persons     map[string]person.Person
	teams       map[string]team.Team
	invites     map[string]team.Invite
	contexts    map[string]team.BrandContext
	selfies     map[string]selfie.Selfie
	generations map[string]generation.Generation
	credits     map[string]credit.Transaction
	feedback    map[string]feedback.Feedback
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		persons:     make(map[string]person.Person),
		teams:       make(map[string]team.Team),
		invites:     make(map[string]team.Invite),
		contexts:    make(map[string]team.BrandContext),
		selfies:     make(map[string]selfie.Selfie),
		generations: make(map[string]generation.Generation),
		credits:     make(map[string]credit.Transaction),
		feedback:    make(map[string]feedback.Feedback),
	}
}

// PersonStore implementation --------------------------------------------------

func (m *Store) CreatePerson(_ context.Context, p person.Person) (person.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if _, exists := m.persons[p.ID]; exists {
		return person.Person{}, fmt.Errorf("person %s already exists", p.ID)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	m.persons[p.ID] = p
	return p, nil
}

func (m *Store) UpdatePerson(_ context.Context, p person.Person) (person.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.persons[p.ID]
	if !ok {
		return person.Person{}, sql.ErrNoRows
	}
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	m.persons[p.ID] = p
	return p, nil
}

func (m *Store) GetPerson(_ context.Context, id string) (person.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.persons[id]
	if !ok {
		return person.Person{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *Store) GetPersonByEmail(_ context.Context, email string) (person.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.persons {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return person.Person{}, sql.ErrNoRows
}

func (m *Store) ListPersons(_ context.Context, teamID string) ([]person.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]person.Person, 0)
	for _, p := range m.persons {
		if teamID == "" || p.TeamID == teamID {
			result = append(result, p)
		}
	}
	sortByCreated(result, func(p person.Person) time.Time { return p.CreatedAt })
	return result, nil
}

func (m *Store) DeletePerson(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.persons[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.persons, id)
	return nil
}

// TeamStore implementation ----------------------------------------------------

func (m *Store) CreateTeam(_ context.Context, t team.Team) (team.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	} else if _, exists := m.teams[t.ID]; exists {
		return team.Team{}, fmt.Errorf("team %s already exists", t.ID)
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	m.teams[t.ID] = t
	return t, nil
}

func (m *Store) UpdateTeam(_ context.Context, t team.Team) (team.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.teams[t.ID]
	if !ok {
		return team.Team{}, sql.ErrNoRows
	}
	t.CreatedAt = original.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	m.teams[t.ID] = t
	return t, nil
}

func (m *Store) GetTeam(_ context.Context, id string) (team.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.teams[id]
	if !ok {
		return team.Team{}, sql.ErrNoRows
	}
	return t, nil
}

func (m *Store) ListTeams(_ context.Context) ([]team.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]team.Team, 0, len(m.teams))
	for _, t := range m.teams {
		result = append(result, t)
	}
	sortByCreated(result, func(t team.Team) time.Time { return t.CreatedAt })
	return result, nil
}

// InviteStore implementation --------------------------------------------------

func (m *Store) CreateInvite(_ context.Context, inv team.Invite) (team.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if inv.ID == "" {
		inv.ID = uuid.NewString()
	} else if _, exists := m.invites[inv.ID]; exists {
		return team.Invite{}, fmt.Errorf("invite %s already exists", inv.ID)
	}

	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	m.invites[inv.ID] = inv
	return inv, nil
}

func (m *Store) UpdateInvite(_ context.Context, inv team.Invite) (team.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.invites[inv.ID]
	if !ok {
		return team.Invite{}, sql.ErrNoRows
	}
	inv.CreatedAt = original.CreatedAt
	inv.UpdatedAt = time.Now().UTC()

	m.invites[inv.ID] = inv
	return inv, nil
}

func (m *Store) GetInvite(_ context.Context, id string) (team.Invite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inv, ok := m.invites[id]
	if !ok {
		return team.Invite{}, sql.ErrNoRows
	}
	return inv, nil
}

func (m *Store) GetInviteByToken(_ context.Context, token string) (team.Invite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, inv := range m.invites {
		if inv.Token == token {
			return inv, nil
		}
	}
	return team.Invite{}, sql.ErrNoRows
}

func (m *Store) ListInvites(_ context.Context, teamID string) ([]team.Invite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]team.Invite, 0)
	for _, inv := range m.invites {
		if teamID == "" || inv.TeamID == teamID {
			result = append(result, inv)
		}
	}
	sortByCreated(result, func(i team.Invite) time.Time { return i.CreatedAt })
	return result, nil
}

func (m *Store) ListPendingInvites(_ context.Context) ([]team.Invite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]team.Invite, 0)
	for _, inv := range m.invites {
		if inv.Status == team.InvitePending {
			result = append(result, inv)
		}
	}
	sortByCreated(result, func(i team.Invite) time.Time { return i.CreatedAt })
	return result, nil
}

// ContextStore implementation -------------------------------------------------

func (m *Store) CreateBrandContext(_ context.Context, bc team.BrandContext) (team.BrandContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bc.ID == "" {
		bc.ID = uuid.NewString()
	} else if _, exists := m.contexts[bc.ID]; exists {
		return team.BrandContext{}, fmt.Errorf("context %s already exists", bc.ID)
	}

	now := time.Now().UTC()
	bc.CreatedAt = now
	bc.UpdatedAt = now

	m.contexts[bc.ID] = bc
	return bc, nil
}

func (m *Store) UpdateBrandContext(_ context.Context, bc team.BrandContext) (team.BrandContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.contexts[bc.ID]
	if !ok {
		return team.BrandContext{}, sql.ErrNoRows
	}
	bc.CreatedAt = original.CreatedAt
	bc.UpdatedAt = time.Now().UTC()

	m.contexts[bc.ID] = bc
	return bc, nil
}

func (m *Store) GetBrandContext(_ context.Context, id string) (team.BrandContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bc, ok := m.contexts[id]
	if !ok {
		return team.BrandContext{}, sql.ErrNoRows
	}
	return bc, nil
}

func (m *Store) ListBrandContexts(_ context.Context, teamID string) ([]team.BrandContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]team.BrandContext, 0)
	for _, bc := range m.contexts {
		if teamID == "" || bc.TeamID == teamID {
			result = append(result, bc)
		}
	}
	sortByCreated(result, func(c team.BrandContext) time.Time { return c.CreatedAt })
	return result, nil
}

func (m *Store) DeleteBrandContext(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contexts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.contexts, id)
	return nil
}

// SelfieStore implementation --------------------------------------------------

func (m *Store) CreateSelfie(_ context.Context, s selfie.Selfie) (selfie.Selfie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.NewString()
	} else if _, exists := m.selfies[s.ID]; exists {
		return selfie.Selfie{}, fmt.Errorf("selfie %s already exists", s.ID)
	}

	s.CreatedAt = time.Now().UTC()
	m.selfies[s.ID] = s
	return s, nil
}

func (m *Store) GetSelfie(_ context.Context, id string) (selfie.Selfie, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.selfies[id]
	if !ok {
		return selfie.Selfie{}, sql.ErrNoRows
	}
	return s, nil
}

func (m *Store) ListSelfies(_ context.Context, personID string) ([]selfie.Selfie, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]selfie.Selfie, 0)
	for _, s := range m.selfies {
		if personID == "" || s.PersonID == personID {
			result = append(result, s)
		}
	}
	sortByCreated(result, func(s selfie.Selfie) time.Time { return s.CreatedAt })
	return result, nil
}

func (m *Store) DeleteSelfie(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.selfies[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.selfies, id)
	return nil
}

// GenerationStore implementation ----------------------------------------------

func (m *Store) CreateGeneration(_ context.Context, g generation.Generation) (generation.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g.ID == "" {
		g.ID = uuid.NewString()
	} else if _, exists := m.generations[g.ID]; exists {
		return generation.Generation{}, fmt.Errorf("generation %s already exists", g.ID)
	}

	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	g.ResultKeys = append([]string(nil), g.ResultKeys...)

	m.generations[g.ID] = g
	return cloneGeneration(g), nil
}

func (m *Store) UpdateGeneration(_ context.Context, g generation.Generation) (generation.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.generations[g.ID]
	if !ok {
		return generation.Generation{}, sql.ErrNoRows
	}
	g.CreatedAt = original.CreatedAt
	g.UpdatedAt = time.Now().UTC()
	g.ResultKeys = append([]string(nil), g.ResultKeys...)

	m.generations[g.ID] = g
	return cloneGeneration(g), nil
}

func (m *Store) GetGeneration(_ context.Context, id string) (generation.Generation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.generations[id]
	if !ok {
		return generation.Generation{}, sql.ErrNoRows
	}
	return cloneGeneration(g), nil
}

func (m *Store) ListGenerations(_ context.Context, personID string) ([]generation.Generation, error) {
	return m.listGenerations(func(g generation.Generation) bool {
		return personID == "" || g.PersonID == personID
	})
}

func (m *Store) ListTeamGenerations(_ context.Context, teamID string) ([]generation.Generation, error) {
	return m.listGenerations(func(g generation.Generation) bool {
		return g.TeamID == teamID
	})
}

func (m *Store) ListGroupGenerations(_ context.Context, groupID string) ([]generation.Generation, error) {
	return m.listGenerations(func(g generation.Generation) bool {
		return g.GroupID == groupID
	})
}

func (m *Store) ListPendingGenerations(_ context.Context) ([]generation.Generation, error) {
	return m.listGenerations(func(g generation.Generation) bool {
		return g.Status == generation.StatusPending
	})
}

func (m *Store) ListProcessingGenerations(_ context.Context) ([]generation.Generation, error) {
	return m.listGenerations(func(g generation.Generation) bool {
		return g.Status == generation.StatusProcessing
	})
}

func (m *Store) listGenerations(match func(generation.Generation) bool) ([]generation.Generation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generation.Generation, 0)
	for _, g := range m.generations {
		if match(g) {
			result = append(result, cloneGeneration(g))
		}
	}
	sortByCreated(result, func(g generation.Generation) time.Time { return g.CreatedAt })
	return result, nil
}

// CreditStore implementation --------------------------------------------------

func (m *Store) CreateCreditTransaction(_ context.Context, tx credit.Transaction) (credit.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	} else if _, exists := m.credits[tx.ID]; exists {
		return credit.Transaction{}, fmt.Errorf("transaction %s already exists", tx.ID)
	}

	tx.CreatedAt = time.Now().UTC()
	m.credits[tx.ID] = tx
	return tx, nil
}

func (m *Store) ConsumeCredit(_ context.Context, sourceType credit.SourceType, sourceID, generationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Balance check and row write share the lock so concurrent charges
	// cannot overdraw the source.
	var balance int64
	for _, tx := range m.credits {
		if tx.SourceType == sourceType && tx.SourceID == sourceID {
			balance += tx.Amount
		}
	}
	if balance < 1 {
		return false, nil
	}

	id := uuid.NewString()
	m.credits[id] = credit.Transaction{
		ID:           id,
		SourceType:   sourceType,
		SourceID:     sourceID,
		Amount:       -1,
		Kind:         credit.KindConsume,
		GenerationID: generationID,
		CreatedAt:    time.Now().UTC(),
	}
	return true, nil
}

func (m *Store) RefundGenerationCredit(_ context.Context, generationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var consume credit.Transaction
	found := false
	for _, tx := range m.credits {
		if tx.GenerationID != generationID {
			continue
		}
		switch tx.Kind {
		case credit.KindRefund:
			return false, nil
		case credit.KindConsume:
			consume = tx
			found = true
		}
	}
	if !found {
		return false, nil
	}

	id := uuid.NewString()
	m.credits[id] = credit.Transaction{
		ID:           id,
		SourceType:   consume.SourceType,
		SourceID:     consume.SourceID,
		Amount:       -consume.Amount,
		Kind:         credit.KindRefund,
		GenerationID: generationID,
		CreatedAt:    time.Now().UTC(),
	}
	return true, nil
}

func (m *Store) ListCreditTransactions(_ context.Context, sourceType credit.SourceType, sourceID string) ([]credit.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]credit.Transaction, 0)
	for _, tx := range m.credits {
		if tx.SourceType == sourceType && tx.SourceID == sourceID {
			result = append(result, tx)
		}
	}
	sortByCreated(result, func(t credit.Transaction) time.Time { return t.CreatedAt })
	return result, nil
}

func (m *Store) ListGenerationTransactions(_ context.Context, generationID string) ([]credit.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]credit.Transaction, 0)
	for _, tx := range m.credits {
		if tx.GenerationID == generationID {
			result = append(result, tx)
		}
	}
	sortByCreated(result, func(t credit.Transaction) time.Time { return t.CreatedAt })
	return result, nil
}

func (m *Store) CreditBalance(_ context.Context, sourceType credit.SourceType, sourceID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var balance int64
	for _, tx := range m.credits {
		if tx.SourceType == sourceType && tx.SourceID == sourceID {
			balance += tx.Amount
		}
	}
	return balance, nil
}

// FeedbackStore implementation ------------------------------------------------

func (m *Store) CreateFeedback(_ context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	fb.CreatedAt = time.Now().UTC()
	m.feedback[fb.ID] = fb
	return fb, nil
}

func (m *Store) ListFeedback(_ context.Context) ([]feedback.Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]feedback.Feedback, 0, len(m.feedback))
	for _, fb := range m.feedback {
		result = append(result, fb)
	}
	sortByCreated(result, func(f feedback.Feedback) time.Time { return f.CreatedAt })
	return result, nil
}

// Helpers ---------------------------------------------------------------------

func cloneGeneration(g generation.Generation) generation.Generation {
	g.ResultKeys = append([]string(nil), g.ResultKeys...)
	return g
}

func sortByCreated[T any](items []T, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return created(items[i]).Before(created(items[j]))
	})
}
