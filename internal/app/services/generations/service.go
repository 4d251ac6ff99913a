// Package generations manages the headshot generation lifecycle from request
// through completion, including regenerations and credit charging.
package generations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studioshot/platform/internal/app/domain/credit"
	"github.com/studioshot/platform/internal/app/domain/generation"
	"github.com/studioshot/platform/internal/app/storage"
	"github.com/studioshot/platform/pkg/logger"
)

var (
	// ErrInvalidTransition is returned for lifecycle moves the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid generation state transition")
	// ErrRegenerationQuota is returned when a group has exhausted its free
	// regenerations.
	ErrRegenerationQuota = errors.New("regeneration quota exhausted")
	// ErrSelfieMinimum is returned when a person generates without enough
	// reference selfies.
	ErrSelfieMinimum = errors.New("at least two selfies are required")
)

// CreditLedger is the slice of the credits service the lifecycle needs.
type CreditLedger interface {
	ConsumeForGeneration(ctx context.Context, personID, generationID string) (generation.CreditSource, error)
	RefundGeneration(ctx context.Context, generationID string) error
	Balance(ctx context.Context, sourceType credit.SourceType, sourceID string) (int64, error)
}

// Service manages generation records.
type Service struct {
	store      storage.GenerationStore
	selfies    storage.SelfieStore
	contexts   storage.ContextStore
	persons    storage.PersonStore
	credits    CreditLedger
	regenQuota int
	log        *logger.Logger
}

// New constructs a generations service. regenQuota caps free regenerations
// per group.
func New(store storage.GenerationStore, selfies storage.SelfieStore, contexts storage.ContextStore,
	persons storage.PersonStore, credits CreditLedger, regenQuota int, log *logger.Logger) *Service {
	if regenQuota < 0 {
		regenQuota = 0
	}
	if log == nil {
		log = logger.NewDefault("generations")
	}
	return &Service{
		store:      store,
		selfies:    selfies,
		contexts:   contexts,
		persons:    persons,
		credits:    credits,
		regenQuota: regenQuota,
		log:        log,
	}
}

// Create validates the request, charges one credit, and records a pending
// generation with a fresh group id.
func (s *Service) Create(ctx context.Context, personID, contextID, style, brand string) (generation.Generation, error) {
	personID = strings.TrimSpace(personID)
	if personID == "" {
		return generation.Generation{}, fmt.Errorf("person id is required")
	}

	p, err := s.persons.GetPerson(ctx, personID)
	if err != nil {
		return generation.Generation{}, fmt.Errorf("person validation failed: %w", err)
	}

	owned, err := s.selfies.ListSelfies(ctx, personID)
	if err != nil {
		return generation.Generation{}, err
	}
	if len(owned) < 2 {
		return generation.Generation{}, ErrSelfieMinimum
	}

	contextID = strings.TrimSpace(contextID)
	if contextID != "" {
		bc, err := s.contexts.GetBrandContext(ctx, contextID)
		if err != nil {
			return generation.Generation{}, fmt.Errorf("context validation failed: %w", err)
		}
		if p.TeamID == "" || bc.TeamID != p.TeamID {
			return generation.Generation{}, fmt.Errorf("context does not belong to the person's team")
		}
	}

	// The id is fixed up front so the consume row can reference it before
	// the record exists.
	id := uuid.NewString()
	source, err := s.credits.ConsumeForGeneration(ctx, personID, id)
	if err != nil {
		return generation.Generation{}, err
	}

	g, err := s.store.CreateGeneration(ctx, generation.Generation{
		ID:           id,
		PersonID:     personID,
		TeamID:       p.TeamID,
		GroupID:      uuid.NewString(),
		ContextID:    contextID,
		Style:        strings.TrimSpace(style),
		Status:       generation.StatusPending,
		CreditSource: source,
		Brand:        strings.TrimSpace(brand),
	})
	if err != nil {
		if refundErr := s.credits.RefundGeneration(ctx, id); refundErr != nil {
			s.log.WithError(refundErr).WithField("generation_id", id).Error("failed to refund after create error")
		}
		return generation.Generation{}, err
	}
	s.log.WithField("generation_id", g.ID).WithField("person_id", personID).Info("generation queued")
	return g, nil
}

// Regenerate queues a free rerun of a finished generation. Regenerations
// share the original's group and count against the group quota.
func (s *Service) Regenerate(ctx context.Context, generationID string) (generation.Generation, error) {
	original, err := s.store.GetGeneration(ctx, strings.TrimSpace(generationID))
	if err != nil {
		return generation.Generation{}, err
	}
	if original.Status != generation.StatusCompleted && original.Status != generation.StatusFailed {
		return generation.Generation{}, ErrInvalidTransition
	}

	group, err := s.store.ListGroupGenerations(ctx, original.GroupID)
	if err != nil {
		return generation.Generation{}, err
	}
	regenerations := 0
	for _, g := range group {
		if g.Regeneration {
			regenerations++
		}
	}
	if regenerations >= s.regenQuota {
		return generation.Generation{}, ErrRegenerationQuota
	}

	g, err := s.store.CreateGeneration(ctx, generation.Generation{
		PersonID:     original.PersonID,
		TeamID:       original.TeamID,
		GroupID:      original.GroupID,
		Regeneration: true,
		ContextID:    original.ContextID,
		Style:        original.Style,
		Status:       generation.StatusPending,
		CreditSource: generation.SourceNone,
		Brand:        original.Brand,
	})
	if err != nil {
		return generation.Generation{}, err
	}
	s.log.WithField("generation_id", g.ID).WithField("group_id", g.GroupID).Info("regeneration queued")
	return g, nil
}

// MarkProcessing claims a pending generation for the worker.
func (s *Service) MarkProcessing(ctx context.Context, id string) (generation.Generation, error) {
	g, err := s.store.GetGeneration(ctx, id)
	if err != nil {
		return generation.Generation{}, err
	}
	if g.Status != generation.StatusPending {
		return generation.Generation{}, ErrInvalidTransition
	}
	g.Status = generation.StatusProcessing
	g.StartedAt = time.Now().UTC()
	return s.store.UpdateGeneration(ctx, g)
}

// SetComposite records the uploaded composite key on a processing record.
func (s *Service) SetComposite(ctx context.Context, id, compositeKey string) (generation.Generation, error) {
	g, err := s.store.GetGeneration(ctx, id)
	if err != nil {
		return generation.Generation{}, err
	}
	if g.Status != generation.StatusProcessing {
		return generation.Generation{}, ErrInvalidTransition
	}
	g.CompositeKey = compositeKey
	return s.store.UpdateGeneration(ctx, g)
}

// Complete finishes a processing generation with its result keys.
func (s *Service) Complete(ctx context.Context, id string, resultKeys []string) (generation.Generation, error) {
	g, err := s.store.GetGeneration(ctx, id)
	if err != nil {
		return generation.Generation{}, err
	}
	if g.Status != generation.StatusProcessing {
		return generation.Generation{}, ErrInvalidTransition
	}
	if len(resultKeys) == 0 {
		return generation.Generation{}, fmt.Errorf("at least one result key is required")
	}
	g.Status = generation.StatusCompleted
	g.ResultKeys = resultKeys
	g.Error = ""
	g.CompletedAt = time.Now().UTC()
	g, err = s.store.UpdateGeneration(ctx, g)
	if err != nil {
		return generation.Generation{}, err
	}
	s.log.WithField("generation_id", g.ID).WithField("results", len(resultKeys)).Info("generation completed")
	return g, nil
}

// Fail moves a pending or processing generation to failed, recording the
// cause and refunding the charged credit when one was consumed.
func (s *Service) Fail(ctx context.Context, id, cause string) (generation.Generation, error) {
	g, err := s.store.GetGeneration(ctx, id)
	if err != nil {
		return generation.Generation{}, err
	}
	if g.Status != generation.StatusPending && g.Status != generation.StatusProcessing {
		return generation.Generation{}, ErrInvalidTransition
	}
	g.Status = generation.StatusFailed
	g.Error = strings.TrimSpace(cause)
	g.CompletedAt = time.Now().UTC()
	g, err = s.store.UpdateGeneration(ctx, g)
	if err != nil {
		return generation.Generation{}, err
	}

	if g.CreditSource != generation.SourceNone {
		if err := s.credits.RefundGeneration(ctx, g.ID); err != nil {
			s.log.WithError(err).WithField("generation_id", g.ID).Error("refund failed")
		}
	}
	s.log.WithField("generation_id", g.ID).WithField("cause", g.Error).Warn("generation failed")
	return g, nil
}

// Get fetches a generation.
func (s *Service) Get(ctx context.Context, id string) (generation.Generation, error) {
	if strings.TrimSpace(id) == "" {
		return generation.Generation{}, fmt.Errorf("generation id is required")
	}
	return s.store.GetGeneration(ctx, id)
}

// List returns a person's generations.
func (s *Service) List(ctx context.Context, personID string) ([]generation.Generation, error) {
	if strings.TrimSpace(personID) == "" {
		return nil, fmt.Errorf("person id is required")
	}
	return s.store.ListGenerations(ctx, personID)
}

// ListTeam returns a team's generations.
func (s *Service) ListTeam(ctx context.Context, teamID string) ([]generation.Generation, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, fmt.Errorf("team id is required")
	}
	return s.store.ListTeamGenerations(ctx, teamID)
}

// ListGroup returns every generation sharing a group, originals first.
func (s *Service) ListGroup(ctx context.Context, groupID string) ([]generation.Generation, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, fmt.Errorf("group id is required")
	}
	return s.store.ListGroupGenerations(ctx, groupID)
}

// Stats summarizes a person's dashboard: personal and team counts by status,
// selfie count, and the credits still available to them (personal plus team
// pool).
func (s *Service) Stats(ctx context.Context, personID string) (generation.Stats, error) {
	p, err := s.persons.GetPerson(ctx, personID)
	if err != nil {
		return generation.Stats{}, err
	}

	all, err := s.store.ListGenerations(ctx, personID)
	if err != nil {
		return generation.Stats{}, err
	}

	var stats generation.Stats
	stats.StatusCounts = countStatuses(all)
	if p.TeamID != "" {
		teamAll, err := s.store.ListTeamGenerations(ctx, p.TeamID)
		if err != nil {
			return generation.Stats{}, err
		}
		stats.Team = countStatuses(teamAll)
	}

	owned, err := s.selfies.ListSelfies(ctx, personID)
	if err != nil {
		return generation.Stats{}, err
	}
	stats.Selfies = len(owned)

	personBalance, err := s.credits.Balance(ctx, credit.SourcePerson, personID)
	if err != nil {
		return generation.Stats{}, err
	}
	stats.Credits = personBalance
	if p.TeamID != "" {
		teamBalance, err := s.credits.Balance(ctx, credit.SourceTeam, p.TeamID)
		if err != nil {
			return generation.Stats{}, err
		}
		stats.Credits += teamBalance
	}
	return stats, nil
}

func countStatuses(list []generation.Generation) generation.StatusCounts {
	var c generation.StatusCounts
	c.Total = len(list)
	for _, g := range list {
		switch g.Status {
		case generation.StatusPending:
			c.Pending++
		case generation.StatusProcessing:
			c.Processing++
		case generation.StatusCompleted:
			c.Completed++
		case generation.StatusFailed:
			c.Failed++
		}
	}
	return c
}
