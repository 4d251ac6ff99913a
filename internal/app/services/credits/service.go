// Package credits keeps the append-only credit ledger and the consume/refund
// rules around generations.
package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/studioshot/platform/internal/app/domain/credit"
	"github.com/studioshot/platform/internal/app/domain/generation"
	"github.com/studioshot/platform/internal/app/metrics"
	"github.com/studioshot/platform/internal/app/storage"
	"github.com/studioshot/platform/pkg/logger"
)

// ErrInsufficientCredits is returned when neither the personal balance nor
// the team pool can cover a generation.
var ErrInsufficientCredits = errors.New("insufficient credits")

// Service manages the credit ledger.
type Service struct {
	store   storage.CreditStore
	persons storage.PersonStore
	log     *logger.Logger
}

// New constructs a credits service.
func New(store storage.CreditStore, persons storage.PersonStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("credits")
	}
	return &Service{store: store, persons: persons, log: log}
}

// Balance sums a source's ledger rows.
func (s *Service) Balance(ctx context.Context, sourceType credit.SourceType, sourceID string) (int64, error) {
	if strings.TrimSpace(sourceID) == "" {
		return 0, fmt.Errorf("source id is required")
	}
	return s.store.CreditBalance(ctx, sourceType, sourceID)
}

// Grant adds promotional or administrative credits.
func (s *Service) Grant(ctx context.Context, sourceType credit.SourceType, sourceID string, amount int64, note string) (credit.Transaction, error) {
	return s.addPositive(ctx, sourceType, sourceID, amount, credit.KindGrant, note)
}

// Purchase records a paid credit top-up.
func (s *Service) Purchase(ctx context.Context, sourceType credit.SourceType, sourceID string, amount int64, note string) (credit.Transaction, error) {
	return s.addPositive(ctx, sourceType, sourceID, amount, credit.KindPurchase, note)
}

func (s *Service) addPositive(ctx context.Context, sourceType credit.SourceType, sourceID string, amount int64, kind credit.Kind, note string) (credit.Transaction, error) {
	if strings.TrimSpace(sourceID) == "" {
		return credit.Transaction{}, fmt.Errorf("source id is required")
	}
	if sourceType != credit.SourcePerson && sourceType != credit.SourceTeam {
		return credit.Transaction{}, fmt.Errorf("unknown source type %q", sourceType)
	}
	if amount <= 0 {
		return credit.Transaction{}, fmt.Errorf("amount must be positive")
	}

	tx, err := s.store.CreateCreditTransaction(ctx, credit.Transaction{
		SourceType: sourceType,
		SourceID:   sourceID,
		Amount:     amount,
		Kind:       kind,
		Note:       strings.TrimSpace(note),
	})
	if err != nil {
		return credit.Transaction{}, err
	}
	s.log.WithFields(map[string]interface{}{
		"source_type": sourceType,
		"source_id":   sourceID,
		"amount":      amount,
		"kind":        kind,
	}).Info("credits added")
	return tx, nil
}

// ConsumeForGeneration charges one credit for a generation. The person's own
// balance is tried first, then their team's pool. The returned source tells
// the caller which balance paid. The balance check and the ledger row are one
// conditional store write, so concurrent charges cannot overdraw a source.
func (s *Service) ConsumeForGeneration(ctx context.Context, personID, generationID string) (generation.CreditSource, error) {
	personID = strings.TrimSpace(personID)
	generationID = strings.TrimSpace(generationID)
	if personID == "" || generationID == "" {
		return generation.SourceNone, fmt.Errorf("person id and generation id are required")
	}

	charged, err := s.store.ConsumeCredit(ctx, credit.SourcePerson, personID, generationID)
	if err != nil {
		return generation.SourceNone, err
	}
	if charged {
		metrics.RecordCreditConsumed(string(credit.SourcePerson))
		return generation.SourcePerson, nil
	}

	p, err := s.persons.GetPerson(ctx, personID)
	if err != nil {
		return generation.SourceNone, err
	}
	if p.TeamID != "" {
		charged, err := s.store.ConsumeCredit(ctx, credit.SourceTeam, p.TeamID, generationID)
		if err != nil {
			return generation.SourceNone, err
		}
		if charged {
			metrics.RecordCreditConsumed(string(credit.SourceTeam))
			return generation.SourceTeam, nil
		}
	}
	return generation.SourceNone, ErrInsufficientCredits
}

// RefundGeneration reverses a generation's consume row back to its original
// source. The store writes at most one refund row per generation, so repeated
// and concurrent calls are no-ops.
func (s *Service) RefundGeneration(ctx context.Context, generationID string) error {
	generationID = strings.TrimSpace(generationID)
	if generationID == "" {
		return fmt.Errorf("generation id is required")
	}

	refunded, err := s.store.RefundGenerationCredit(ctx, generationID)
	if err != nil {
		return err
	}
	if refunded {
		s.log.WithField("generation_id", generationID).Info("generation credit refunded")
	}
	return nil
}

// Ledger returns a source's transactions, oldest first.
func (s *Service) Ledger(ctx context.Context, sourceType credit.SourceType, sourceID string) ([]credit.Transaction, error) {
	if strings.TrimSpace(sourceID) == "" {
		return nil, fmt.Errorf("source id is required")
	}
	return s.store.ListCreditTransactions(ctx, sourceType, sourceID)
}
