// Package feedback records product feedback notes.
package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/studioshot/platform/internal/app/domain/feedback"
	"github.com/studioshot/platform/internal/app/storage"
	"github.com/studioshot/platform/pkg/logger"
)

// Service manages feedback notes.
type Service struct {
	store storage.FeedbackStore
	log   *logger.Logger
}

// New constructs a feedback service.
func New(store storage.FeedbackStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("feedback")
	}
	return &Service{store: store, log: log}
}

// Create records a note. Rating runs 1 to 5; the message is optional when a
// rating is given.
func (s *Service) Create(ctx context.Context, personID string, rating int, message string) (feedback.Feedback, error) {
	message = strings.TrimSpace(message)
	if rating < 1 || rating > 5 {
		return feedback.Feedback{}, fmt.Errorf("rating must be between 1 and 5")
	}

	fb, err := s.store.CreateFeedback(ctx, feedback.Feedback{
		PersonID: strings.TrimSpace(personID),
		Rating:   rating,
		Message:  message,
	})
	if err != nil {
		return feedback.Feedback{}, err
	}
	s.log.WithField("rating", rating).Info("feedback recorded")
	return fb, nil
}

// List returns every note, oldest first.
func (s *Service) List(ctx context.Context) ([]feedback.Feedback, error) {
	return s.store.ListFeedback(ctx)
}
