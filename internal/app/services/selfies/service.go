// Package selfies manages reference photo uploads.
package selfies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/studioshot/platform/internal/app/domain/selfie"
	"github.com/studioshot/platform/internal/app/storage"
	"github.com/studioshot/platform/internal/objectstore"
	"github.com/studioshot/platform/pkg/logger"
)

// MaxUploadBytes caps a single selfie upload.
const MaxUploadBytes = 10 << 20

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var (
	// ErrUnsupportedType is returned for uploads outside the allowlist.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrTooLarge is returned when an upload exceeds MaxUploadBytes.
	ErrTooLarge = errors.New("upload exceeds size limit")
)

// Service manages selfie records and their stored bytes.
type Service struct {
	store   storage.SelfieStore
	persons storage.PersonStore
	objects objectstore.Store
	log     *logger.Logger
}

// New constructs a selfies service.
func New(store storage.SelfieStore, persons storage.PersonStore, objects objectstore.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("selfies")
	}
	return &Service{store: store, persons: persons, objects: objects, log: log}
}

// Upload stores the photo bytes and records the selfie.
func (s *Service) Upload(ctx context.Context, personID, contentType string, data []byte) (selfie.Selfie, error) {
	personID = strings.TrimSpace(personID)
	if personID == "" {
		return selfie.Selfie{}, fmt.Errorf("person id is required")
	}
	ext, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return selfie.Selfie{}, ErrUnsupportedType
	}
	if len(data) == 0 {
		return selfie.Selfie{}, fmt.Errorf("empty upload")
	}
	if len(data) > MaxUploadBytes {
		return selfie.Selfie{}, ErrTooLarge
	}

	if _, err := s.persons.GetPerson(ctx, personID); err != nil {
		return selfie.Selfie{}, fmt.Errorf("person validation failed: %w", err)
	}

	key := fmt.Sprintf("selfies/%s/%s%s", personID, uuid.NewString(), ext)
	if err := s.objects.Put(ctx, key, contentType, data); err != nil {
		return selfie.Selfie{}, fmt.Errorf("store selfie bytes: %w", err)
	}

	record, err := s.store.CreateSelfie(ctx, selfie.Selfie{
		PersonID:    personID,
		ObjectKey:   key,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	})
	if err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.log.WithError(delErr).WithField("key", key).Warn("orphaned selfie object")
		}
		return selfie.Selfie{}, err
	}
	s.log.WithField("person_id", personID).WithField("selfie_id", record.ID).Info("selfie uploaded")
	return record, nil
}

// Get fetches a selfie record.
func (s *Service) Get(ctx context.Context, id string) (selfie.Selfie, error) {
	if strings.TrimSpace(id) == "" {
		return selfie.Selfie{}, fmt.Errorf("selfie id is required")
	}
	return s.store.GetSelfie(ctx, id)
}

// List returns a person's selfies.
func (s *Service) List(ctx context.Context, personID string) ([]selfie.Selfie, error) {
	if strings.TrimSpace(personID) == "" {
		return nil, fmt.Errorf("person id is required")
	}
	return s.store.ListSelfies(ctx, personID)
}

// Delete removes the record and its stored bytes. The record must belong to
// the given person.
func (s *Service) Delete(ctx context.Context, personID, selfieID string) error {
	record, err := s.store.GetSelfie(ctx, selfieID)
	if err != nil {
		return err
	}
	if record.PersonID != personID {
		return sql.ErrNoRows
	}
	if err := s.store.DeleteSelfie(ctx, selfieID); err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, record.ObjectKey); err != nil && !errors.Is(err, objectstore.ErrNotFound) {
		s.log.WithError(err).WithField("key", record.ObjectKey).Warn("failed to delete selfie object")
	}
	return nil
}
