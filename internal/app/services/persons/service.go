// Package persons manages registration and authentication of platform users.
package persons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/studioshot/platform/internal/app/domain/person"
	"github.com/studioshot/platform/internal/app/storage"
	"github.com/studioshot/platform/pkg/logger"
)

var (
	// ErrEmailTaken is returned when registering with an email that is
	// already in use.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on failed authentication.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service manages person records.
type Service struct {
	store storage.PersonStore
	log   *logger.Logger
}

// New constructs a persons service.
func New(store storage.PersonStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("persons")
	}
	return &Service{store: store, log: log}
}

// Register creates a person with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, name, password, brand string) (person.Person, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" || !strings.Contains(email, "@") {
		return person.Person{}, fmt.Errorf("valid email is required")
	}
	if name == "" {
		return person.Person{}, fmt.Errorf("name is required")
	}
	if len(password) < 8 {
		return person.Person{}, fmt.Errorf("password must be at least 8 characters")
	}

	if _, err := s.store.GetPersonByEmail(ctx, email); err == nil {
		return person.Person{}, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return person.Person{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return person.Person{}, fmt.Errorf("hash password: %w", err)
	}

	p, err := s.store.CreatePerson(ctx, person.Person{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         person.RoleMember,
		Brand:        strings.TrimSpace(brand),
	})
	if err != nil {
		return person.Person{}, err
	}
	s.log.WithField("person_id", p.ID).Info("person registered")
	return p, nil
}

// Authenticate verifies an email/password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (person.Person, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	p, err := s.store.GetPersonByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return person.Person{}, ErrInvalidCredentials
		}
		return person.Person{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return person.Person{}, ErrInvalidCredentials
	}
	return p, nil
}

// Get fetches a person by id.
func (s *Service) Get(ctx context.Context, id string) (person.Person, error) {
	if strings.TrimSpace(id) == "" {
		return person.Person{}, fmt.Errorf("person id is required")
	}
	return s.store.GetPerson(ctx, id)
}

// List returns persons, optionally filtered by team.
func (s *Service) List(ctx context.Context, teamID string) ([]person.Person, error) {
	return s.store.ListPersons(ctx, strings.TrimSpace(teamID))
}

// Delete removes a person record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("person id is required")
	}
	if err := s.store.DeletePerson(ctx, id); err != nil {
		return err
	}
	s.log.WithField("person_id", id).Info("person deleted")
	return nil
}
