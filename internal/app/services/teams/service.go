// Package teams manages team accounts, invites, seats, and brand contexts.
package teams

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/studioshot/platform/internal/app/domain/person"
	"github.com/studioshot/platform/internal/app/domain/team"
	"github.com/studioshot/platform/internal/app/storage"
	"github.com/studioshot/platform/internal/imaging"
	"github.com/studioshot/platform/pkg/logger"
)

const inviteTTL = 7 * 24 * time.Hour

var (
	// ErrNotAdmin is returned when a non-admin attempts a team mutation.
	ErrNotAdmin = errors.New("person is not the team admin")
	// ErrSeatLimit is returned when accepting an invite would exceed seats.
	ErrSeatLimit = errors.New("team has no free seats")
	// ErrInviteExpired is returned when redeeming an expired invite token.
	ErrInviteExpired = errors.New("invite has expired")
	// ErrInviteConsumed is returned when redeeming a non-pending invite.
	ErrInviteConsumed = errors.New("invite is no longer pending")
	// ErrSelfieMinimum is returned when a member joins without enough
	// reference selfies.
	ErrSelfieMinimum = errors.New("at least two selfies are required")
)

// Service manages teams.
type Service struct {
	teams    storage.TeamStore
	invites  storage.InviteStore
	contexts storage.ContextStore
	persons  storage.PersonStore
	selfies  storage.SelfieStore
	log      *logger.Logger
}

// New constructs a teams service.
func New(teams storage.TeamStore, invites storage.InviteStore, contexts storage.ContextStore,
	persons storage.PersonStore, selfies storage.SelfieStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("teams")
	}
	return &Service{
		teams:    teams,
		invites:  invites,
		contexts: contexts,
		persons:  persons,
		selfies:  selfies,
		log:      log,
	}
}

// Create registers a team with the given person as admin.
func (s *Service) Create(ctx context.Context, name, adminID string, seats int, brand string) (team.Team, error) {
	name = strings.TrimSpace(name)
	adminID = strings.TrimSpace(adminID)

	if name == "" {
		return team.Team{}, fmt.Errorf("team name is required")
	}
	if adminID == "" {
		return team.Team{}, fmt.Errorf("admin_id is required")
	}
	if seats < 1 {
		return team.Team{}, fmt.Errorf("seats must be at least 1")
	}

	admin, err := s.persons.GetPerson(ctx, adminID)
	if err != nil {
		return team.Team{}, fmt.Errorf("admin validation failed: %w", err)
	}
	if admin.TeamID != "" {
		return team.Team{}, fmt.Errorf("person already belongs to a team")
	}

	t, err := s.teams.CreateTeam(ctx, team.Team{
		Name:    name,
		AdminID: adminID,
		Seats:   seats,
		Brand:   strings.TrimSpace(brand),
	})
	if err != nil {
		return team.Team{}, err
	}

	admin.TeamID = t.ID
	admin.Role = person.RoleAdmin
	if _, err := s.persons.UpdatePerson(ctx, admin); err != nil {
		return team.Team{}, fmt.Errorf("assign admin: %w", err)
	}

	s.log.WithField("team_id", t.ID).WithField("admin_id", adminID).Info("team created")
	return t, nil
}

// Get fetches a team by id.
func (s *Service) Get(ctx context.Context, id string) (team.Team, error) {
	if strings.TrimSpace(id) == "" {
		return team.Team{}, fmt.Errorf("team id is required")
	}
	return s.teams.GetTeam(ctx, id)
}

// List returns every team.
func (s *Service) List(ctx context.Context) ([]team.Team, error) {
	return s.teams.ListTeams(ctx)
}

// Update changes a team's name or seat count. Seats can only grow past the
// current member count.
func (s *Service) Update(ctx context.Context, teamID, actorID, name string, seats int) (team.Team, error) {
	t, err := s.requireAdmin(ctx, teamID, actorID)
	if err != nil {
		return team.Team{}, err
	}

	if name = strings.TrimSpace(name); name != "" {
		t.Name = name
	}
	if seats > 0 {
		members, err := s.persons.ListPersons(ctx, t.ID)
		if err != nil {
			return team.Team{}, err
		}
		if seats < len(members) {
			return team.Team{}, fmt.Errorf("seats cannot drop below current member count %d", len(members))
		}
		t.Seats = seats
	}
	return s.teams.UpdateTeam(ctx, t)
}

// Members lists the team's persons.
func (s *Service) Members(ctx context.Context, teamID string) ([]person.Person, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, fmt.Errorf("team id is required")
	}
	return s.persons.ListPersons(ctx, teamID)
}

// --- invites ----------------------------------------------------------------

// Invite creates a pending invite for an email address.
func (s *Service) Invite(ctx context.Context, teamID, actorID, email string) (team.Invite, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return team.Invite{}, fmt.Errorf("valid email is required")
	}

	t, err := s.requireAdmin(ctx, teamID, actorID)
	if err != nil {
		return team.Invite{}, err
	}

	free, err := s.freeSeats(ctx, t)
	if err != nil {
		return team.Invite{}, err
	}
	if free < 1 {
		return team.Invite{}, ErrSeatLimit
	}

	existing, err := s.invites.ListInvites(ctx, t.ID)
	if err != nil {
		return team.Invite{}, err
	}
	for _, inv := range existing {
		if inv.Status == team.InvitePending && inv.Email == email {
			return team.Invite{}, fmt.Errorf("invite for %s already pending", email)
		}
	}

	token, err := newToken()
	if err != nil {
		return team.Invite{}, err
	}

	inv, err := s.invites.CreateInvite(ctx, team.Invite{
		TeamID:    t.ID,
		Email:     email,
		Token:     token,
		Status:    team.InvitePending,
		ExpiresAt: time.Now().UTC().Add(inviteTTL),
	})
	if err != nil {
		return team.Invite{}, err
	}
	s.log.WithField("team_id", t.ID).WithField("invite_id", inv.ID).Info("invite created")
	return inv, nil
}

// ListInvites returns a team's invites.
func (s *Service) ListInvites(ctx context.Context, teamID string) ([]team.Invite, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, fmt.Errorf("team id is required")
	}
	return s.invites.ListInvites(ctx, teamID)
}

// Accept redeems an invite token for a registered person. The person must
// own at least two selfies and the invite email must match theirs.
func (s *Service) Accept(ctx context.Context, token, personID string) (team.Invite, error) {
	token = strings.TrimSpace(token)
	personID = strings.TrimSpace(personID)
	if token == "" {
		return team.Invite{}, fmt.Errorf("invite token is required")
	}
	if personID == "" {
		return team.Invite{}, fmt.Errorf("person id is required")
	}

	inv, err := s.invites.GetInviteByToken(ctx, token)
	if err != nil {
		return team.Invite{}, err
	}
	if inv.Status != team.InvitePending {
		return team.Invite{}, ErrInviteConsumed
	}
	if time.Now().UTC().After(inv.ExpiresAt) {
		inv.Status = team.InviteExpired
		if _, err := s.invites.UpdateInvite(ctx, inv); err != nil {
			s.log.WithError(err).Warn("failed to mark invite expired")
		}
		return team.Invite{}, ErrInviteExpired
	}

	p, err := s.persons.GetPerson(ctx, personID)
	if err != nil {
		return team.Invite{}, err
	}
	if !strings.EqualFold(p.Email, inv.Email) {
		return team.Invite{}, fmt.Errorf("invite was issued to a different email")
	}
	if p.TeamID != "" {
		return team.Invite{}, fmt.Errorf("person already belongs to a team")
	}

	owned, err := s.selfies.ListSelfies(ctx, personID)
	if err != nil {
		return team.Invite{}, err
	}
	if len(owned) < 2 {
		return team.Invite{}, ErrSelfieMinimum
	}

	t, err := s.teams.GetTeam(ctx, inv.TeamID)
	if err != nil {
		return team.Invite{}, err
	}
	free, err := s.freeSeats(ctx, t)
	if err != nil {
		return team.Invite{}, err
	}
	if free < 1 {
		return team.Invite{}, ErrSeatLimit
	}

	p.TeamID = t.ID
	if _, err := s.persons.UpdatePerson(ctx, p); err != nil {
		return team.Invite{}, fmt.Errorf("assign member: %w", err)
	}

	inv.Status = team.InviteAccepted
	inv.AcceptedBy = personID
	inv, err = s.invites.UpdateInvite(ctx, inv)
	if err != nil {
		return team.Invite{}, err
	}
	s.log.WithField("team_id", t.ID).WithField("person_id", personID).Info("invite accepted")
	return inv, nil
}

// RevokeInvite cancels a pending invite.
func (s *Service) RevokeInvite(ctx context.Context, teamID, actorID, inviteID string) error {
	if _, err := s.requireAdmin(ctx, teamID, actorID); err != nil {
		return err
	}

	inv, err := s.invites.GetInvite(ctx, inviteID)
	if err != nil {
		return err
	}
	if inv.TeamID != teamID {
		return sql.ErrNoRows
	}
	if inv.Status != team.InvitePending {
		return ErrInviteConsumed
	}

	inv.Status = team.InviteRevoked
	_, err = s.invites.UpdateInvite(ctx, inv)
	return err
}

// RevokeMember removes a member from the team, freeing their seat.
func (s *Service) RevokeMember(ctx context.Context, teamID, actorID, personID string) error {
	t, err := s.requireAdmin(ctx, teamID, actorID)
	if err != nil {
		return err
	}
	if personID == t.AdminID {
		return fmt.Errorf("cannot revoke the team admin")
	}

	p, err := s.persons.GetPerson(ctx, personID)
	if err != nil {
		return err
	}
	if p.TeamID != teamID {
		return sql.ErrNoRows
	}

	p.TeamID = ""
	p.Role = person.RoleMember
	if _, err := s.persons.UpdatePerson(ctx, p); err != nil {
		return err
	}
	s.log.WithField("team_id", teamID).WithField("person_id", personID).Info("member revoked")
	return nil
}

// ExpireInvites marks pending invites past their deadline as expired and
// returns how many were flipped.
func (s *Service) ExpireInvites(ctx context.Context, now time.Time) (int, error) {
	pending, err := s.invites.ListPendingInvites(ctx)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, inv := range pending {
		if now.Before(inv.ExpiresAt) {
			continue
		}
		inv.Status = team.InviteExpired
		if _, err := s.invites.UpdateInvite(ctx, inv); err != nil {
			s.log.WithError(err).WithField("invite_id", inv.ID).Warn("failed to expire invite")
			continue
		}
		expired++
	}
	return expired, nil
}

// --- brand contexts ---------------------------------------------------------

// CreateContext adds a generation preset to the team.
func (s *Service) CreateContext(ctx context.Context, teamID, actorID string, bc team.BrandContext) (team.BrandContext, error) {
	if _, err := s.requireAdmin(ctx, teamID, actorID); err != nil {
		return team.BrandContext{}, err
	}
	if err := validateContext(&bc); err != nil {
		return team.BrandContext{}, err
	}
	bc.TeamID = teamID
	created, err := s.contexts.CreateBrandContext(ctx, bc)
	if err != nil {
		return team.BrandContext{}, err
	}
	s.log.WithField("team_id", teamID).WithField("context_id", created.ID).Info("brand context created")
	return created, nil
}

// UpdateContext replaces a preset's fields.
func (s *Service) UpdateContext(ctx context.Context, teamID, actorID string, bc team.BrandContext) (team.BrandContext, error) {
	if _, err := s.requireAdmin(ctx, teamID, actorID); err != nil {
		return team.BrandContext{}, err
	}
	existing, err := s.contexts.GetBrandContext(ctx, bc.ID)
	if err != nil {
		return team.BrandContext{}, err
	}
	if existing.TeamID != teamID {
		return team.BrandContext{}, sql.ErrNoRows
	}
	if err := validateContext(&bc); err != nil {
		return team.BrandContext{}, err
	}
	return s.contexts.UpdateBrandContext(ctx, bc)
}

// GetContext fetches a preset scoped to the team.
func (s *Service) GetContext(ctx context.Context, teamID, contextID string) (team.BrandContext, error) {
	bc, err := s.contexts.GetBrandContext(ctx, contextID)
	if err != nil {
		return team.BrandContext{}, err
	}
	if bc.TeamID != teamID {
		return team.BrandContext{}, sql.ErrNoRows
	}
	return bc, nil
}

// ListContexts returns a team's presets.
func (s *Service) ListContexts(ctx context.Context, teamID string) ([]team.BrandContext, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, fmt.Errorf("team id is required")
	}
	return s.contexts.ListBrandContexts(ctx, teamID)
}

// DeleteContext removes a preset.
func (s *Service) DeleteContext(ctx context.Context, teamID, actorID, contextID string) error {
	if _, err := s.requireAdmin(ctx, teamID, actorID); err != nil {
		return err
	}
	bc, err := s.contexts.GetBrandContext(ctx, contextID)
	if err != nil {
		return err
	}
	if bc.TeamID != teamID {
		return sql.ErrNoRows
	}
	return s.contexts.DeleteBrandContext(ctx, contextID)
}

// --- helpers ----------------------------------------------------------------

func (s *Service) requireAdmin(ctx context.Context, teamID, actorID string) (team.Team, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return team.Team{}, fmt.Errorf("team id is required")
	}
	t, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return team.Team{}, err
	}
	// An empty actor means the caller was already authorized upstream.
	if actorID != "" && actorID != t.AdminID {
		return team.Team{}, ErrNotAdmin
	}
	return t, nil
}

func (s *Service) freeSeats(ctx context.Context, t team.Team) (int, error) {
	members, err := s.persons.ListPersons(ctx, t.ID)
	if err != nil {
		return 0, err
	}
	return t.Seats - len(members), nil
}

func validateContext(bc *team.BrandContext) error {
	bc.Name = strings.TrimSpace(bc.Name)
	if bc.Name == "" {
		return fmt.Errorf("context name is required")
	}
	if bc.Background != "" && !imaging.ValidBackground(bc.Background) {
		return fmt.Errorf("unknown background %q; offered: %s", bc.Background, strings.Join(imaging.BackgroundNames(), ", "))
	}
	return nil
}

func newToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
